package analysis

import (
	"slices"

	"retcheck/internal/cfg"
)

type sitePair struct {
	call, effect instrKey
}

// Report replays the transfer functions once over the converged entry states
// and returns the deduplicated findings ordered by (call site, mutation site).
// Unreached blocks contribute nothing.
func Report(g *cfg.ControlFlowGraph, result *Result, c *Classifier) []Finding {
	seen := make(map[sitePair]int)
	var findings []Finding

	for block := range g.Blocks() {
		state := result.entry[block.ID]
		if !state.Reached() {
			continue
		}
		state = state.Clone()
		c.transferBlock(state, block, func(flag cfg.ValueRef, at *cfg.Instruction, severity Severity) {
			call, ok := c.CallSite(flag)
			if !ok {
				// only call-produced values are ever tagged unchecked
				log.Errorf("%s: unchecked value %s has no call site", g.Name(), g.ValueName(flag))
				return
			}
			key := sitePair{keyOf(call), keyOf(at)}
			if idx, dup := seen[key]; dup {
				if severity > findings[idx].Severity {
					findings[idx].Severity = severity
				}
				return
			}
			seen[key] = len(findings)
			findings = append(findings, Finding{
				Function:     g.Name(),
				Flag:         g.ValueName(flag),
				CallSite:     call.Loc,
				MutationSite: at.Loc,
				CallOp:       call.Op,
				EffectOp:     at.Op,
				Severity:     severity,
			})
		})
	}

	slices.SortStableFunc(findings, compareFindings)
	return findings
}
