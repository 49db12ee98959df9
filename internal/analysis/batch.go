package analysis

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"retcheck/internal/cfg"
)

// Unit is one function handed to the batch driver. Err carries a front-end
// failure (such as an empty function) that prevented building Graph.
type Unit struct {
	Name  string
	Graph *cfg.ControlFlowGraph
	Err   error
}

// BatchOptions configures RunBatch
type BatchOptions struct {
	Workers int
	Policy  Policy
}

// RunBatch analyzes every unit independently. A failure in one function never
// affects its siblings. When ctx is cancelled no further functions are
// scheduled; analyses already running finish. Results are in input order and
// the returned error is the context's, if any.
func RunBatch(ctx context.Context, units []Unit, opts BatchOptions) ([]FunctionResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	analyzer := NewAnalyzer(opts.Policy)
	results := make([]FunctionResult, len(units))

	var group errgroup.Group
	group.SetLimit(workers)

	for i, unit := range units {
		results[i].Function = unit.Name

		if err := ctx.Err(); err != nil {
			results[i] = skipped(unit.Name, err)
			continue
		}
		if unit.Err != nil {
			log.Warningf("%s: %s", unit.Name, unit.Err)
			results[i].Err = unit.Err
			continue
		}

		// Go blocks while every worker is busy, so the context may be cancelled by the time this runs
		group.Go(func() error {
			results[i] = runUnit(ctx, analyzer, unit)
			return nil
		})
	}
	_ = group.Wait()

	return results, ctx.Err()
}

func runUnit(ctx context.Context, analyzer *Analyzer, unit Unit) FunctionResult {
	if err := ctx.Err(); err != nil {
		return skipped(unit.Name, err)
	}
	return analyzeUnit(analyzer, unit)
}

func skipped(name string, err error) FunctionResult {
	return FunctionResult{Function: name, Err: fmt.Errorf("not analyzed: %w", err), Skipped: true}
}

func analyzeUnit(analyzer *Analyzer, unit Unit) (result FunctionResult) {
	defer func() {
		if r := recover(); r != nil {
			err := &InternalError{Function: unit.Name, Err: fmt.Errorf("panic: %v", r)}
			log.Errorf("%s", err)
			result = FunctionResult{Function: unit.Name, Err: err}
		}
	}()

	res, err := analyzer.AnalyzeFunction(unit.Graph)
	if err != nil {
		log.Warningf("%s: %s", unit.Name, err)
		return FunctionResult{Function: unit.Name, Err: err}
	}
	if res.Function == "" {
		res.Function = unit.Name
	}
	return *res
}
