package analysis

import (
	"maps"
	"slices"

	"retcheck/internal/cfg"
)

// Tag is the abstract value tracked for one ValueRef
type Tag uint8

const (
	// Bottom marks a state that no execution has reached yet
	Bottom Tag = iota
	// Top means no information: the value is not a tracked call flag on this path
	Top
	// Checked marks a success flag that was consulted on this path
	Checked
	// Unchecked marks a success flag that exists and has not been consulted
	Unchecked
)

func (t Tag) String() string {
	switch t {
	case Bottom:
		return "BOTTOM"
	case Top:
		return "TOP"
	case Checked:
		return "CHECKED"
	case Unchecked:
		return "UNCHECKED"
	default:
		return "?"
	}
}

// joinTag merges the facts of two incoming paths. A flag stays checked only if
// every path that produced it checked it. CHECKED joined with TOP is CHECKED by
// default, so a flag checked on every path where it exists never yields a
// finding. With strict set, a flag checked on one path and absent on another
// is treated as unchecked.
func joinTag(a, b Tag, strict bool) Tag {
	switch {
	case a == b:
		return a
	case a == Unchecked || b == Unchecked:
		return Unchecked
	case strict:
		return Unchecked
	default:
		return Checked
	}
}

// AbstractState is the lattice element held at a block boundary.
// Absent keys are Top; an unreached state is Bottom everywhere.
type AbstractState struct {
	reached bool
	tags    map[cfg.ValueRef]Tag
}

// NewState returns a reached state with no tracked values
func NewState() *AbstractState {
	return &AbstractState{reached: true, tags: make(map[cfg.ValueRef]Tag)}
}

// Unreached returns the Bottom state
func Unreached() *AbstractState {
	return &AbstractState{tags: make(map[cfg.ValueRef]Tag)}
}

// Reached reports whether any path has reached this state
func (s *AbstractState) Reached() bool { return s.reached }

// Get returns the tag of a value
func (s *AbstractState) Get(ref cfg.ValueRef) Tag {
	if !s.reached {
		return Bottom
	}
	if tag, ok := s.tags[ref]; ok {
		return tag
	}
	return Top
}

func (s *AbstractState) set(ref cfg.ValueRef, tag Tag) {
	s.reached = true
	if tag == Top || tag == Bottom {
		delete(s.tags, ref)
		return
	}
	s.tags[ref] = tag
}

// Unchecked returns the values currently tagged Unchecked, in ascending order
func (s *AbstractState) Unchecked() []cfg.ValueRef {
	var refs []cfg.ValueRef
	for ref, tag := range s.tags {
		if tag == Unchecked {
			refs = append(refs, ref)
		}
	}
	slices.Sort(refs)
	return refs
}

// Tracked returns every value with a tag other than Top, in ascending order
func (s *AbstractState) Tracked() []cfg.ValueRef {
	return slices.Sorted(maps.Keys(s.tags))
}

// Clone returns an independent copy
func (s *AbstractState) Clone() *AbstractState {
	return &AbstractState{reached: s.reached, tags: maps.Clone(s.tags)}
}

// Equal reports whether two states hold the same facts
func (s *AbstractState) Equal(other *AbstractState) bool {
	return s.reached == other.reached && maps.Equal(s.tags, other.tags)
}

// Join returns the merge of two states at a control flow join point
func (s *AbstractState) Join(other *AbstractState, strict bool) *AbstractState {
	if !other.reached {
		return s.Clone()
	}
	if !s.reached {
		return other.Clone()
	}
	out := NewState()
	for ref, tag := range s.tags {
		out.set(ref, joinTag(tag, other.Get(ref), strict))
	}
	for ref, tag := range other.tags {
		if _, seen := s.tags[ref]; !seen {
			out.set(ref, joinTag(Top, tag, strict))
		}
	}
	return out
}
