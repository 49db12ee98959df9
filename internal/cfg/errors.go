package cfg

import "fmt"

// EmptyFunctionError is returned when a graph would have no blocks
type EmptyFunctionError struct {
	Function string
}

func (e *EmptyFunctionError) Error() string {
	return fmt.Sprintf("function %q has no basic blocks", e.Function)
}

// InvalidBlockIDError reports a query or edge naming a block that does not exist.
// It indicates a bug in whatever built the graph.
type InvalidBlockIDError struct {
	Function string
	ID       int
	Len      int
}

func (e *InvalidBlockIDError) Error() string {
	return fmt.Sprintf("function %q: block id %d out of range [0, %d)", e.Function, e.ID, e.Len)
}
