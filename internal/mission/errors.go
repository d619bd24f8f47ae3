package mission

import "fmt"

// MissingParameterError reports an element without one of its required parameters.
type MissingParameterError struct {
	Index int
	Name  string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("mission element %d: missing required parameter %q", e.Index, e.Name)
}

// InvalidElementError reports an element whose shape cannot be compiled.
type InvalidElementError struct {
	Index  int
	Reason string
}

func (e *InvalidElementError) Error() string {
	return fmt.Sprintf("mission element %d: %s", e.Index, e.Reason)
}
