package requirements

import (
	"fmt"

	"feedcore/pkg/domain"
)

// ResolutionError is a typed, terminal requirements failure. Details carry
// the keys and values that were looked for.
type ResolutionError struct {
	Kind      domain.ErrorKind  `json:"error"`
	Message   string            `json:"message"`
	Selectors domain.Selectors  `json:"selectors"`
	Details   map[string]string `json:"details,omitempty"`
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind domain.ErrorKind, sel domain.Selectors, details map[string]string, format string, args ...any) *ResolutionError {
	return &ResolutionError{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Selectors: sel,
		Details:   details,
	}
}
