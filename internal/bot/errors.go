package bot

import (
	"errors"
	"fmt"
)

// ErrTerminated is returned by Run when the operator chose to exit
var ErrTerminated = errors.New("terminated by operator")

// ClassificationError means the asset set cannot identify a state. With a
// well-formed asset directory this is unreachable, so it is never retried.
type ClassificationError struct {
	TemplateID string
	Reason     string
}

func (e *ClassificationError) Error() string {
	if e.TemplateID == "" {
		return fmt.Sprintf("classification failed: %s", e.Reason)
	}
	return fmt.Sprintf("classification failed: %s (template %s)", e.Reason, e.TemplateID)
}
