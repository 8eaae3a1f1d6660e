// Package release runs the generate, distribute and publish stages.
package release

import (
	"errors"
	"fmt"
)

// Kind classifies a stage failure.
type Kind int

const (
	// GeneratorFailed means the schema generation script failed.
	GeneratorFailed Kind = iota + 1
	// CopyFailed means an artifact could not be copied to the destination.
	CopyFailed
	// ListTagsFailed means the existing tags could not be listed.
	ListTagsFailed
	// TagFailed means the annotated tag could not be created.
	TagFailed
	// PushFailed means the tag could not be pushed to the remote.
	PushFailed
	// InvalidInput means the operator input was empty or malformed.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case GeneratorFailed:
		return "generator failed"
	case CopyFailed:
		return "copy failed"
	case ListTagsFailed:
		return "list tags failed"
	case TagFailed:
		return "tag failed"
	case PushFailed:
		return "push failed"
	case InvalidInput:
		return "invalid input"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error lets a Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// StageError is a failure of a single step, tagged with its Kind.
type StageError struct {
	Kind Kind
	// Target is the artifact or tag the step worked on, if any.
	Target string
	Err    error
}

func (e *StageError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches a Kind target.
func (e *StageError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first StageError in err's tree.
func KindOf(err error) (Kind, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind, true
	}
	return 0, false
}
