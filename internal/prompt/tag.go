// Package prompt reads and interprets operator input for the tag publisher.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrEmptyInput is returned when the operator enters no tag name.
	ErrEmptyInput = errors.New("empty tag name")
	// ErrInvalidTag is returned when a tag name fails semver validation.
	ErrInvalidTag = errors.New("invalid tag name")
)

// Action is what the publisher should do with a tag name.
type Action int

const (
	// ActionSkip leaves the repository untouched.
	ActionSkip Action = iota
	// ActionCreate creates and pushes an annotated tag.
	ActionCreate
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// TagRequest is the parsed operator decision.
type TagRequest struct {
	Action  Action
	Name    string
	Message string
}

// ParseTagName decides whether input names a tag to create. Only the
// leading prefix is inspected unless requireSemver is set, in which case
// the rest of the name must be a strict semantic version.
func ParseTagName(input, prefix string, requireSemver bool) (TagRequest, error) {
	if input == "" {
		return TagRequest{}, ErrEmptyInput
	}
	if !strings.HasPrefix(input, prefix) {
		return TagRequest{Action: ActionSkip, Name: input}, nil
	}
	if requireSemver {
		if _, err := semver.StrictNewVersion(strings.TrimPrefix(input, prefix)); err != nil {
			return TagRequest{}, fmt.Errorf("%w %q: %v", ErrInvalidTag, input, err)
		}
	}
	return TagRequest{Action: ActionCreate, Name: input}, nil
}
