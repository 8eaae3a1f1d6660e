package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kitextech/ESPNanopb/internal/config"
	"github.com/kitextech/ESPNanopb/internal/git"
	"github.com/kitextech/ESPNanopb/internal/prompt"
	"github.com/rs/zerolog/log"
)

// Tagger is the subset of repository operations the publisher needs.
type Tagger interface {
	Available(ctx context.Context) bool
	Tags(ctx context.Context) ([]string, error)
	CreateAnnotatedTag(ctx context.Context, name, message string) error
	PushTag(ctx context.Context, remote, name string) error
}

// State is a step of the tag publisher.
type State int

const (
	StateListTags State = iota
	StatePrompt
	StateTagMessage
	StateTagAndPush
	StateDone
)

func (s State) String() string {
	switch s {
	case StateListTags:
		return "LIST_TAGS"
	case StatePrompt:
		return "PROMPT"
	case StateTagMessage:
		return "TAG_MESSAGE"
	case StateTagAndPush:
		return "TAG_AND_PUSH"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is what the publisher observed and did.
type Outcome struct {
	Tags    []string
	Request prompt.TagRequest
	Created bool
	Pushed  bool
}

// Publisher lists tags, asks for a new one and publishes it.
type Publisher struct {
	repo          Tagger
	dir           string
	asker         prompt.Asker
	out           io.Writer
	remote        string
	prefix        string
	requireSemver bool
	mode          config.Mode
}

// NewPublisher returns a Publisher configured from cfg.
func NewPublisher(repo Tagger, asker prompt.Asker, out io.Writer, cfg config.Config) *Publisher {
	if out == nil {
		out = io.Discard
	}
	return &Publisher{
		repo:          repo,
		dir:           cfg.Repository.Dir,
		asker:         asker,
		out:           out,
		remote:        cfg.Repository.Remote,
		prefix:        cfg.Tag.Prefix,
		requireSemver: cfg.Tag.RequireSemver,
		mode:          cfg.Mode,
	}
}

// NameLabel is the question asked for the tag name.
func (p *Publisher) NameLabel() string {
	return fmt.Sprintf("new tag name: (string without starting %s to skip) ", p.prefix)
}

// MessageLabel is the question asked for the tag annotation.
func (p *Publisher) MessageLabel() string {
	return "message to add: "
}

// Publish walks the publisher states until DONE. In strict mode the first
// failure is returned immediately; otherwise failures are collected and the
// remaining states still run.
func (p *Publisher) Publish(ctx context.Context) (Outcome, error) {
	var (
		out  Outcome
		errs []error
	)
	fail := func(err *StageError) bool {
		errs = append(errs, err)
		if p.mode.Strict() {
			return true
		}
		log.Warn().Err(err).Msg("continuing after failure")
		return false
	}

	for state := StateListTags; state != StateDone; {
		log.Debug().Stringer("state", state).Msg("tag publisher")
		switch state {
		case StateListTags:
			if !p.repo.Available(ctx) {
				if fail(&StageError{Kind: ListTagsFailed, Target: p.dir, Err: git.ErrNotRepository}) {
					return out, errors.Join(errs...)
				}
				p.renderTags(nil)
				state = StatePrompt
				continue
			}
			tags, err := p.repo.Tags(ctx)
			if err != nil && fail(&StageError{Kind: ListTagsFailed, Err: err}) {
				return out, errors.Join(errs...)
			}
			out.Tags = tags
			p.renderTags(tags)
			state = StatePrompt

		case StatePrompt:
			answer, err := p.asker.Ask(ctx, p.NameLabel())
			if err != nil {
				errs = append(errs, &StageError{Kind: InvalidInput, Err: err})
				return out, errors.Join(errs...)
			}
			req, err := prompt.ParseTagName(answer, p.prefix, p.requireSemver)
			if err != nil {
				errs = append(errs, &StageError{Kind: InvalidInput, Target: answer, Err: err})
				return out, errors.Join(errs...)
			}
			out.Request = req
			if req.Action != prompt.ActionCreate {
				log.Info().Str("input", req.Name).Msg("no tag requested, skipping")
				state = StateDone
				continue
			}
			state = StateTagMessage

		case StateTagMessage:
			msg, err := p.asker.Ask(ctx, p.MessageLabel())
			if err != nil {
				errs = append(errs, &StageError{Kind: InvalidInput, Target: out.Request.Name, Err: err})
				return out, errors.Join(errs...)
			}
			out.Request.Message = msg
			state = StateTagAndPush

		case StateTagAndPush:
			name := out.Request.Name
			if err := p.repo.CreateAnnotatedTag(ctx, name, out.Request.Message); err != nil {
				if fail(&StageError{Kind: TagFailed, Target: name, Err: err}) {
					return out, errors.Join(errs...)
				}
			} else {
				out.Created = true
				log.Info().Str("tag", name).Msg("tag created")
			}
			if err := p.repo.PushTag(ctx, p.remote, name); err != nil {
				if fail(&StageError{Kind: PushFailed, Target: name, Err: err}) {
					return out, errors.Join(errs...)
				}
			} else {
				out.Pushed = true
				log.Info().Str("tag", name).Str("remote", p.remote).Msg("tag pushed")
			}
			state = StateDone
		}
	}
	return out, errors.Join(errs...)
}

var (
	tagsHeaderStyle = lipgloss.NewStyle().Bold(true)
	tagStyle        = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("10"))
	noTagsStyle     = lipgloss.NewStyle().PaddingLeft(2).Faint(true)
)

func (p *Publisher) renderTags(tags []string) {
	var b strings.Builder
	b.WriteString(tagsHeaderStyle.Render("existing tags:"))
	b.WriteString("\n")
	if len(tags) == 0 {
		b.WriteString(noTagsStyle.Render("(none)"))
		b.WriteString("\n")
	}
	for _, tag := range tags {
		b.WriteString(tagStyle.Render(tag))
		b.WriteString("\n")
	}
	_, _ = io.WriteString(p.out, b.String())
}
