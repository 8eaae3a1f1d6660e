// Package git wraps the git command line for the release repository.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kitextech/ESPNanopb/internal/command"
)

// ErrNotRepository is returned when the repository dir is not a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Repo is a git working tree driven through the git binary.
type Repo struct {
	dir    string
	runner command.Runner
}

// Open returns a Repo rooted at dir. No git command is run.
func Open(dir string, runner command.Runner) *Repo {
	return &Repo{dir: dir, runner: runner}
}

// Available checks if the directory is inside a git work tree.
func (r *Repo) Available(ctx context.Context) bool {
	_, err := r.git(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// Tags lists tag names as reported by `git tag`.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	res, err := r.git(ctx, "tag")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	var tags []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// CreateAnnotatedTag creates an annotated tag on HEAD.
func (r *Repo) CreateAnnotatedTag(ctx context.Context, name, message string) error {
	if _, err := r.git(ctx, "tag", "-a", name, "-m", message); err != nil {
		return fmt.Errorf("create tag %s: %w", name, err)
	}
	return nil
}

// PushTag pushes a single tag to remote.
func (r *Repo) PushTag(ctx context.Context, remote, name string) error {
	if _, err := r.git(ctx, "push", remote, name); err != nil {
		return fmt.Errorf("push tag %s to %s: %w", name, remote, err)
	}
	return nil
}

func (r *Repo) git(ctx context.Context, args ...string) (command.Result, error) {
	return r.runner.Run(ctx, command.Cmd{Name: "git", Args: args, Dir: r.dir})
}
