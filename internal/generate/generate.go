// Package generate invokes the external schema generation script.
package generate

import (
	"context"
	"path/filepath"

	"github.com/kitextech/ESPNanopb/internal/command"
	"github.com/kitextech/ESPNanopb/internal/config"
)

// Generator runs the configured script through a shell.
type Generator struct {
	runner command.Runner
	cfg    config.Generator
}

// New returns a Generator for cfg.
func New(runner command.Runner, cfg config.Generator) *Generator {
	return &Generator{runner: runner, cfg: cfg}
}

// Command is the invocation Run performs.
func (g *Generator) Command() command.Cmd {
	args := append([]string{g.cfg.Script}, g.cfg.Args...)
	return command.Cmd{Name: g.cfg.Shell, Args: args, Dir: g.cfg.Dir}
}

// Run executes the script and waits for it to exit.
func (g *Generator) Run(ctx context.Context) (command.Result, error) {
	return g.runner.Run(ctx, g.Command())
}

// Outputs lists where the artifacts are expected once the script succeeds.
func Outputs(artifacts config.Artifacts) []string {
	out := make([]string, 0, len(artifacts.Files))
	for _, name := range artifacts.Files {
		out = append(out, filepath.Join(artifacts.SourceDir, name))
	}
	return out
}
