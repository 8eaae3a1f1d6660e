// Package command runs external programs and reports their outcome.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Cmd is a single external program invocation.
type Cmd struct {
	Name string
	Args []string
	Dir  string
}

// String renders the command line for logs and errors.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured outcome of a command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Cmd    Cmd
	Result Result
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Cmd, e.Result.ExitCode)
	if detail := strings.TrimSpace(e.Result.Stderr); detail != "" {
		msg += ": " + detail
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec. Output is always captured and is
// additionally mirrored to Stdout and Stderr when they are set.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	log.Debug().Str("dir", c.Dir).Str("cmd", c.Name).Strs("args", c.Args).Msg("running command")

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = tee(&stdout, r.Stdout)
	cmd.Stderr = tee(&stderr, r.Stderr)

	started := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		failure := &ExitError{Cmd: c, Result: res, Err: err}
		log.Warn().Err(failure).Str("dir", c.Dir).Str("cmd", c.Name).Strs("args", c.Args).Msg("command failed")
		return res, failure
	}

	res.ExitCode = -1
	log.Warn().Err(err).Str("dir", c.Dir).Str("cmd", c.Name).Strs("args", c.Args).Msg("command did not start")
	return res, fmt.Errorf("%s: %w", c, err)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
