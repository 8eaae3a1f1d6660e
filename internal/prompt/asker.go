package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Asker asks the operator a question and returns one line of input.
type Asker interface {
	Ask(ctx context.Context, label string) (string, error)
}

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// Terminal reads answers line by line from an input stream.
type Terminal struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewTerminal returns a Terminal reading from in and printing labels to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, lines: make(chan lineResult)}
}

// Ask prints label and blocks until a full line is read or ctx is done. The
// line ending is stripped and nothing else. EOF before any input yields an
// empty answer.
func (t *Terminal) Ask(ctx context.Context, label string) (string, error) {
	if _, err := fmt.Fprint(t.out, labelStyle.Render(label)); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	t.once.Do(func() { go t.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-t.lines:
		if !ok {
			return "", nil
		}
		if res.err != nil {
			return "", fmt.Errorf("read answer: %w", res.err)
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	}
}

// readLines feeds t.lines until the input ends. A pending line survives a
// cancelled Ask and is handed to the next one.
func (t *Terminal) readLines() {
	defer close(t.lines)
	for {
		line, err := t.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			t.lines <- lineResult{err: err}
			return
		}
		if line != "" || err == nil {
			t.lines <- lineResult{line: line}
		}
		if err != nil {
			return
		}
	}
}

// Scripted answers questions from a fixed list, in order.
type Scripted struct {
	answers []string
}

// NewScripted returns an Asker replaying answers.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

// Ask returns the next answer, or an empty one when the script is exhausted.
func (s *Scripted) Ask(_ context.Context, _ string) (string, error) {
	if len(s.answers) == 0 {
		return "", nil
	}
	next := s.answers[0]
	s.answers = s.answers[1:]
	return next, nil
}
