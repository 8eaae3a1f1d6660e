package release

import (
	"context"
	"strings"
	"sync"

	"github.com/kitextech/ESPNanopb/internal/command"
)

// fakeRunner answers commands by prefix of their rendered command line.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []command.Cmd
	fail   map[string]error
	stdout map[string]string
	hook   func(command.Cmd)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{fail: map[string]error{}, stdout: map[string]string{}}
}

func (f *fakeRunner) Run(_ context.Context, cmd command.Cmd) (command.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	line := cmd.String()
	for prefix, err := range f.fail {
		if strings.HasPrefix(line, prefix) {
			return command.Result{ExitCode: 1, Stderr: err.Error()}, err
		}
	}
	if f.hook != nil {
		f.hook(cmd)
	}
	var res command.Result
	for prefix, out := range f.stdout {
		if line == prefix {
			res.Stdout = out
		}
	}
	return res, nil
}

func (f *fakeRunner) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.String())
	}
	return out
}

func (f *fakeRunner) ran(prefix string) bool {
	for _, line := range f.lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

type countingAsker struct {
	answers []string
	labels  []string
}

func (a *countingAsker) Ask(_ context.Context, label string) (string, error) {
	a.labels = append(a.labels, label)
	if len(a.answers) == 0 {
		return "", nil
	}
	next := a.answers[0]
	a.answers = a.answers[1:]
	return next, nil
}

type stageEntry struct {
	stage, status, detail string
}

type memRecorder struct {
	started  []string
	stages   []stageEntry
	finished map[string][2]string
}

func newMemRecorder() *memRecorder {
	return &memRecorder{finished: map[string][2]string{}}
}

func (r *memRecorder) StartRun(_ context.Context, runID, _ string) error {
	r.started = append(r.started, runID)
	return nil
}

func (r *memRecorder) RecordStage(_ context.Context, _ string, stage, status, detail string) error {
	r.stages = append(r.stages, stageEntry{stage: stage, status: status, detail: detail})
	return nil
}

func (r *memRecorder) FinishRun(_ context.Context, runID, status, tag string) error {
	r.finished[runID] = [2]string{status, tag}
	return nil
}
