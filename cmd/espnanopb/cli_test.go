package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kitextech/ESPNanopb/internal/git"
	"github.com/kitextech/ESPNanopb/internal/logging"
	"github.com/kitextech/ESPNanopb/internal/prompt"
	"github.com/kitextech/ESPNanopb/internal/release"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGenerator = `#!/bin/sh
echo "generating"
printf 'int bridge;\n' > schema.pb.c
printf 'extern int bridge;\n' > schema.pb.h
`

func executeCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root, err := newRootCmd()
	require.NoError(t, err)
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), err
}

// newWorkspace lays out a proto dir with a generator script, a library git
// repository with a bare origin, and a config file in the workspace root.
func newWorkspace(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	lib := filepath.Join(root, "ESP32Utils")
	remote := filepath.Join(root, "origin.git")

	writeTestFile(t, filepath.Join(root, "generateSchema.sh"), testGenerator)
	require.NoError(t, os.MkdirAll(filepath.Join(lib, "src", "ProtobufBridge"), 0o755))
	runGit(t, ctx, root, "init", "--bare", remote)
	runGit(t, ctx, lib, "init")
	runGit(t, ctx, lib, "config", "user.email", "dev@example.com")
	runGit(t, ctx, lib, "config", "user.name", "Dev")
	runGit(t, ctx, lib, "config", "commit.gpgsign", "false")
	runGit(t, ctx, lib, "config", "tag.gpgsign", "false")
	writeTestFile(t, filepath.Join(lib, "library.json"), "{}\n")
	runGit(t, ctx, lib, "add", "library.json")
	runGit(t, ctx, lib, "commit", "-m", "chore: seed library")
	runGit(t, ctx, lib, "remote", "add", "origin", remote)

	_, err := executeCLI(t, "", "--dir", root, "init",
		"--destination", filepath.Join("ESP32Utils", "src", "ProtobufBridge"),
		"--repository", "ESP32Utils")
	require.NoError(t, err)
	return root
}

func TestPublish_Interactive(t *testing.T) {
	root := newWorkspace(t)

	out, err := executeCLI(t, "v0.1.0\nfirst cut\n", "--dir", root, "publish")
	require.NoError(t, err)

	assert.Contains(t, out, "generating")
	assert.Contains(t, out, "existing tags:")
	assert.Contains(t, out, "new tag name: (string without starting v to skip)")
	assert.Contains(t, out, "message to add:")
	assert.Contains(t, out, "tag v0.1.0 pushed")

	for _, name := range []string{"schema.pb.c", "schema.pb.h"} {
		want, err := os.ReadFile(filepath.Join(root, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(root, "ESP32Utils", "src", "ProtobufBridge", name))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	remoteTags := runGit(t, context.Background(), filepath.Join(root, "origin.git"), "tag", "-n1")
	assert.Contains(t, remoteTags, "v0.1.0")
	assert.Contains(t, remoteTags, "first cut")

	out, err = executeCLI(t, "", "--dir", root, "tags")
	require.NoError(t, err)
	assert.Equal(t, "v0.1.0\n", out)

	out, err = executeCLI(t, "", "--dir", root, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "v0.1.0")
	assert.Contains(t, out, "publish:ok")
}

func TestPublish_SkipWithFlag(t *testing.T) {
	root := newWorkspace(t)

	out, err := executeCLI(t, "", "--dir", root, "publish", "--tag", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "tagging skipped")
	assert.NotContains(t, out, "new tag name:")
	assert.Empty(t, strings.TrimSpace(runGit(t, context.Background(), filepath.Join(root, "ESP32Utils"), "tag")))
}

func TestPublish_EmptyInputFails(t *testing.T) {
	root := newWorkspace(t)

	_, err := executeCLI(t, "\n", "--dir", root, "publish")
	require.Error(t, err)
	assert.ErrorIs(t, err, prompt.ErrEmptyInput)
}

// promptWatcher closes seen once the tag name question has been written.
type promptWatcher struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	seen chan struct{}
	once sync.Once
}

func (w *promptWatcher) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if strings.Contains(w.buf.String(), "new tag name:") {
		w.once.Do(func() { close(w.seen) })
	}
	return n, err
}

func TestPublish_InterruptedAtPrompt(t *testing.T) {
	root := newWorkspace(t)
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd, err := newRootCmd()
	require.NoError(t, err)
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	out := &promptWatcher{seen: make(chan struct{})}
	cmd.SetIn(pr)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--dir", root, "publish"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case <-out.seen:
	case <-time.After(30 * time.Second):
		t.Fatal("tag prompt never shown")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("publish still waiting at the prompt after interrupt")
	}
	assert.Empty(t, strings.TrimSpace(runGit(t, context.Background(), filepath.Join(root, "ESP32Utils"), "tag")))
}

func TestTags_Lists(t *testing.T) {
	root := newWorkspace(t)
	runGit(t, context.Background(), filepath.Join(root, "ESP32Utils"), "tag", "-a", "v0.0.1", "-m", "seed")

	out, err := executeCLI(t, "", "--dir", root, "tags")
	require.NoError(t, err)
	assert.Equal(t, "v0.0.1\n", out)
}

func TestTags_NotARepository(t *testing.T) {
	root := newWorkspace(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plain"), 0o755))
	_, err := executeCLI(t, "", "--dir", root, "init", "--destination", "plain", "--repository", "plain", "--force")
	require.NoError(t, err)

	_, err = executeCLI(t, "", "--dir", root, "tags")
	require.Error(t, err)
	assert.ErrorIs(t, err, git.ErrNotRepository)
	kind, ok := release.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, release.ListTagsFailed, kind)
}

func TestGitRunner_MirrorsOnlyInDebug(t *testing.T) {
	t.Cleanup(func() { logging.InitWriter(io.Discard, false) })
	cmd, err := newRootCmd()
	require.NoError(t, err)

	logging.InitWriter(io.Discard, false)
	quiet := gitRunner(cmd)
	assert.Nil(t, quiet.Stdout)
	assert.Nil(t, quiet.Stderr)

	logging.InitWriter(io.Discard, true)
	loud := gitRunner(cmd)
	assert.NotNil(t, loud.Stdout)
	assert.NotNil(t, loud.Stderr)
}

func TestTag_DuplicateFails(t *testing.T) {
	root := newWorkspace(t)

	_, err := executeCLI(t, "", "--dir", root, "tag", "--tag", "v1.0.0", "--message", "one")
	require.NoError(t, err)
	_, err = executeCLI(t, "", "--dir", root, "tag", "--tag", "v1.0.0", "--message", "two")
	require.Error(t, err)

	kind, ok := release.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, release.TagFailed, kind)
}

func TestGenerateFailure_StopsInStrictMode(t *testing.T) {
	root := newWorkspace(t)
	writeTestFile(t, filepath.Join(root, "generateSchema.sh"), "echo protoc missing >&2\nexit 4\n")

	_, err := executeCLI(t, "", "--dir", root, "publish", "--tag", "v9.9.9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, release.GeneratorFailed))
	assert.Empty(t, strings.TrimSpace(runGit(t, context.Background(), filepath.Join(root, "ESP32Utils"), "tag")))
}

func TestDistribute_BestEffortModeFlag(t *testing.T) {
	root := newWorkspace(t)

	_, err := executeCLI(t, "", "--dir", root, "--mode", "best-effort", "distribute")
	require.Error(t, err)
	assert.ErrorIs(t, err, release.CopyFailed)
	assert.Contains(t, err.Error(), "schema.pb.c")
	assert.Contains(t, err.Error(), "schema.pb.h")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	root := newWorkspace(t)

	_, err := executeCLI(t, "", "--dir", root, "init", "--destination", "x", "--repository", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCLI(t, "", "--dir", root, "init", "--destination", "x", "--repository", "y", "--force")
	require.NoError(t, err)
}

func TestHistory_Empty(t *testing.T) {
	root := newWorkspace(t)

	out, err := executeCLI(t, "", "--dir", root, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
}

func runGit(t *testing.T, ctx context.Context, dir string, args ...string) string {
	t.Helper()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}
