//go:build integration

// Package inttest drives the compiled aiauthor binary against a real git
// repository, exercising the integration points a VCS wrapper would invoke
// (hooks checkpoint and post-commit, with enable/disable and blame) plus the
// doctor command's interactive prompt. Grounded on the teacher's
// cmd/entire/cli/integration_test package: a pty-driven harness around a
// once-built binary, gated behind a build tag so `go test ./...` skips it by
// default.
package inttest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

var testBinaryPath string

// TestMain builds the aiauthor binary once to a temp directory and shares it
// across every test in this package.
func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "aiauthor-inttest-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir for binary: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	testBinaryPath = filepath.Join(tmpDir, "aiauthor")

	moduleRoot := findModuleRoot()
	buildCmd := exec.CommandContext(context.Background(), "go", "build", "-o", testBinaryPath, ".")
	buildCmd.Dir = filepath.Join(moduleRoot, "cmd", "aiauthor")

	if out, err := buildCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build aiauthor binary: %v\nOutput: %s\n", err, out)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func getTestBinary() string {
	if testBinaryPath == "" {
		panic("testBinaryPath not set - TestMain must run before tests")
	}
	return testBinaryPath
}

func findModuleRoot() string {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("failed to get current file path via runtime.Caller")
	}
	dir := filepath.Dir(thisFile)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find go.mod starting from " + thisFile)
		}
		dir = parent
	}
}

// initRepo creates a throwaway git repository and returns its directory.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init")
	run(t, dir, "git", "config", "user.email", "test@test.com")
	run(t, dir, "git", "config", "user.name", "Test")
	return dir
}

func writeFile(t *testing.T, dir, path, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func run(t *testing.T, dir string, name string, args ...string) string {
	t.Helper()
	cmd := exec.CommandContext(context.Background(), name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
	return string(out)
}

func runAiauthor(t *testing.T, dir string, stdin string, args ...string) string {
	t.Helper()
	cmd := exec.CommandContext(context.Background(), getTestBinary(), args...)
	cmd.Dir = dir
	if stdin != "" {
		cmd.Stdin = stringsReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("aiauthor %v: %v\n%s", args, err, out)
	}
	return string(out)
}

func stringsReader(s string) *os.File {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	go func() {
		defer w.Close()
		_, _ = w.WriteString(s)
	}()
	return r
}
