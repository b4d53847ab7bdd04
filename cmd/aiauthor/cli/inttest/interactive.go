//go:build integration

package inttest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

// runInteractive executes the aiauthor binary under a pty so tests can drive
// huh's interactive prompts (the doctor command's stale-lock confirmation),
// mirroring the teacher's RunCommandInteractive.
func runInteractive(dir string, args []string, respond func(ptyFile *os.File) string) (string, error) {
	cmd := exec.Command(getTestBinary(), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM=xterm")

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to start pty: %w", err)
	}
	defer ptmx.Close()

	var respondOutput string
	respondDone := make(chan struct{})
	go func() {
		defer close(respondDone)
		respondOutput = respond(ptmx)
	}()

	select {
	case <-respondDone:
	case <-time.After(10 * time.Second):
	}

	var remaining bytes.Buffer
	remainingDone := make(chan struct{})
	go func() {
		defer close(remainingDone)
		_, _ = io.Copy(&remaining, ptmx)
	}()

	cmdDone := make(chan error, 1)
	go func() {
		cmdDone <- cmd.Wait()
	}()

	var cmdErr error
	select {
	case cmdErr = <-cmdDone:
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		cmdErr = fmt.Errorf("process timed out")
	}

	select {
	case <-remainingDone:
	case <-time.After(1 * time.Second):
	}

	return respondOutput + remaining.String(), cmdErr
}

// waitForPromptAndRespond reads from ptyFile until promptSubstring appears,
// then writes response.
func waitForPromptAndRespond(ptyFile *os.File, promptSubstring, response string, timeout time.Duration) (string, error) {
	var output bytes.Buffer
	buf := make([]byte, 1024)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		_ = ptyFile.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := ptyFile.Read(buf)
		if n > 0 {
			output.Write(buf[:n])
			if strings.Contains(output.String(), promptSubstring) {
				_, _ = ptyFile.WriteString(response)
				return output.String(), nil
			}
		}
		if err != nil && !os.IsTimeout(err) {
			return output.String(), err
		}
	}
	return output.String(), fmt.Errorf("timeout waiting for prompt containing %q", promptSubstring)
}
