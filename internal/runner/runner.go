package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

type Result struct {
	ExitCode int
	Output   string
}

func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes an external command to completion. A non-zero exit is not
// an error; err is only set when the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// Exec runs commands with os/exec. Combined output is captured and, when
// Stream is set, also written to Stream as it is produced.
type Exec struct {
	Stream io.Writer
	Env    []string
}

func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	var buf lockedBuffer
	var out io.Writer = &buf
	if e.Stream != nil {
		out = io.MultiWriter(&buf, e.Stream)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	slog.Debug("running command", "dir", dir, "command", Format(name, args...))

	err := cmd.Run()
	result := Result{Output: buf.String()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// Killed by a signal, usually context cancellation.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("command %q interrupted: %w", Format(name, args...), ctxErr)
			}
			result.ExitCode = 1
		}
		slog.Debug("command exited", "command", name, "exitCode", result.ExitCode)

		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to run %q: %w", Format(name, args...), err)
	}

	return result, nil
}

// Format renders a command line for display.
func Format(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(name))
	for _, arg := range args {
		parts = append(parts, quote(arg))
	}

	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"'$&|;<>*?") {
		return fmt.Sprintf("%q", s)
	}

	return s
}

// stdout and stderr share the buffer and may be written concurrently.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
