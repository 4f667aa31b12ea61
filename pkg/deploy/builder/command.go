package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/tvandinther/themedist/internal/runner"
	"github.com/tvandinther/themedist/pkg/deploy"
)

// Command runs a user supplied build command line. Plain command lines are
// split into arguments and executed directly. Lines relying on the shell
// (operators, expansions, globs, variable assignments or builtins) run
// through sh -c.
type Command struct {
	Command string
	Dir     string
	Runner  runner.Runner
	Shell   string // Defaults to "sh".
}

func (c *Command) Build(ctx context.Context, sendMsg func(string)) error {
	name, args, err := c.argv()
	if err != nil {
		return err
	}

	sendMsg(fmt.Sprintf("running %s", c.Command))
	result, err := c.Runner.Run(ctx, c.Dir, name, args...)
	if err != nil {
		return fmt.Errorf("failed to run build command: %w", err)
	}
	if !result.Success() {
		return &deploy.CommandError{
			Command:  c.Command,
			ExitCode: result.ExitCode,
			Output:   result.Output,
		}
	}

	return nil
}

func (c *Command) argv() (string, []string, error) {
	line := strings.TrimSpace(c.Command)
	if line == "" {
		return "", nil, fmt.Errorf("build command is empty")
	}

	if strings.ContainsAny(line, shellMeta) {
		return c.shell(line), []string{"-c", line}, nil
	}

	parser := shellwords.NewParser()
	args, err := parser.Parse(line)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse build command %q: %w", line, err)
	}

	if parser.Position >= 0 || len(args) == 0 || strings.Contains(args[0], "=") || shellBuiltins[args[0]] {
		return c.shell(line), []string{"-c", line}, nil
	}

	return args[0], args[1:], nil
}

// Expansion and glob characters that only a shell interprets.
const shellMeta = "$`*?[~"

var shellBuiltins = map[string]bool{
	"cd": true, "export": true, "source": true, ".": true, "set": true, "unset": true, "exec": true,
}

func (c *Command) shell(line string) string {
	shell := c.Shell
	if shell == "" {
		shell = "sh"
	}
	slog.Debug("build command needs a shell", "shell", shell, "command", line)

	return shell
}

// Noop is used when no build command is configured.
type Noop struct{}

func (_ *Noop) Build(_ context.Context, sendMsg func(string)) error {
	sendMsg("no build command configured, using the source tree as is")

	return nil
}
