package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tvandinther/themedist/internal/runner"
	"github.com/tvandinther/themedist/pkg/deploy"
)

// CLI drives the git binary. Credentials come from the user's git
// configuration (credential helpers, ssh agent).
type CLI struct {
	Dir        string
	RemoteName string
	Binary     string
	Runner     runner.Runner
}

func NewCLI(dir string, r runner.Runner, opts Options) *CLI {
	remoteName := opts.RemoteName
	if remoteName == "" {
		remoteName = deploy.DefaultRemoteName
	}

	return &CLI{
		Dir:        dir,
		RemoteName: remoteName,
		Binary:     "git",
		Runner:     r,
	}
}

func (c *CLI) run(ctx context.Context, args ...string) (runner.Result, error) {
	result, err := c.Runner.Run(ctx, c.Dir, c.Binary, args...)
	if err != nil {
		return result, fmt.Errorf("failed to run git: %w", err)
	}

	return result, nil
}

// must runs a git command that is expected to succeed.
func (c *CLI) must(ctx context.Context, args ...string) (string, error) {
	result, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return result.Output, &deploy.CommandError{
			Command:  runner.Format(c.Binary, args...),
			ExitCode: result.ExitCode,
			Output:   result.Output,
		}
	}

	return strings.TrimSpace(result.Output), nil
}

// probe runs a command whose exit status answers a yes/no question: 0 is
// yes, 1 is no, anything else is an error.
func (c *CLI) probe(ctx context.Context, args ...string) (bool, error) {
	result, err := c.run(ctx, args...)
	if err != nil {
		return false, err
	}

	switch result.ExitCode {
	case 0:
		return true, nil
	case 1:
		return false, nil
	default:
		return false, &deploy.CommandError{
			Command:  runner.Format(c.Binary, args...),
			ExitCode: result.ExitCode,
			Output:   result.Output,
		}
	}
}

func (c *CLI) IsRepository(_ context.Context) (bool, error) {
	_, err := os.Stat(filepath.Join(c.Dir, ".git"))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat repository metadata: %w", err)
	}

	return true, nil
}

func (c *CLI) Init(ctx context.Context, branch string) error {
	if _, err := c.must(ctx, "init"); err != nil {
		return fmt.Errorf("failed to initialise repository: %w", err)
	}
	if _, err := c.must(ctx, "symbolic-ref", "HEAD", "refs/heads/"+branch); err != nil {
		return fmt.Errorf("failed to point HEAD at %s: %w", branch, err)
	}

	return nil
}

func (c *CLI) remoteURL(ctx context.Context) (string, bool, error) {
	result, err := c.run(ctx, "remote", "get-url", c.RemoteName)
	if err != nil {
		return "", false, err
	}
	if !result.Success() {
		return "", false, nil
	}

	return strings.TrimSpace(result.Output), true, nil
}

func (c *CLI) EnsureRemote(ctx context.Context, url string) error {
	current, ok, err := c.remoteURL(ctx)
	if err != nil {
		return err
	}

	switch {
	case !ok:
		_, err = c.must(ctx, "remote", "add", c.RemoteName, url)
	case current != url:
		slog.Debug("updating remote url", "remote", c.RemoteName, "from", current, "to", url)
		_, err = c.must(ctx, "remote", "set-url", c.RemoteName, url)
	}
	if err != nil {
		return fmt.Errorf("failed to register remote %s: %w", c.RemoteName, err)
	}

	return nil
}

func (c *CLI) Fetch(ctx context.Context) error {
	_, ok, err := c.remoteURL(ctx)
	if err != nil || !ok {
		return err
	}

	if _, err := c.must(ctx, "fetch", c.RemoteName); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", c.RemoteName, err)
	}

	return nil
}

func (c *CLI) Pull(ctx context.Context, branch string) error {
	_, ok, err := c.remoteURL(ctx)
	if err != nil || !ok {
		return err
	}

	out, err := c.must(ctx, "pull", "--ff-only", c.RemoteName, branch)
	if err != nil {
		if strings.Contains(out, "couldn't find remote ref") {
			slog.Debug("remote branch not found, nothing to pull", "branch", branch)
			return nil
		}
		return fmt.Errorf("failed to pull %s from %s: %w", branch, c.RemoteName, err)
	}

	return nil
}

func (c *CLI) BranchExists(ctx context.Context, branch string) (bool, error) {
	for _, ref := range []string{
		"refs/heads/" + branch,
		"refs/remotes/" + c.RemoteName + "/" + branch,
	} {
		ok, err := c.probe(ctx, "show-ref", "--verify", "--quiet", ref)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (c *CLI) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.must(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to read current branch: %w", err)
	}

	return out, nil
}

func (c *CLI) localExists(ctx context.Context, branch string) (bool, error) {
	return c.probe(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
}

func (c *CLI) unborn(ctx context.Context) (bool, error) {
	ok, err := c.probe(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		return false, err
	}

	return !ok, nil
}

func (c *CLI) Checkout(ctx context.Context, branch string, create bool) error {
	local, err := c.localExists(ctx, branch)
	if err != nil {
		return err
	}

	if local {
		current, err := c.CurrentBranch(ctx)
		if err == nil && current == branch {
			return nil
		}
		_, err = c.must(ctx, "checkout", "-f", branch)
		return wrapCheckout(branch, err)
	}

	remote, err := c.probe(ctx, "show-ref", "--verify", "--quiet", "refs/remotes/"+c.RemoteName+"/"+branch)
	if err != nil {
		return err
	}
	if remote {
		_, err = c.must(ctx, "checkout", "-f", "-B", branch, "--track", c.RemoteName+"/"+branch)
		return wrapCheckout(branch, err)
	}

	if !create {
		return fmt.Errorf("%w: %s", deploy.ErrNoBranch, branch)
	}

	unborn, err := c.unborn(ctx)
	if err != nil {
		return err
	}
	if unborn {
		_, err = c.must(ctx, "symbolic-ref", "HEAD", "refs/heads/"+branch)
		return wrapCheckout(branch, err)
	}

	_, err = c.must(ctx, "checkout", "-b", branch)

	return wrapCheckout(branch, err)
}

func wrapCheckout(branch string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}

	return nil
}

func (c *CLI) StageAll(ctx context.Context) error {
	if _, err := c.must(ctx, "add", "-A", "."); err != nil {
		return fmt.Errorf("failed to add files: %w", err)
	}

	return nil
}

// HasStagedChanges uses the exit status of git diff --staged --quiet, which
// is 0 when the index matches HEAD.
func (c *CLI) HasStagedChanges(ctx context.Context) (bool, error) {
	same, err := c.probe(ctx, "diff", "--staged", "--quiet")
	if err != nil {
		return false, err
	}

	return !same, nil
}

func (c *CLI) Commit(ctx context.Context, message string, author deploy.Author) (string, error) {
	args := make([]string, 0, 8)
	if author.Name != "" {
		args = append(args, "-c", "user.name="+author.Name)
	}
	if author.Email != "" {
		args = append(args, "-c", "user.email="+author.Email)
	}
	args = append(args, "commit", "-m", message)

	if _, err := c.must(ctx, args...); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	hash, err := c.must(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve commit: %w", err)
	}

	return hash, nil
}

func (c *CLI) Push(ctx context.Context, branch string, setUpstream bool) error {
	_, ok, err := c.remoteURL(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return deploy.ErrNoRemote
	}

	args := []string{"push"}
	if setUpstream {
		args = append(args, "-u")
	}
	args = append(args, c.RemoteName, branch)

	if _, err := c.must(ctx, args...); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}
