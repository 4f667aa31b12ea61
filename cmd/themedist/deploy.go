package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvandinther/themedist/internal/config"
	igit "github.com/tvandinther/themedist/internal/git"
	"github.com/tvandinther/themedist/internal/runner"
	"github.com/tvandinther/themedist/pkg/deploy"
	"github.com/tvandinther/themedist/pkg/deploy/authenticator"
	"github.com/tvandinther/themedist/pkg/deploy/builder"
	"github.com/tvandinther/themedist/pkg/deploy/copier"
	"github.com/tvandinther/themedist/pkg/deploy/reviewer"
	"github.com/tvandinther/themedist/pkg/deploy/validators"
	"github.com/tvandinther/themedist/pkg/flow"
	"github.com/tvandinther/themedist/pkg/manager"
	"github.com/tvandinther/themedist/pkg/progress"
)

func newDeployCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Build, sync, commit and push the theme (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), opts)
		},
	}
}

func runDeploy(ctx context.Context, opts *rootOptions) error {
	settings, err := config.Load(opts.v)
	if err != nil {
		return err
	}

	f, err := newFlow(settings, os.Stdout)
	if err != nil {
		return err
	}

	reporter := progress.NewReporter(os.Stdout, os.Stderr)
	_, err = manager.New(reporter, f, settings.Deploy).Deploy(ctx)

	return err
}

// newFlow assembles the strategies for settings. Build output is streamed
// to buildOutput as well as captured.
func newFlow(settings *config.Settings, buildOutput io.Writer) (*flow.Flow, error) {
	cfg := settings.Deploy

	var build deploy.Builder = &builder.Noop{}
	if cfg.BuildCommand != "" {
		build = &builder.Command{
			Command: cfg.BuildCommand,
			Dir:     cfg.BuildDir,
			Runner:  &runner.Exec{Stream: buildOutput},
		}
	}

	strategies := &flow.Strategies{
		Build:    build,
		FileCopy: &copier.Mirror{},
	}

	if cfg.Repository {
		strategies.VersionControl = newVersionControl(settings)

		review, err := newReviewer(cfg.Review)
		if err != nil {
			return nil, err
		}
		strategies.CreateReview = review
	}

	f := flow.New(strategies)
	f.AddValidator(&validators.EmptyTree{MetadataDir: cfg.MetadataDir})
	if len(cfg.RequiredPaths) > 0 {
		f.AddValidator(&validators.RequiredPaths{Paths: cfg.RequiredPaths})
	}

	return f, nil
}

func newVersionControl(settings *config.Settings) deploy.VersionControl {
	var auth deploy.Authenticator = &authenticator.None{}
	if settings.Auth.Password != "" {
		auth = &authenticator.UserPassword{
			Username: settings.Auth.Username,
			Password: settings.Auth.Password,
		}
	}

	opts := igit.Options{
		RemoteName:    settings.Deploy.RemoteName,
		Authenticator: auth,
	}

	if settings.Backend == config.BackendCLI {
		r := &runner.Exec{Env: []string{"GIT_TERMINAL_PROMPT=0"}}
		return igit.NewCLI(settings.Deploy.TargetDir, r, opts)
	}

	return igit.New(settings.Deploy.TargetDir, opts)
}

func newReviewer(cfg deploy.ReviewConfig) (deploy.Reviewer, error) {
	if cfg.Provider == "" {
		return nil, nil
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: review.url is required for %s", deploy.ErrInvalidConfig, cfg.Provider)
	}

	var (
		review deploy.Reviewer
		err    error
	)
	switch cfg.Provider {
	case "gitea":
		review, err = reviewer.NewGitea(cfg.URL, cfg.Token)
	case "gitlab":
		review, err = reviewer.NewGitlab(cfg.URL, cfg.Token)
	default:
		return nil, fmt.Errorf("%w: unknown review provider %q", deploy.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		// Reviews never block a deployment.
		slog.Warn("review disabled", "provider", cfg.Provider, "error", err)
		return nil, nil
	}

	return review, nil
}
