package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tvandinther/themedist/internal/config"
	"github.com/tvandinther/themedist/pkg/deploy"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	v          *viper.Viper
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:           "themedist",
		Short:         "Build a Shopify theme and deploy it to a distribution repository",
		Long:          "themedist builds a theme, mirrors the output into a distribution working tree and commits and pushes the result.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := config.ReadFile(opts.v, opts.configPath, "."); err != nil {
				return err
			}

			return setupLogger(cmd.Flags(), opts.v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), opts)
		},
	}

	bindFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(
		newDeployCommand(opts),
		newInitCommand(opts),
	)
	cmd.Example = `  # Build with npm and deploy to ../theme-dist on the production branch
  themedist --source shopify --target ../theme-dist --build "npm run build" --branch production

  # Mirror into a plain directory without git
  themedist --target ./dist --repository=false

  # Write a themedist.yaml with the given values
  themedist init --target ../theme-dist --remote git@github.com:acme/theme-dist.git`

	return cmd
}

func bindFlags(fs *pflag.FlagSet, opts *rootOptions) {
	defaults := deploy.NewConfig()

	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to a config file (default ./themedist.yaml)")
	fs.StringP(config.KeySource, "s", "", "Built theme directory to deploy")
	fs.StringP(config.KeyTarget, "t", "", "Distribution working tree to mirror into")
	fs.StringP(config.KeyRemote, "r", "", "Remote URL of the distribution repository")
	fs.StringP(config.KeyBuild, "b", "", "Build command run before deploying")
	fs.String(config.KeyBranch, "", "Dedicated deployment branch, created when missing")
	fs.StringP(config.KeyMessage, "m", defaults.CommitMessage, "Commit message, combined with a timestamp")
	fs.Bool(config.KeyCommit, defaults.AutoCommit, "Commit staged changes")
	fs.Bool(config.KeyPush, defaults.AutoPush, "Push the commit to the remote")
	fs.Bool(config.KeyStrictPush, defaults.StrictPush, "Fail the run when the push fails")
	fs.Bool(config.KeyPull, defaults.Pull, "Pull the branch before syncing when the target already exists")
	fs.Bool(config.KeyRepository, defaults.Repository, "Manage the target as a git repository")
	fs.String(config.KeyLogLevel, "info", "Log level (debug, info, warn, error)")
}

// setupLogger configures slog on stderr so stdout carries only progress.
// LOG_LEVEL is honoured when the flag is not set.
func setupLogger(fs *pflag.FlagSet, v *viper.Viper) error {
	level := v.GetString(config.KeyLogLevel)
	if env, ok := os.LookupEnv("LOG_LEVEL"); ok && !fs.Changed(config.KeyLogLevel) {
		level = env
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Debug("logger initialised", "logLevel", logLevel)

	return nil
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}

	var stepErr *deploy.StepError
	if errors.As(err, &stepErr) {
		// Already reported with its command output.
		return
	}

	message := err.Error()
	if errors.Is(err, context.Canceled) {
		message = fmt.Sprintf("%s\nHint: the run was interrupted; the target may be partially synced.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
