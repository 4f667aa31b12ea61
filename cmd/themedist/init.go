package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tvandinther/themedist/internal/config"
	"github.com/tvandinther/themedist/pkg/progress"
)

// Flags written to the config file by init, in file order.
var initKeys = []string{
	config.KeySource,
	config.KeyTarget,
	config.KeyBuild,
	config.KeyRemote,
	config.KeyBranch,
	config.KeyMessage,
	config.KeyCommit,
	config.KeyPush,
	config.KeyStrictPush,
	config.KeyPull,
	config.KeyRepository,
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write or update themedist.yaml",
		Long:  "init creates themedist.yaml with commented defaults. Values given as flags are added to an existing file; --force replaces values that are already set.",
		Args:  cobra.NoArgs,
		// The file is written, not read, so only the logger is set up.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			return setupLogger(cmd.Flags(), opts.v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultFile
			}

			reporter := progress.NewReporter(os.Stdout, os.Stderr)
			reporter.Heading("Writing configuration")

			written, err := config.WriteFile(path, initEntries(cmd.Flags()), force)
			reporter.Result(err, progress.Result{
				Success: fmt.Sprintf("wrote %s", path),
				Failure: fmt.Sprintf("failed to write %s", path),
			})
			if err != nil {
				return err
			}

			if len(written) > 0 {
				reporter.Info("set %s", strings.Join(written, ", "))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace values already present in the file")

	return cmd
}

func initEntries(fs *pflag.FlagSet) []config.Entry {
	entries := make([]config.Entry, 0, len(initKeys))
	for _, key := range initKeys {
		f := fs.Lookup(key)
		if f == nil || !f.Changed {
			continue
		}
		entries = append(entries, config.Entry{Key: key, Value: f.Value.String()})
	}

	return entries
}
