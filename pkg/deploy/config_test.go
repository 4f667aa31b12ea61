package deploy

import (
	"errors"
	"path/filepath"
	"testing"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	cfg := NewConfig()
	cfg.SourceDir = filepath.Join(root, "shopify")
	cfg.TargetDir = filepath.Join(root, "theme-dist")

	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "missing source", mutate: func(c *Config) { c.SourceDir = "" }, wantErr: true},
		{name: "missing target", mutate: func(c *Config) { c.TargetDir = "" }, wantErr: true},
		{name: "same directory", mutate: func(c *Config) { c.TargetDir = c.SourceDir }, wantErr: true},
		{name: "target inside source", mutate: func(c *Config) { c.TargetDir = filepath.Join(c.SourceDir, "dist") }, wantErr: true},
		{name: "source inside target", mutate: func(c *Config) { c.SourceDir = filepath.Join(c.TargetDir, "src") }, wantErr: true},
		{name: "sibling with shared prefix", mutate: func(c *Config) { c.TargetDir = c.SourceDir + "-dist" }},
		{name: "nested metadata dir", mutate: func(c *Config) { c.MetadataDir = "a/.git" }, wantErr: true},
		{name: "foreign metadata dir in repository mode", mutate: func(c *Config) { c.MetadataDir = ".hg" }, wantErr: true},
		{name: "foreign metadata dir in directory mode", mutate: func(c *Config) { c.Repository = false; c.MetadataDir = ".hg" }},
		{name: "push without commit", mutate: func(c *Config) { c.AutoCommit = false }, wantErr: true},
		{name: "stage only", mutate: func(c *Config) { c.AutoCommit = false; c.AutoPush = false }},
		{name: "branch in directory mode", mutate: func(c *Config) { c.Repository = false; c.TargetBranch = "production" }, wantErr: true},
		{name: "directory mode", mutate: func(c *Config) { c.Repository = false }},
		{
			name: "review",
			mutate: func(c *Config) {
				c.TargetBranch = "production"
				c.Review = ReviewConfig{Provider: "gitea", Base: "main"}
			},
		},
		{
			name:    "review without branch",
			mutate:  func(c *Config) { c.Review = ReviewConfig{Provider: "gitea", Base: "main"} },
			wantErr: true,
		},
		{
			name: "review into itself",
			mutate: func(c *Config) {
				c.TargetBranch = "main"
				c.Review = ReviewConfig{Provider: "gitlab", Base: "main"}
			},
			wantErr: true,
		},
		{
			name: "review without push",
			mutate: func(c *Config) {
				c.TargetBranch = "production"
				c.AutoPush = false
				c.Review = ReviewConfig{Provider: "gitlab", Base: "main"}
			},
			wantErr: true,
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.TargetBranch = "production"
				c.Review = ReviewConfig{Provider: "github", Base: "main"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{SourceDir: "a", TargetDir: "b"}.WithDefaults()

	if cfg.RemoteName != "origin" || cfg.DefaultBranch != "main" || cfg.MetadataDir != ".git" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.CommitMessage != DefaultCommitMessage || cfg.CommitTemplate != DefaultCommitTemplate {
		t.Fatalf("commit defaults not applied: %+v", cfg)
	}
}

func TestStepErrorLiftsCommandDetails(t *testing.T) {
	cmdErr := &CommandError{Command: "git push -u origin main", ExitCode: 128, Output: "fatal: unable to access"}
	err := NewStepError(StatePushing, errors.Join(errors.New("failed to push"), cmdErr))

	if err.Command != cmdErr.Command || err.Output != cmdErr.Output {
		t.Fatalf("command details not lifted: %+v", err)
	}
	if got := err.Error(); got != `pushing failed running "git push -u origin main": failed to push`+"\n"+`command "git push -u origin main" exited with status 128` {
		t.Fatalf("unexpected message %q", got)
	}

	var target *CommandError
	if !errors.As(err, &target) {
		t.Fatalf("step error should unwrap to the command error")
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateNoChanges, StateDone, StateFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if StateSyncing.Terminal() || StateSyncing.String() != "syncing" {
		t.Fatalf("unexpected syncing state")
	}
	if State(99).String() != "unknown" {
		t.Fatalf("unexpected name for unknown state")
	}
}
