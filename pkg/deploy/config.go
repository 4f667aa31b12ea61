package deploy

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	DefaultRemoteName     = "origin"
	DefaultBranch         = "main"
	DefaultMetadataDir    = ".git"
	DefaultCommitMessage  = "Auto-deploy: Theme update"
	DefaultCommitTemplate = "{{message}} - {{timestamp}}"
)

// Config is the immutable input of a single run.
type Config struct {
	SourceDir     string
	TargetDir     string
	RemoteURL     string
	RemoteName    string
	BuildCommand  string
	BuildDir      string // Working directory of the build. Empty means the current directory.
	TargetBranch  string // Dedicated deployment branch. Empty means DefaultBranch/current branch.
	DefaultBranch string // Branch a freshly initialised target starts on.

	CommitMessage  string
	CommitTemplate string // Mustache template combining the message and a timestamp.

	Repository bool // Manage the target as a git repository. False mirrors into a plain directory.
	AutoCommit bool
	AutoPush   bool
	StrictPush bool // Treat push failures as fatal instead of advisory.
	Pull       bool // Pull the working branch when the target already exists.

	MetadataDir   string
	RequiredPaths []string
	Author        Author

	Review ReviewConfig
}

type ReviewConfig struct {
	Provider string // "", "gitea" or "gitlab"
	URL      string
	Token    string
	Base     string // Branch the review merges into.
}

func NewConfig() Config {
	return Config{
		RemoteName:     DefaultRemoteName,
		DefaultBranch:  DefaultBranch,
		CommitMessage:  DefaultCommitMessage,
		CommitTemplate: DefaultCommitTemplate,
		Repository:     true,
		AutoCommit:     true,
		AutoPush:       true,
		Pull:           true,
		MetadataDir:    DefaultMetadataDir,
	}
}

// WithDefaults fills every empty optional field with its default.
func (c Config) WithDefaults() Config {
	if c.RemoteName == "" {
		c.RemoteName = DefaultRemoteName
	}
	if c.DefaultBranch == "" {
		c.DefaultBranch = DefaultBranch
	}
	if c.CommitMessage == "" {
		c.CommitMessage = DefaultCommitMessage
	}
	if c.CommitTemplate == "" {
		c.CommitTemplate = DefaultCommitTemplate
	}
	if c.MetadataDir == "" {
		c.MetadataDir = DefaultMetadataDir
	}

	return c
}

func (c Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("%w: source directory is required", ErrInvalidConfig)
	}
	if c.TargetDir == "" {
		return fmt.Errorf("%w: target directory is required", ErrInvalidConfig)
	}

	src, err := filepath.Abs(c.SourceDir)
	if err != nil {
		return fmt.Errorf("failed to resolve source directory: %w", err)
	}
	dst, err := filepath.Abs(c.TargetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve target directory: %w", err)
	}
	if src == dst || isWithin(src, dst) || isWithin(dst, src) {
		return fmt.Errorf("%w: source %s and target %s must not overlap", ErrInvalidConfig, src, dst)
	}

	if c.MetadataDir != "" && strings.ContainsAny(c.MetadataDir, `/\`) {
		return fmt.Errorf("%w: metadata directory must be a single name, got %q", ErrInvalidConfig, c.MetadataDir)
	}
	// Both git backends keep their metadata in .git, so the wipe must spare it.
	if c.Repository && c.MetadataDir != "" && c.MetadataDir != DefaultMetadataDir {
		return fmt.Errorf("%w: repository mode keeps metadata in %s, got %q", ErrInvalidConfig, DefaultMetadataDir, c.MetadataDir)
	}

	if c.AutoPush && !c.AutoCommit {
		return fmt.Errorf("%w: push requires commit to be enabled", ErrInvalidConfig)
	}
	if !c.Repository {
		if c.TargetBranch != "" {
			return fmt.Errorf("%w: a target branch requires repository mode", ErrInvalidConfig)
		}
		if c.Review.Provider != "" {
			return fmt.Errorf("%w: review requires repository mode", ErrInvalidConfig)
		}
	}

	switch c.Review.Provider {
	case "":
	case "gitea", "gitlab":
		if c.TargetBranch == "" {
			return fmt.Errorf("%w: review requires a dedicated target branch", ErrInvalidConfig)
		}
		if !c.AutoPush {
			return fmt.Errorf("%w: review requires push to be enabled", ErrInvalidConfig)
		}
		if c.Review.Base == "" {
			return fmt.Errorf("%w: review requires a base branch", ErrInvalidConfig)
		}
		if c.Review.Base == c.TargetBranch {
			return fmt.Errorf("%w: review base must differ from the target branch", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown review provider %q", ErrInvalidConfig, c.Review.Provider)
	}

	return nil
}

// isWithin reports whether path lies inside dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
