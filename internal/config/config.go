package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/tvandinther/themedist/pkg/deploy"
)

const (
	EnvPrefix   = "THEMEDIST"
	FileName    = "themedist"
	DefaultFile = FileName + ".yaml"

	BackendGoGit = "go-git"
	BackendCLI   = "cli"
)

// Keys shared by flags, environment variables and the config file.
const (
	KeySource         = "source"
	KeyTarget         = "target"
	KeyRemote         = "remote"
	KeyRemoteName     = "remote-name"
	KeyBuild          = "build"
	KeyBuildDir       = "build-dir"
	KeyBranch         = "branch"
	KeyDefaultBranch  = "default-branch"
	KeyMessage        = "message"
	KeyCommitTemplate = "commit-template"
	KeyCommit         = "commit"
	KeyPush           = "push"
	KeyStrictPush     = "strict-push"
	KeyPull           = "pull"
	KeyRepository     = "repository"
	KeyMetadataDir    = "metadata-dir"
	KeyRequiredPaths  = "required-paths"
	KeyAuthorName     = "author.name"
	KeyAuthorEmail    = "author.email"
	KeyBackend        = "git.backend"
	KeyAuthUsername   = "auth.username"
	KeyAuthPassword   = "auth.password"
	KeyReviewProvider = "review.provider"
	KeyReviewURL      = "review.url"
	KeyReviewToken    = "review.token"
	KeyReviewBase     = "review.base"
	KeyLogLevel       = "log-level"
)

type Settings struct {
	Deploy   deploy.Config
	Backend  string
	Auth     Auth
	LogLevel string
}

type Auth struct {
	Username string
	Password string
}

// New returns a viper instance reading THEMEDIST_* variables, with nested
// keys mapped as review.token -> THEMEDIST_REVIEW_TOKEN.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	SetDefaults(v)

	return v
}

func SetDefaults(v *viper.Viper) {
	defaults := deploy.NewConfig()

	v.SetDefault(KeySource, "")
	v.SetDefault(KeyTarget, "")
	v.SetDefault(KeyRemote, "")
	v.SetDefault(KeyRemoteName, defaults.RemoteName)
	v.SetDefault(KeyBuild, "")
	v.SetDefault(KeyBuildDir, "")
	v.SetDefault(KeyBranch, "")
	v.SetDefault(KeyDefaultBranch, defaults.DefaultBranch)
	v.SetDefault(KeyMessage, defaults.CommitMessage)
	v.SetDefault(KeyCommitTemplate, defaults.CommitTemplate)
	v.SetDefault(KeyCommit, defaults.AutoCommit)
	v.SetDefault(KeyPush, defaults.AutoPush)
	v.SetDefault(KeyStrictPush, defaults.StrictPush)
	v.SetDefault(KeyPull, defaults.Pull)
	v.SetDefault(KeyRepository, defaults.Repository)
	v.SetDefault(KeyMetadataDir, defaults.MetadataDir)
	v.SetDefault(KeyRequiredPaths, []string{})
	v.SetDefault(KeyAuthorName, "")
	v.SetDefault(KeyAuthorEmail, "")
	v.SetDefault(KeyBackend, BackendGoGit)
	v.SetDefault(KeyAuthUsername, "")
	v.SetDefault(KeyAuthPassword, "")
	v.SetDefault(KeyReviewProvider, "")
	v.SetDefault(KeyReviewURL, "")
	v.SetDefault(KeyReviewToken, "")
	v.SetDefault(KeyReviewBase, "")
	v.SetDefault(KeyLogLevel, "info")
}

// ReadFile reads explicitPath, or themedist.yaml from dir when no path is
// given. Only an explicitly requested file has to exist.
func ReadFile(v *viper.Viper, explicitPath, dir string) error {
	if explicitPath != "" {
		path, err := homedir.Expand(explicitPath)
		if err != nil {
			return fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && explicitPath == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

func Load(v *viper.Viper) (*Settings, error) {
	paths := map[string]string{}
	for _, key := range []string{KeySource, KeyTarget, KeyBuildDir} {
		path, err := homedir.Expand(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", key, err)
		}
		paths[key] = path
	}

	cfg := deploy.Config{
		SourceDir:      paths[KeySource],
		TargetDir:      paths[KeyTarget],
		RemoteURL:      v.GetString(KeyRemote),
		RemoteName:     v.GetString(KeyRemoteName),
		BuildCommand:   v.GetString(KeyBuild),
		BuildDir:       paths[KeyBuildDir],
		TargetBranch:   v.GetString(KeyBranch),
		DefaultBranch:  v.GetString(KeyDefaultBranch),
		CommitMessage:  v.GetString(KeyMessage),
		CommitTemplate: v.GetString(KeyCommitTemplate),
		Repository:     v.GetBool(KeyRepository),
		AutoCommit:     v.GetBool(KeyCommit),
		AutoPush:       v.GetBool(KeyPush),
		StrictPush:     v.GetBool(KeyStrictPush),
		Pull:           v.GetBool(KeyPull),
		MetadataDir:    v.GetString(KeyMetadataDir),
		RequiredPaths:  v.GetStringSlice(KeyRequiredPaths),
		Author: deploy.Author{
			Name:  v.GetString(KeyAuthorName),
			Email: v.GetString(KeyAuthorEmail),
		},
		Review: deploy.ReviewConfig{
			Provider: strings.ToLower(v.GetString(KeyReviewProvider)),
			URL:      v.GetString(KeyReviewURL),
			Token:    v.GetString(KeyReviewToken),
			Base:     v.GetString(KeyReviewBase),
		},
	}

	backend := strings.ToLower(v.GetString(KeyBackend))
	switch backend {
	case BackendGoGit, BackendCLI:
	default:
		return nil, fmt.Errorf("%w: unknown git backend %q (expected %s or %s)", deploy.ErrInvalidConfig, backend, BackendGoGit, BackendCLI)
	}

	return &Settings{
		Deploy:  cfg.WithDefaults(),
		Backend: backend,
		Auth: Auth{
			Username: v.GetString(KeyAuthUsername),
			Password: v.GetString(KeyAuthPassword),
		},
		LogLevel: v.GetString(KeyLogLevel),
	}, nil
}
