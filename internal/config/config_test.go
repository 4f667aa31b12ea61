package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"

	"github.com/tvandinther/themedist/pkg/deploy"
)

func TestLoadDefaults(t *testing.T) {
	v := New()
	if err := ReadFile(v, "", t.TempDir()); err != nil {
		t.Fatalf("a missing implicit config file should be ignored: %v", err)
	}

	settings, err := Load(v)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg := settings.Deploy
	if !cfg.Repository || !cfg.AutoCommit || !cfg.AutoPush || !cfg.Pull || cfg.StrictPush {
		t.Fatalf("unexpected boolean defaults: %+v", cfg)
	}
	if cfg.RemoteName != "origin" || cfg.DefaultBranch != "main" || cfg.MetadataDir != ".git" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CommitMessage != deploy.DefaultCommitMessage {
		t.Fatalf("unexpected commit message %q", cfg.CommitMessage)
	}
	if settings.Backend != BackendGoGit || settings.LogLevel != "info" {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := `source: shopify
target: ~/theme-dist
remote: git@github.com:acme/theme-dist.git
push: false
commit: true
required-paths:
  - layout/theme.liquid
  - config/settings_schema.json
author:
  name: Theme Bot
git:
  backend: cli
review:
  provider: gitea
  base: main
`
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte(file), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("THEMEDIST_BRANCH", "production")
	t.Setenv("THEMEDIST_REVIEW_TOKEN", "secret")
	t.Setenv("THEMEDIST_PUSH", "true")

	v := New()
	if err := ReadFile(v, "", dir); err != nil {
		t.Fatalf("read: %v", err)
	}
	settings, err := Load(v)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	home, err := homedir.Dir()
	if err != nil {
		t.Fatalf("home: %v", err)
	}

	cfg := settings.Deploy
	if cfg.SourceDir != "shopify" || cfg.TargetDir != filepath.Join(home, "theme-dist") {
		t.Fatalf("unexpected paths %q %q", cfg.SourceDir, cfg.TargetDir)
	}
	if cfg.RemoteURL != "git@github.com:acme/theme-dist.git" {
		t.Fatalf("unexpected remote %q", cfg.RemoteURL)
	}
	if cfg.TargetBranch != "production" {
		t.Fatalf("environment should set the branch, got %q", cfg.TargetBranch)
	}
	if !cfg.AutoPush {
		t.Fatalf("environment should override the file for push")
	}
	if !reflect.DeepEqual(cfg.RequiredPaths, []string{"layout/theme.liquid", "config/settings_schema.json"}) {
		t.Fatalf("unexpected required paths %v", cfg.RequiredPaths)
	}
	if cfg.Author.Name != "Theme Bot" {
		t.Fatalf("unexpected author %+v", cfg.Author)
	}
	if cfg.Review.Provider != "gitea" || cfg.Review.Base != "main" || cfg.Review.Token != "secret" {
		t.Fatalf("unexpected review config %+v", cfg.Review)
	}
	if settings.Backend != BackendCLI {
		t.Fatalf("unexpected backend %q", settings.Backend)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("THEMEDIST_GIT_BACKEND", "svn")

	_, err := Load(New())
	if !errors.Is(err, deploy.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestReadFileExplicitPathMustExist(t *testing.T) {
	err := ReadFile(New(), filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err == nil {
		t.Fatalf("expected an error for a missing explicit config file")
	}
}

func TestWriteFileCreatesFromTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)

	written, err := WriteFile(path, []Entry{
		{Key: KeyRemote, Value: "git@github.com:acme/theme-dist.git"},
		{Key: KeyReviewBase, Value: "main"},
	}, false)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !reflect.DeepEqual(written, []string{KeyRemote, KeyReviewBase}) {
		t.Fatalf("unexpected written keys %v", written)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"# Built theme directory",
		"source: shopify",
		"git@github.com:acme/theme-dist.git",
		"review:\n  base: main",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("config file missing %q:\n%s", want, content)
		}
	}

	v := New()
	if err := ReadFile(v, path, ""); err != nil {
		t.Fatalf("generated file should be readable: %v", err)
	}
	settings, err := Load(v)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if settings.Deploy.RemoteURL != "git@github.com:acme/theme-dist.git" {
		t.Fatalf("unexpected remote from generated file %q", settings.Deploy.RemoteURL)
	}
	if settings.Deploy.BuildCommand != "npm run build" || settings.Deploy.Review.Base != "main" {
		t.Fatalf("unexpected settings from generated file %+v", settings.Deploy)
	}
}

func TestWriteFileKeepsExistingValuesUnlessOverwriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	original := "# keep me\ntarget: ../dist # inline\npush: false\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	written, err := WriteFile(path, []Entry{{Key: KeyTarget, Value: "../other"}, {Key: KeyPush, Value: "true"}}, false)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("existing values must not be replaced, wrote %v", written)
	}

	if _, err := WriteFile(path, []Entry{{Key: KeyTarget, Value: "../other"}, {Key: KeyPush, Value: "true"}}, true); err != nil {
		t.Fatalf("forced write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)
	for _, want := range []string{"# keep me", "target: ../other", "push: true"} {
		if !strings.Contains(content, want) {
			t.Fatalf("config file missing %q:\n%s", want, content)
		}
	}
}
