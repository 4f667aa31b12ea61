package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tvandinther/themedist/pkg/deploy"
	"github.com/tvandinther/themedist/pkg/flow"
	"github.com/tvandinther/themedist/pkg/progress"
)

// Manager runs one deployment of a built theme into the distribution tree.
type Manager struct {
	report *progress.Reporter
	flow   *flow.Flow
	config deploy.Config

	now          func() time.Time
	reportPeriod time.Duration
}

type Option func(*Manager)

// WithClock sets the clock used for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithReportPeriod sets how often copy progress is reported.
func WithReportPeriod(d time.Duration) Option {
	return func(m *Manager) {
		m.reportPeriod = d
	}
}

func New(reporter *progress.Reporter, f *flow.Flow, config deploy.Config, opts ...Option) *Manager {
	m := &Manager{
		report: reporter,
		flow:   f,
		config: config.WithDefaults(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// run carries the mutable state of a single Deploy call.
type run struct {
	config deploy.Config
	result *deploy.Result
	vcs    deploy.VersionControl
	branch string
	fresh  bool
}

func (r *run) enter(state deploy.State) {
	slog.Debug("entering state", "state", state.String())
	r.result.State = state
}

func (r *run) warn(s string) {
	r.result.Summary.Warnings = append(r.result.Summary.Warnings, s)
}

// Deploy executes the run. The returned result is never nil. A non-nil error
// is fatal and is a *deploy.StepError unless the configuration was invalid,
// in which case nothing has been reported yet.
func (m *Manager) Deploy(ctx context.Context) (*deploy.Result, error) {
	r := &run{
		config: m.config,
		result: &deploy.Result{
			State: deploy.StateIdle,
			Summary: deploy.Summary{
				TargetDir: m.config.TargetDir,
				RemoteURL: m.config.RemoteURL,
				Warnings:  make([]string, 0),
			},
		},
	}

	if err := m.config.Validate(); err != nil {
		r.result.State = deploy.StateFailed
		return r.result, err
	}

	m.report.Plan(m.config)

	if err := m.build(ctx, r); err != nil {
		return m.fail(r, err)
	}

	if err := m.prepareTarget(ctx, r); err != nil {
		return m.fail(r, err)
	}

	if err := m.sync(ctx, r); err != nil {
		return m.fail(r, err)
	}

	if !r.config.Repository {
		r.enter(deploy.StateDone)
		r.result.Outcome = deploy.OutcomeSynced
		return m.finish(r), nil
	}

	changed, err := m.stage(ctx, r)
	if err != nil {
		return m.fail(r, err)
	}
	if !changed {
		r.enter(deploy.StateNoChanges)
		r.result.Outcome = deploy.OutcomeNoChanges
		m.report.Info("no changes to deploy")
		return m.finish(r), nil
	}

	if !r.config.AutoCommit {
		r.enter(deploy.StateDone)
		r.result.Outcome = deploy.OutcomeStaged
		m.report.Info("changes staged, commit them with:")
		m.report.Detail(fmt.Sprintf("git -C %s commit -m %q", r.config.TargetDir, r.config.CommitMessage))
		return m.finish(r), nil
	}

	if err := m.commit(ctx, r); err != nil {
		return m.fail(r, err)
	}

	if err := m.push(ctx, r); err != nil {
		return m.fail(r, err)
	}

	r.enter(deploy.StateDone)

	return m.finish(r), nil
}

func (m *Manager) fail(r *run, err error) (*deploy.Result, error) {
	stepErr := deploy.NewStepError(r.result.State, err)
	r.result.State = deploy.StateFailed

	m.report.Failure("%s", stepErr.Error())
	m.report.Detail(stepErr.Output)
	m.report.Banner("Deployment failed", false)

	return r.result, stepErr
}

func (m *Manager) finish(r *run) *deploy.Result {
	title := "Deployment complete"
	switch r.result.Outcome {
	case deploy.OutcomeNoChanges:
		title = "Nothing to deploy"
	case deploy.OutcomeStaged:
		title = "Changes staged"
	case deploy.OutcomePushFailed:
		title = "Deployment committed, push failed"
	}

	m.report.Banner(title, true)
	m.report.Summary(r.result)

	return r.result
}

func (m *Manager) build(ctx context.Context, r *run) error {
	r.enter(deploy.StateBuilding)
	m.report.Heading("Building theme")

	err := m.flow.Strategies.Build.Build(ctx, m.report.BasicProgress)
	m.report.Result(err, progress.Result{
		Success: "theme built",
		Failure: "build failed",
	})
	if err != nil {
		return fmt.Errorf("failed to build theme: %w", err)
	}

	return m.validateSource(ctx, r)
}

func (m *Manager) validateSource(ctx context.Context, r *run) error {
	src := r.config.SourceDir

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %w", deploy.ErrInvalidSource, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", deploy.ErrInvalidSource, src)
	}

	tree := os.DirFS(src)
	for _, validator := range m.flow.Processors.Validators {
		m.report.Progress("validating %s", validator.GetTitle())
		result, err := validator.ValidateTree(ctx, tree, m.report.BasicProgress)
		if err != nil {
			return fmt.Errorf("failed to run validator %s: %w", validator.GetTitle(), err)
		}
		if !result.IsValid {
			errs := append([]error{deploy.ErrInvalidSource}, result.Errors...)
			return fmt.Errorf("validator %s rejected %s: %w", validator.GetTitle(), src, errors.Join(errs...))
		}
	}

	return nil
}

func (m *Manager) prepareTarget(ctx context.Context, r *run) error {
	r.enter(deploy.StatePreparingTarget)
	m.report.Heading("Preparing target")

	target := r.config.TargetDir
	_, err := os.Stat(target)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(target, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create target directory: %w", err)
		}
		m.report.Progress("created %s", target)
	case err != nil:
		return fmt.Errorf("failed to stat target directory: %w", err)
	}

	if !r.config.Repository {
		return nil
	}

	vcs := m.flow.Strategies.VersionControl
	if vcs == nil {
		return errors.New("no version control strategy configured")
	}
	r.vcs = vcs

	isRepo, err := vcs.IsRepository(ctx)
	if err != nil {
		return err
	}
	if !isRepo {
		m.report.Progress("initialising repository on %s", r.config.DefaultBranch)
		if err := vcs.Init(ctx, r.config.DefaultBranch); err != nil {
			return err
		}
		r.fresh = true
	}

	if r.config.RemoteURL != "" {
		if err := vcs.EnsureRemote(ctx, r.config.RemoteURL); err != nil {
			return err
		}
		m.report.Progress("using remote %s %s", r.config.RemoteName, r.config.RemoteURL)

		err := vcs.Fetch(ctx)
		switch {
		case err != nil && r.fresh:
			m.report.Warning("could not fetch %s: %v", r.config.RemoteName, err)
			r.warn(fmt.Sprintf("fetch failed: %v", err))
		case err != nil:
			return err
		}
	}

	if err := m.checkout(ctx, r); err != nil {
		return err
	}
	r.result.Summary.Branch = r.branch

	if !r.fresh && r.config.Pull {
		m.report.Progress("pulling %s", r.branch)
		if err := vcs.Pull(ctx, r.branch); err != nil {
			return err
		}
	}

	m.report.Success("target ready on %s", r.branch)

	return nil
}

// checkout switches to the working branch before anything is written to the
// tree, creating it from the current state when it does not exist.
func (m *Manager) checkout(ctx context.Context, r *run) error {
	branch := r.config.TargetBranch
	if branch == "" {
		current, err := r.vcs.CurrentBranch(ctx)
		if err != nil {
			return err
		}
		branch = current
	}
	r.branch = branch

	exists, err := r.vcs.BranchExists(ctx, branch)
	if err != nil {
		return err
	}

	if err := r.vcs.Checkout(ctx, branch, !exists); err != nil {
		return err
	}

	if exists {
		m.report.Progress("using existing branch %s", branch)
	} else {
		m.report.Progress("created branch %s", branch)
	}

	return nil
}

func (m *Manager) sync(ctx context.Context, r *run) error {
	r.enter(deploy.StateSyncing)
	m.report.Heading("Syncing files")

	process := m.report.NewProcess(&progress.ProcessReporterOptions{
		ReportPeriod: m.reportPeriod,
		Template: progress.ProcessTemplate{
			PresentAction: "copying",
			PastAction:    "copied",
			Subject:       "files",
		},
	})
	process.Start(ctx)

	result, err := m.flow.Strategies.FileCopy.Mirror(r.config.SourceDir, r.config.TargetDir, deploy.CopyOptions{
		MetadataDir: r.config.MetadataDir,
		OnFile:      func(string) { process.Increment(1) },
	}, m.report.BasicProgress)
	process.Done()
	if err != nil {
		return err
	}

	r.result.Summary.FilesCopied = result.FilesCopied
	m.report.Success("copied %d files to %s", result.FilesCopied, r.config.TargetDir)

	return nil
}

func (m *Manager) stage(ctx context.Context, r *run) (bool, error) {
	r.enter(deploy.StateStaging)
	m.report.Heading("Staging changes")

	if err := r.vcs.StageAll(ctx); err != nil {
		return false, err
	}

	changed, err := r.vcs.HasStagedChanges(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to detect staged changes: %w", err)
	}

	return changed, nil
}

func (m *Manager) commit(ctx context.Context, r *run) error {
	r.enter(deploy.StateCommitting)
	m.report.Heading("Committing")

	message, err := deploy.RenderCommitMessage(r.config.CommitTemplate, deploy.CommitData{
		Message: r.config.CommitMessage,
		Branch:  r.branch,
		Source:  r.config.SourceDir,
		Target:  r.config.TargetDir,
		Time:    m.now(),
	})
	if err != nil {
		return err
	}

	hash, err := r.vcs.Commit(ctx, message, r.config.Author)
	m.report.Result(err, progress.Result{
		Success: fmt.Sprintf("committed %q", message),
		Failure: "commit failed",
	})
	if err != nil {
		return err
	}

	r.result.Summary.Commit = hash
	r.result.Outcome = deploy.OutcomeCommitted

	return nil
}

// push is fatal only with StrictPush. Otherwise failures leave the commit in
// place and print the command that completes the deployment by hand.
func (m *Manager) push(ctx context.Context, r *run) error {
	if !r.config.AutoPush {
		return nil
	}

	r.enter(deploy.StatePushing)
	m.report.Heading("Pushing")

	err := r.vcs.Push(ctx, r.branch, true)
	switch {
	case errors.Is(err, deploy.ErrNoRemote):
		m.report.Info("no remote configured, skipping push")
		return nil
	case err != nil && r.config.StrictPush:
		return err
	case err != nil:
		m.report.Warning("push failed: %v", err)
		m.report.Info("push manually with:")
		m.report.Detail(fmt.Sprintf("git -C %s push -u %s %s", r.config.TargetDir, r.config.RemoteName, r.branch))
		r.warn(fmt.Sprintf("push failed: %v", err))
		r.result.Outcome = deploy.OutcomePushFailed
		return nil
	}

	m.report.Success("pushed %s to %s", r.branch, r.config.RemoteName)
	r.result.Outcome = deploy.OutcomeDeployed

	m.review(ctx, r)

	return nil
}

// review opens a pull request for a dedicated deployment branch. Review
// failures never fail the run.
func (m *Manager) review(ctx context.Context, r *run) {
	reviewer := m.flow.Strategies.CreateReview
	if reviewer == nil || r.config.TargetBranch == "" {
		return
	}

	resp, err := reviewer.CreateReview(ctx, &deploy.ReviewRequest{
		RemoteURL: r.config.RemoteURL,
		Head:      r.branch,
		Base:      r.config.Review.Base,
		Title:     fmt.Sprintf("Deploy %s", r.branch),
		Body:      fmt.Sprintf("Theme built from `%s`.\n\nCommit: %s", r.config.SourceDir, r.result.Summary.Commit),
	}, m.report.BasicProgress)
	if err != nil {
		m.report.Warning("could not open review: %v", err)
		r.warn(fmt.Sprintf("review failed: %v", err))
		return
	}

	r.result.Summary.ReviewURL = resp.URL
	if resp.Existed {
		m.report.Success("review already open at %s", resp.URL)
	} else {
		m.report.Success("opened review %s", resp.URL)
	}
}
