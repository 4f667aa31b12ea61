package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/tvandinther/themedist/pkg/deploy"
)

// Repository is the in-process go-git backend for a target working tree.
type Repository struct {
	dir        string
	remoteName string
	auth       deploy.Authenticator
	repo       *git.Repository
}

type Options struct {
	RemoteName    string
	Authenticator deploy.Authenticator
}

func New(dir string, opts Options) *Repository {
	remoteName := opts.RemoteName
	if remoteName == "" {
		remoteName = deploy.DefaultRemoteName
	}

	return &Repository{
		dir:        dir,
		remoteName: remoteName,
		auth:       opts.Authenticator,
	}
}

func (r *Repository) open() (*git.Repository, error) {
	if r.repo != nil {
		return r.repo, nil
	}

	repo, err := git.PlainOpen(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", r.dir, err)
	}
	r.repo = repo

	return repo, nil
}

func (r *Repository) worktree() (*git.Worktree, error) {
	repo, err := r.open()
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return wt, nil
}

func (r *Repository) authMethod() (transport.AuthMethod, error) {
	if r.auth == nil {
		return nil, nil
	}

	auth, err := r.auth.GetAuth(func(s string) { slog.Debug(s) })
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	return auth, nil
}

func (r *Repository) hasRemote() (bool, error) {
	repo, err := r.open()
	if err != nil {
		return false, err
	}

	_, err = repo.Remote(r.remoteName)
	if errors.Is(err, git.ErrRemoteNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get remote %s: %w", r.remoteName, err)
	}

	return true, nil
}

func (r *Repository) IsRepository(_ context.Context) (bool, error) {
	_, err := r.open()
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *Repository) Init(_ context.Context, branch string) error {
	slog.Debug("initialising repository", "dir", r.dir, "branch", branch)

	repo, err := git.PlainInitWithOptions(r.dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
		Bare: false,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise repository: %w", err)
	}
	r.repo = repo

	return nil
}

func (r *Repository) EnsureRemote(_ context.Context, url string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}

	remote, err := repo.Remote(r.remoteName)
	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
	case err != nil:
		return fmt.Errorf("failed to get remote %s: %w", r.remoteName, err)
	default:
		urls := remote.Config().URLs
		if len(urls) > 0 && urls[0] == url {
			return nil
		}
		slog.Debug("updating remote url", "remote", r.remoteName, "from", urls, "to", url)
		if err := repo.DeleteRemote(r.remoteName); err != nil {
			return fmt.Errorf("failed to remove remote %s: %w", r.remoteName, err)
		}
	}

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: r.remoteName,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote %s: %w", r.remoteName, err)
	}

	return nil
}

func (r *Repository) Fetch(ctx context.Context) error {
	ok, err := r.hasRemote()
	if err != nil || !ok {
		return err
	}

	auth, err := r.authMethod()
	if err != nil {
		return err
	}

	err = r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: r.remoteName,
		Auth:       auth,
		Progress:   nil,
	})
	if err != nil && !isTolerableRemoteError(err) {
		return fmt.Errorf("failed to fetch %s: %w", r.remoteName, err)
	}

	return nil
}

func (r *Repository) Pull(ctx context.Context, branch string) error {
	ok, err := r.hasRemote()
	if err != nil || !ok {
		return err
	}

	wt, err := r.worktree()
	if err != nil {
		return err
	}

	auth, err := r.authMethod()
	if err != nil {
		return err
	}

	slog.Debug("pulling branch", "remote", r.remoteName, "branch", branch)
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    r.remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !isTolerableRemoteError(err) {
		return fmt.Errorf("failed to pull %s from %s: %w", branch, r.remoteName, err)
	}

	return nil
}

// isTolerableRemoteError covers remotes that are empty, lack the branch, or
// have nothing new.
func isTolerableRemoteError(err error) bool {
	return errors.Is(err, git.NoErrAlreadyUpToDate) ||
		errors.Is(err, transport.ErrEmptyRemoteRepository) ||
		errors.Is(err, plumbing.ErrReferenceNotFound) ||
		strings.Contains(err.Error(), "couldn't find remote ref")
}

func (r *Repository) BranchExists(_ context.Context, branch string) (bool, error) {
	repo, err := r.open()
	if err != nil {
		return false, err
	}

	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewRemoteReferenceName(r.remoteName, branch),
	} {
		_, err := repo.Reference(name, true)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, fmt.Errorf("failed to resolve %s: %w", name, err)
		}
	}

	return false, nil
}

func (r *Repository) CurrentBranch(_ context.Context) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}

	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash())
	}

	return head.Target().Short(), nil
}

func (r *Repository) Checkout(ctx context.Context, branch string, create bool) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	wt, err := r.worktree()
	if err != nil {
		return err
	}

	localRef := plumbing.NewBranchReferenceName(branch)
	head, err := repo.Head()
	unborn := errors.Is(err, plumbing.ErrReferenceNotFound)
	if err != nil && !unborn {
		return fmt.Errorf("failed to get repository HEAD: %w", err)
	}

	if _, err := repo.Reference(localRef, true); err == nil {
		if !unborn && head.Name() == localRef {
			return nil
		}
		slog.Debug("switching branch", "branch", branch)
		return checkout(wt, &git.CheckoutOptions{Branch: localRef, Force: true})
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(r.remoteName, branch), true)
	if err == nil {
		slog.Debug("creating branch from remote", "branch", branch, "remote", r.remoteName)
		if _, err := createBranch(repo, localRef, remoteRef.Name()); err != nil {
			return err
		}
		if err := r.track(repo, branch); err != nil {
			return err
		}
		return checkout(wt, &git.CheckoutOptions{Branch: localRef, Force: true})
	}

	if !create {
		return fmt.Errorf("%w: %s", deploy.ErrNoBranch, branch)
	}

	if unborn {
		_, err := createOrphanBranch(repo, localRef)
		return err
	}

	slog.Debug("creating branch", "branch", branch, "from", head.Name().Short())
	return checkout(wt, &git.CheckoutOptions{Branch: localRef, Hash: head.Hash(), Create: true})
}

func checkout(wt *git.Worktree, opts *git.CheckoutOptions) error {
	if err := wt.Checkout(opts); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", opts.Branch.Short(), err)
	}

	return nil
}

func (r *Repository) track(repo *git.Repository, branch string) error {
	err := repo.CreateBranch(&config.Branch{
		Name:   branch,
		Remote: r.remoteName,
		Merge:  plumbing.NewBranchReferenceName(branch),
	})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		return fmt.Errorf("failed to set upstream for %s: %w", branch, err)
	}

	return nil
}

func (r *Repository) StageAll(_ context.Context) error {
	wt, err := r.worktree()
	if err != nil {
		return err
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to get git status: %w", err)
	}

	for path, s := range status {
		switch s.Worktree {
		case git.Unmodified:
			continue
		case git.Deleted:
			if _, err := wt.Remove(path); err != nil {
				return fmt.Errorf("failed to stage removal of %s: %w", path, err)
			}
		default:
			if _, err := wt.Add(path); err != nil {
				return fmt.Errorf("failed to add %s: %w", path, err)
			}
		}
	}

	slog.Debug("staged worktree changes", "entries", len(status))

	return nil
}

func (r *Repository) HasStagedChanges(_ context.Context) (bool, error) {
	wt, err := r.worktree()
	if err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get git status: %w", err)
	}

	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			return true, nil
		}
	}

	return false, nil
}

func (r *Repository) Commit(_ context.Context, message string, author deploy.Author) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	wt, err := r.worktree()
	if err != nil {
		return "", err
	}

	opts := &git.CommitOptions{}
	if author.Name != "" || author.Email != "" {
		opts.Author = &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		}
	}

	hash, err := wt.Commit(message, opts)
	if err != nil {
		return "", fmt.Errorf("failed to prepare commit: %w", err)
	}

	obj, err := repo.CommitObject(hash)
	if err != nil {
		return "", fmt.Errorf("failed to commit object: %w", err)
	}

	slog.Debug("created commit object", "hash", obj.Hash.String(), "authorEmail", obj.Author.Email)

	return obj.Hash.String(), nil
}

func (r *Repository) Push(ctx context.Context, branch string, setUpstream bool) error {
	ok, err := r.hasRemote()
	if err != nil {
		return err
	}
	if !ok {
		return deploy.ErrNoRemote
	}

	auth, err := r.authMethod()
	if err != nil {
		return err
	}

	branchRefName := plumbing.NewBranchReferenceName(branch)
	slog.Debug("pushing refs", "localRef", branchRefName.Short(), "remote", r.remoteName)
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: r.remoteName,
		Auth:       auth,
		Progress:   nil,
		RefSpecs: []config.RefSpec{
			config.RefSpec(fmt.Sprintf("%s:%s", branchRefName, branchRefName)),
		},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push: %w", err)
	}

	if setUpstream {
		return r.track(r.repo, branch)
	}

	return nil
}

func createBranch(repo *git.Repository, branchRefName, headRefName plumbing.ReferenceName) (*plumbing.Reference, error) {
	slog.Debug("creating branch", "branchName", branchRefName)

	headRef, err := repo.Reference(headRefName, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get reference %s: %w", headRefName, err)
	}

	ref := plumbing.NewHashReference(branchRefName, headRef.Hash())

	err = repo.Storer.SetReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to save new branch: %w", err)
	}

	return ref, nil
}

func createOrphanBranch(repo *git.Repository, branchRefName plumbing.ReferenceName) (*plumbing.Reference, error) {
	slog.Debug("creating branch", "orphan", true, "branchName", branchRefName)
	symRef := plumbing.NewSymbolicReference(plumbing.HEAD, branchRefName)

	err := repo.Storer.SetReference(symRef)
	if err != nil {
		return nil, fmt.Errorf("failed to save new branch: %w", err)
	}

	return symRef, nil
}
