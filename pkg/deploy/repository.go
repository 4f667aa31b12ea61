package deploy

import "context"

// VersionControl is bound to a single target working tree.
type VersionControl interface {
	// IsRepository reports whether the working tree is already a repository.
	IsRepository(ctx context.Context) (bool, error)
	// Init initialises a repository whose unborn HEAD points at branch.
	Init(ctx context.Context, branch string) error
	// EnsureRemote registers url as the remote, updating it when it differs.
	EnsureRemote(ctx context.Context, url string) error
	// Fetch and Pull are no-ops when no remote is registered.
	Fetch(ctx context.Context) error
	Pull(ctx context.Context, branch string) error
	// BranchExists checks local branches and remote-tracking branches.
	BranchExists(ctx context.Context, branch string) (bool, error)
	Checkout(ctx context.Context, branch string, create bool) error
	CurrentBranch(ctx context.Context) (string, error)
	StageAll(ctx context.Context) error
	HasStagedChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string, author Author) (string, error)
	// Push returns ErrNoRemote when no remote is registered.
	Push(ctx context.Context, branch string, setUpstream bool) error
}
