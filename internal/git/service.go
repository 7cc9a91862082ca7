package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"go.uber.org/zap"
)

const fetchHead = "FETCH_HEAD"

// Service opens working copies with go-git.
type Service struct {
	config Config
	logger *zap.Logger
}

// NewService creates a new go-git backed Opener.
func NewService(config Config, logger *zap.Logger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// Open implements Opener.
func (s *Service) Open(_ context.Context, path string) (Handle, error) {
	if !IsRepository(path, s.config.marker()) {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, path)
	}

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, path)
	}
	if err != nil {
		s.logger.Error("failed to open repository", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	return &repository{
		path:   path,
		repo:   repo,
		config: s.config,
		logger: s.logger.With(zap.String("path", path)),
	}, nil
}

type repository struct {
	path   string
	repo   *git.Repository
	config Config
	logger *zap.Logger
}

// Status implements Handle.
func (r *repository) Status(ctx context.Context) (Status, error) {
	ctx, cancel := r.config.withTimeout(ctx)
	defer cancel()

	var status Status

	head, err := r.repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Unborn branch: HEAD points at a branch with no commits yet.
		ref, refErr := r.repo.Reference(plumbing.HEAD, false)
		if refErr != nil {
			return Status{}, fmt.Errorf("%w: %w", ErrOperationFailed, refErr)
		}
		status.Branch = ref.Target().Short()
		head = nil
	case err != nil:
		return Status{}, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	case head.Name().IsBranch():
		status.Branch = head.Name().Short()
	default:
		status.Branch = "(" + head.Hash().String()[:7] + ")"
	}

	if head != nil && head.Name().IsBranch() {
		status.Ahead, status.Behind, err = r.aheadBehind(ctx, head)
		if err != nil {
			return Status{}, err
		}
	}

	status.Staged, status.Unstaged, err = r.changes()
	if err != nil {
		return Status{}, err
	}

	status.LastFetch = r.lastFetch()

	return status, nil
}

// aheadBehind counts commits on either side of the branch's upstream. A
// branch without upstream, or whose upstream was never fetched, is level.
func (r *repository) aheadBehind(ctx context.Context, head *plumbing.Reference) (int, int, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	branch, ok := cfg.Branches[head.Name().Short()]
	if !ok || branch.Remote == "" || branch.Merge == "" {
		return 0, 0, nil
	}

	upstreamName := branch.Merge
	if branch.Remote != "." {
		upstreamName = plumbing.NewRemoteReferenceName(branch.Remote, branch.Merge.Short())
	}

	upstream, err := r.repo.Reference(upstreamName, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	if upstream.Hash() == head.Hash() {
		return 0, 0, nil
	}

	return r.divergence(ctx, head.Hash(), upstream.Hash())
}

const (
	sideLocal uint8 = 1 << iota
	sideUpstream

	sideBoth = sideLocal | sideUpstream
)

type pending struct {
	commit *object.Commit
	sides  uint8
}

// divergence counts the commits reachable from only one of local and
// upstream. Commits are visited newest first; the walk ends once every
// queued commit is reachable from both sides and is older than every
// one-sided commit seen so far.
func (r *repository) divergence(ctx context.Context, local, upstream plumbing.Hash) (int, int, error) {
	sides := make(map[plumbing.Hash]uint8)
	queue := priorityqueue.NewWith(func(a, b interface{}) int {
		return b.(pending).commit.Committer.When.Compare(a.(pending).commit.Committer.When)
	})

	oneSided := 0
	push := func(c *object.Commit, side uint8) {
		merged := sides[c.Hash] | side
		if merged == sides[c.Hash] {
			return
		}
		sides[c.Hash] = merged
		if merged != sideBoth {
			oneSided++
		}
		queue.Enqueue(pending{commit: c, sides: merged})
	}

	for hash, side := range map[plumbing.Hash]uint8{local: sideLocal, upstream: sideUpstream} {
		c, err := r.repo.CommitObject(hash)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %w", ErrOperationFailed, err)
		}
		push(c, side)
	}

	var oldest time.Time
	for !queue.Empty() {
		if err := ctx.Err(); err != nil {
			return 0, 0, fmt.Errorf("%w: %w", ErrOperationFailed, err)
		}

		if oneSided == 0 {
			top, _ := queue.Peek()
			if top.(pending).commit.Committer.When.Before(oldest) {
				break
			}
		}

		value, _ := queue.Dequeue()
		item := value.(pending)
		if item.sides != sideBoth {
			oneSided--
		}

		current := sides[item.commit.Hash]
		if current != sideBoth {
			if when := item.commit.Committer.When; oldest.IsZero() || when.Before(oldest) {
				oldest = when
			}
		}

		for _, parentHash := range item.commit.ParentHashes {
			parent, err := r.repo.CommitObject(parentHash)
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				// Shallow boundary.
				continue
			}
			if err != nil {
				return 0, 0, fmt.Errorf("%w: %w", ErrOperationFailed, err)
			}
			push(parent, current)
		}
	}

	ahead, behind := 0, 0
	for _, side := range sides {
		switch side {
		case sideLocal:
			ahead++
		case sideUpstream:
			behind++
		}
	}

	return ahead, behind, nil
}

func (r *repository) changes() (int, int, error) {
	worktree, err := r.repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	files, err := worktree.Status()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	var staged, unstaged int
	for _, file := range files {
		if file.Staging != git.Unmodified && file.Staging != git.Untracked {
			staged++
		}
		if file.Worktree != git.Unmodified {
			unstaged++
		}
	}

	return staged, unstaged, nil
}

func (r *repository) lastFetch() time.Time {
	info, err := os.Stat(filepath.Join(r.path, r.config.marker(), fetchHead))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Fetch implements Handle.
func (r *repository) Fetch(ctx context.Context) error {
	ctx, cancel := r.config.withTimeout(ctx)
	defer cancel()

	remote := r.config.remote()
	r.logger.Debug("fetching repository", zap.String("remote", remote))

	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrRemoteNotFound):
		return fmt.Errorf("%w: %s", ErrNoRemote, remote)
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	r.logger.Warn("failed to fetch repository", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// Close implements Handle.
func (r *repository) Close() error {
	if closer, ok := r.repo.Storer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var (
	_ Opener = (*Service)(nil)
	_ Handle = (*repository)(nil)
)
