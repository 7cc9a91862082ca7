package repos

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/repodash/repodash/internal/git"
)

// fakeRepo is a scripted working copy. A non-nil gate blocks Status until it
// is closed or the context is done.
type fakeRepo struct {
	mu        sync.Mutex
	status    git.Status
	statusErr error
	fetchErr  error
	gate      chan struct{}

	statusCalls int
	fetchCalls  int
	closeCalls  int
}

func (r *fakeRepo) set(status git.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *fakeRepo) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusErr = err
}

func (r *fakeRepo) block() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	return r.gate
}

func (r *fakeRepo) calls() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusCalls, r.fetchCalls
}

type fakeHandle struct {
	repo *fakeRepo
}

func (h *fakeHandle) Status(ctx context.Context) (git.Status, error) {
	h.repo.mu.Lock()
	h.repo.statusCalls++
	gate := h.repo.gate
	h.repo.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return git.Status{}, ctx.Err()
		}
	}

	h.repo.mu.Lock()
	defer h.repo.mu.Unlock()
	if h.repo.statusErr != nil {
		return git.Status{}, h.repo.statusErr
	}
	return h.repo.status, nil
}

func (h *fakeHandle) Fetch(_ context.Context) error {
	h.repo.mu.Lock()
	defer h.repo.mu.Unlock()
	h.repo.fetchCalls++
	return h.repo.fetchErr
}

func (h *fakeHandle) Close() error {
	h.repo.mu.Lock()
	defer h.repo.mu.Unlock()
	h.repo.closeCalls++
	return nil
}

type fakeOpener struct {
	mu    sync.Mutex
	repos map[string]*fakeRepo
	opens int
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{repos: make(map[string]*fakeRepo)}
}

func (o *fakeOpener) add(path string, status git.Status) *fakeRepo {
	o.mu.Lock()
	defer o.mu.Unlock()

	repo := &fakeRepo{status: status}
	o.repos[path] = repo
	return repo
}

func (o *fakeOpener) Open(_ context.Context, path string) (git.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opens++
	repo, ok := o.repos[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", git.ErrNotARepository, path)
	}
	return &fakeHandle{repo: repo}, nil
}

// memStore is an in-memory pathstore.Store.
type memStore struct {
	mu      sync.Mutex
	paths   []string
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return slices.Clone(s.paths), nil
}

func (s *memStore) Save(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.paths = slices.Clone(paths)
	return nil
}

func (s *memStore) saved() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.paths), s.saves
}
