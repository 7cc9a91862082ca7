package repos

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/repodash/repodash/internal/git"
	"go.uber.org/zap"
)

// Entry caches the status of one tracked path. Reads are lock-free and
// always return a snapshot produced by a single Refresh or Fetch.
type Entry struct {
	path    string
	opener  git.Opener
	metrics *Metrics
	logger  *zap.Logger

	// mu serializes Refresh, Fetch and Close on this entry.
	mu          sync.Mutex
	handle      git.Handle
	lastFetched time.Time

	// opMu guards closed and the cancel func of the running operation, so
	// Close can interrupt it without waiting for mu.
	opMu   sync.Mutex
	closed bool
	cancel context.CancelFunc

	status atomic.Pointer[Status]
}

// newEntry probes path and performs the initial refresh. A path that is not
// a repository yields an unavailable entry, not an error.
func newEntry(ctx context.Context, path string, opener git.Opener, metrics *Metrics, logger *zap.Logger) *Entry {
	e := &Entry{
		path:    path,
		opener:  opener,
		metrics: metrics,
		logger:  logger.With(zap.String("path", path)),
	}
	e.status.Store(&Status{Message: notRefreshed})

	e.mu.Lock()
	defer e.mu.Unlock()

	e.update(ctx, opProbe)
	return e
}

func (e *Entry) Path() string {
	return e.path
}

// Status returns the current snapshot.
func (e *Entry) Status() Status {
	return *e.status.Load()
}

// Refresh recomputes the status from the working copy.
func (e *Entry) Refresh(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.update(ctx, opRefresh)
}

// Fetch fetches the configured remote, then recomputes the status.
func (e *Entry) Fetch(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.update(ctx, opFetch)
}

// Close cancels the running Refresh or Fetch, if any, and releases the
// underlying handle. Later Refresh and Fetch calls are no-ops.
func (e *Entry) Close() error {
	e.opMu.Lock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.opMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.release()
}

// begin registers a cancellable operation. It reports false once the entry
// is closed.
func (e *Entry) begin(ctx context.Context) (context.Context, bool) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if e.closed {
		return nil, false
	}

	ctx, e.cancel = context.WithCancel(ctx)
	return ctx, true
}

func (e *Entry) end() {
	e.opMu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.opMu.Unlock()

	cancel()
}

func (e *Entry) update(parent context.Context, op string) {
	ctx, ok := e.begin(parent)
	if !ok {
		return
	}
	defer e.end()

	started := time.Now()
	defer func() { e.metrics.observe(op, time.Since(started)) }()

	handle, err := e.open(ctx)
	if err == nil && op == opFetch {
		if err = handle.Fetch(ctx); err == nil {
			e.lastFetched = time.Now()
		}
	}

	var status git.Status
	if err == nil {
		status, err = handle.Status(ctx)
	}

	if err != nil {
		if ctx.Err() != nil {
			// Cancelled by the caller: keep the previous snapshot.
			e.logger.Debug("status update cancelled", zap.String("operation", op), zap.Error(err))
			return
		}

		e.logger.Warn("repository unavailable", zap.String("operation", op), zap.Error(err))
		if relErr := e.release(); relErr != nil {
			e.logger.Warn("failed to close repository", zap.Error(relErr))
		}
		e.status.Store(&Status{
			Message:   err.Error(),
			CheckedAt: time.Now(),
		})
		return
	}

	lastSync := status.LastFetch
	if e.lastFetched.After(lastSync) {
		lastSync = e.lastFetched
	}

	e.status.Store(&Status{
		Branch:    status.Branch,
		Ahead:     status.Ahead,
		Behind:    status.Behind,
		Unstaged:  status.Unstaged,
		Staged:    status.Staged,
		LastSync:  lastSync,
		Available: true,
		CheckedAt: time.Now(),
	})
}

// open returns the cached handle, probing the path again if the previous
// attempt failed.
func (e *Entry) open(ctx context.Context) (git.Handle, error) {
	if e.handle != nil {
		return e.handle, nil
	}

	handle, err := e.opener.Open(ctx, e.path)
	if err != nil {
		return nil, err
	}

	e.handle = handle
	return handle, nil
}

func (e *Entry) release() error {
	if e.handle == nil {
		return nil
	}

	err := e.handle.Close()
	e.handle = nil
	return err
}
