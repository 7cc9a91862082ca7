package repos

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/repodash/repodash/internal/git"
	"github.com/repodash/repodash/internal/pathstore"
	"github.com/repodash/repodash/internal/tree"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	descLoad    = "Loading repositories"
	descRefresh = "Refreshing repositories"
	descFetch   = "Fetching repositories"
)

// bulk is the operation holding the single-flight slot.
type bulk struct {
	Busy
	cancel context.CancelFunc
}

// Registry owns the tracked entries. At most one bulk operation (add, scan,
// refresh-all, fetch-all, load) runs at a time; requests made while one is
// in flight are dropped and reported as not started.
type Registry struct {
	opener  git.Opener
	store   pathstore.Store
	config  Config
	metrics *Metrics
	logger  *zap.Logger

	// mu guards entries, order, busy, tree and closed.
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
	busy    *bulk
	tree    *tree.Dir
	closed  bool

	// saveMu serializes writes of the path list.
	saveMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opener git.Opener, store pathstore.Store, config Config, metrics *Metrics, logger *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())

	return &Registry{
		opener:  opener,
		store:   store,
		config:  config,
		metrics: metrics,
		logger:  logger,

		entries: make(map[string]*Entry),

		ctx:    ctx,
		cancel: cancel,
	}
}

// Load reads the saved paths and probes each of them. It blocks until every
// entry has been probed.
func (r *Registry) Load(ctx context.Context) error {
	paths, dirty, err := r.loadPaths(ctx)
	if err != nil {
		return err
	}

	if !r.run(ctx, descLoad, func(ctx context.Context) { r.restore(ctx, paths, dirty) }) {
		return fmt.Errorf("%w: %s", ErrBusy, descLoad)
	}
	return nil
}

// Restore reads the saved paths and probes them in the background. Only the
// read is synchronous, so a broken store still fails the caller.
func (r *Registry) Restore(ctx context.Context) error {
	paths, dirty, err := r.loadPaths(ctx)
	if err != nil {
		return err
	}

	if !r.start(descLoad, func(ctx context.Context) { r.restore(ctx, paths, dirty) }) {
		return fmt.Errorf("%w: %s", ErrBusy, descLoad)
	}
	return nil
}

// loadPaths returns the saved paths in canonical form and whether that
// differs from what was saved.
func (r *Registry) loadPaths(ctx context.Context) ([]string, bool, error) {
	saved, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Error("failed to load repository list", zap.Error(err))
		return nil, false, err
	}

	paths := make([]string, 0, len(saved))
	for _, p := range saved {
		c, err := canonical(p)
		if err != nil {
			r.logger.Warn("skipping saved path", zap.String("path", p), zap.Error(err))
			continue
		}
		paths = append(paths, c)
	}

	paths = lo.Uniq(paths)
	return paths, !slices.Equal(saved, paths), nil
}

func (r *Registry) restore(ctx context.Context, paths []string, dirty bool) {
	added := r.insert(r.probe(ctx, paths))

	if len(added) < len(paths) {
		// Cancelled: keep the saved list so skipped paths are not lost.
		r.logger.Warn("repository loading interrupted",
			zap.Int("loaded", len(added)),
			zap.Int("saved", len(paths)),
		)
		return
	}

	r.logger.Info("repositories loaded", zap.Int("count", len(added)))
	if dirty {
		r.persist()
	}
}

// AddRepo starts tracking path and waits for the initial probe. It reports
// false if another bulk operation is running. Adding a tracked path does
// nothing.
func (r *Registry) AddRepo(ctx context.Context, path string) bool {
	return r.run(ctx, "Adding "+path, func(ctx context.Context) { r.addRepo(ctx, path) })
}

// StartAddRepo is AddRepo running in the background.
func (r *Registry) StartAddRepo(path string) bool {
	return r.start("Adding "+path, func(ctx context.Context) { r.addRepo(ctx, path) })
}

func (r *Registry) addRepo(ctx context.Context, path string) {
	path, err := canonical(path)
	if err != nil {
		r.logger.Warn("invalid repository path", zap.Error(err))
		return
	}

	if _, ok := r.Get(path); ok {
		return
	}

	if added := r.insert([]*Entry{r.newEntry(ctx, path)}); len(added) > 0 {
		r.persist()
	}
}

// AddReposInDirectory tracks every immediate subdirectory of dir that holds
// the repository marker. Tracked paths are skipped.
func (r *Registry) AddReposInDirectory(ctx context.Context, dir string) bool {
	return r.run(ctx, "Scanning "+dir, func(ctx context.Context) { r.addReposInDirectory(ctx, dir) })
}

// StartAddReposInDirectory is AddReposInDirectory running in the background.
func (r *Registry) StartAddReposInDirectory(dir string) bool {
	return r.start("Scanning "+dir, func(ctx context.Context) { r.addReposInDirectory(ctx, dir) })
}

func (r *Registry) addReposInDirectory(ctx context.Context, dir string) {
	dir, err := canonical(dir)
	if err != nil {
		r.logger.Warn("invalid directory", zap.Error(err))
		return
	}

	found, err := git.Discover(dir, r.config.Marker)
	if err != nil {
		r.logger.Warn("failed to scan directory", zap.String("dir", dir), zap.Error(err))
		return
	}

	r.mu.Lock()
	candidates := lo.Filter(found, func(p string, _ int) bool {
		_, ok := r.entries[p]
		return !ok
	})
	r.mu.Unlock()

	added := r.insert(r.probe(ctx, candidates))

	r.logger.Info("directory scanned",
		zap.String("dir", dir),
		zap.Int("found", len(found)),
		zap.Int("added", len(added)),
	)
	if len(added) > 0 {
		r.persist()
	}
}

// RemoveRepo stops tracking path and releases its resources. It is allowed
// while a bulk operation runs and reports whether path was tracked.
func (r *Registry) RemoveRepo(path string) bool {
	path, err := canonical(path)
	if err != nil {
		return false
	}

	e, ok := r.Get(path)
	if !ok {
		return false
	}

	// Interrupts an operation already running on this entry.
	if err := e.Close(); err != nil {
		r.logger.Warn("failed to close repository", zap.String("path", path), zap.Error(err))
	}

	r.mu.Lock()
	if r.entries[path] != e {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, path)
	r.order = slices.DeleteFunc(r.order, func(p string) bool { return p == path })
	r.tree = nil
	r.mu.Unlock()

	r.logger.Info("repository removed", zap.String("path", path))
	r.persist()
	r.updateMetrics()

	return true
}

// RefreshAll recomputes the status of every entry, waiting for all of them.
func (r *Registry) RefreshAll(ctx context.Context) bool {
	return r.run(ctx, descRefresh, r.refreshAll)
}

// StartRefreshAll is RefreshAll running in the background.
func (r *Registry) StartRefreshAll() bool {
	return r.start(descRefresh, r.refreshAll)
}

func (r *Registry) refreshAll(ctx context.Context) {
	r.fanOut(ctx, r.Entries(), (*Entry).Refresh)
}

// FetchAll fetches every entry and recomputes its status.
func (r *Registry) FetchAll(ctx context.Context) bool {
	return r.run(ctx, descFetch, r.fetchAll)
}

// StartFetchAll is FetchAll running in the background.
func (r *Registry) StartFetchAll() bool {
	return r.start(descFetch, r.fetchAll)
}

func (r *Registry) fetchAll(ctx context.Context) {
	r.fanOut(ctx, r.Entries(), (*Entry).Fetch)
}

// Refresh recomputes the status of a single entry. It does not wait for a
// running bulk operation.
func (r *Registry) Refresh(ctx context.Context, path string) error {
	e, err := r.lookup(path)
	if err != nil {
		return err
	}

	e.Refresh(ctx)
	r.updateMetrics()
	return nil
}

// Fetch fetches a single entry and recomputes its status.
func (r *Registry) Fetch(ctx context.Context, path string) error {
	e, err := r.lookup(path)
	if err != nil {
		return err
	}

	e.Fetch(ctx)
	r.updateMetrics()
	return nil
}

// Status returns the current snapshot of the entry at path.
func (r *Registry) Status(path string) (Status, error) {
	e, err := r.lookup(path)
	if err != nil {
		return Status{}, err
	}
	return e.Status(), nil
}

func (r *Registry) lookup(path string) (*Entry, error) {
	c, err := canonical(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	e, ok := r.Get(c)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, c)
	}
	return e, nil
}

// Get returns the entry tracked under the canonical path.
func (r *Registry) Get(path string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[path]
	return e, ok
}

// Entries returns the tracked entries in insertion order.
func (r *Registry) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Map(r.order, func(p string, _ int) *Entry { return r.entries[p] })
}

// Paths returns the tracked paths in insertion order.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.order)
}

// Tree returns the grouped view of the tracked paths. The result is shared
// between callers until the next add or remove and must not be modified.
func (r *Registry) Tree() *tree.Dir {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tree == nil {
		r.tree = tree.Build(r.order)
	}
	return r.tree
}

// Busy describes the running bulk operation, if any.
func (r *Registry) Busy() (Busy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy == nil {
		return Busy{}, false
	}
	return r.busy.Busy, true
}

// CancelBulk stops the running bulk operation from starting new per-entry
// tasks. Tasks already running finish on their own.
func (r *Registry) CancelBulk() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy == nil {
		return false
	}

	r.logger.Info("cancelling bulk operation",
		zap.Stringer("id", r.busy.ID),
		zap.String("description", r.busy.Description),
	)
	r.busy.cancel()
	return true
}

// StartAutoRefresh requests a background refresh of every entry each
// interval until the registry is closed. Ticks that find a bulk operation
// running are dropped.
func (r *Registry) StartAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.StartRefreshAll()
			}
		}
	}()
}

// Close cancels background work, waits for it and releases every entry.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.busy != nil {
		r.busy.cancel()
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	var errs []error
	for _, e := range r.Entries() {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Path(), err))
		}
	}

	return errors.Join(errs...)
}

// acquire takes the single-flight slot. The returned context is cancelled
// by CancelBulk, Close or release.
func (r *Registry) acquire(ctx context.Context, description string) (context.Context, uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.busy != nil {
		var running string
		if r.busy != nil {
			running = r.busy.Description
		}
		r.logger.Debug("bulk operation dropped",
			zap.String("description", description),
			zap.String("running", running),
			zap.Bool("closed", r.closed),
		)
		r.metrics.bulkRequested(resultDropped)
		return nil, uuid.Nil, false
	}

	ctx, cancel := context.WithCancel(ctx)
	r.busy = &bulk{
		Busy: Busy{
			ID:          uuid.New(),
			Description: description,
			StartedAt:   time.Now(),
		},
		cancel: cancel,
	}
	r.wg.Add(1)
	r.metrics.bulkRequested(resultStarted)

	r.logger.Info("bulk operation started",
		zap.Stringer("id", r.busy.ID),
		zap.String("description", description),
	)

	return ctx, r.busy.ID, true
}

func (r *Registry) release(id uuid.UUID) {
	defer r.wg.Done()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy == nil || r.busy.ID != id {
		return
	}

	r.busy.cancel()
	r.logger.Info("bulk operation finished",
		zap.Stringer("id", id),
		zap.String("description", r.busy.Description),
		zap.Duration("duration", time.Since(r.busy.StartedAt)),
	)
	r.busy = nil
}

// run executes fn as a bulk operation on the calling goroutine.
func (r *Registry) run(ctx context.Context, description string, fn func(context.Context)) bool {
	ctx, id, ok := r.acquire(ctx, description)
	if !ok {
		return false
	}
	defer r.release(id)

	fn(ctx)
	r.updateMetrics()
	return true
}

// start executes fn as a bulk operation on a background goroutine.
func (r *Registry) start(description string, fn func(context.Context)) bool {
	ctx, id, ok := r.acquire(r.ctx, description)
	if !ok {
		return false
	}

	go func() {
		defer r.release(id)

		fn(ctx)
		r.updateMetrics()
	}()
	return true
}

// fanOut applies fn to every entry with bounded concurrency and waits for
// all started tasks. A cancelled ctx stops new tasks from starting.
func (r *Registry) fanOut(ctx context.Context, entries []*Entry, fn func(*Entry, context.Context)) {
	g := new(errgroup.Group)
	g.SetLimit(r.config.concurrency())

	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(e, ctx)
			return nil
		})
	}

	_ = g.Wait()
}

// probe creates an entry per path concurrently. The result keeps the order
// of paths; paths skipped after cancellation are left out.
func (r *Registry) probe(ctx context.Context, paths []string) []*Entry {
	created := make([]*Entry, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(r.config.concurrency())

	for i, p := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			created[i] = r.newEntry(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return lo.Compact(created)
}

func (r *Registry) newEntry(ctx context.Context, path string) *Entry {
	return newEntry(ctx, path, r.opener, r.metrics, r.logger)
}

// insert adds the entries that are not tracked yet and returns them. The
// others are closed.
func (r *Registry) insert(entries []*Entry) []*Entry {
	r.mu.Lock()
	added := make([]*Entry, 0, len(entries))
	var rejected []*Entry
	for _, e := range entries {
		if _, ok := r.entries[e.Path()]; ok || r.closed {
			rejected = append(rejected, e)
			continue
		}
		r.entries[e.Path()] = e
		r.order = append(r.order, e.Path())
		added = append(added, e)
	}
	if len(added) > 0 {
		r.tree = nil
	}
	r.mu.Unlock()

	for _, e := range rejected {
		_ = e.Close()
	}
	for _, e := range added {
		r.logger.Info("repository added",
			zap.String("path", e.Path()),
			zap.Bool("available", e.Status().Available),
		)
	}

	return added
}

// persist saves the current path list. Failures are logged and counted, the
// in-memory state is kept.
func (r *Registry) persist() {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	paths := r.Paths()
	if err := r.store.Save(context.WithoutCancel(r.ctx), paths); err != nil {
		r.metrics.saveFailed()
		r.logger.Error("failed to save repository list", zap.Int("count", len(paths)), zap.Error(err))
	}
}

func (r *Registry) updateMetrics() {
	r.metrics.setEntries(r.Entries())
}

func canonical(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidPath, path, err)
	}
	return abs, nil
}
