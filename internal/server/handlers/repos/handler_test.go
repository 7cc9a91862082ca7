package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/repodash/repodash/internal/git"
	"github.com/repodash/repodash/internal/repos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticHandle struct {
	status git.Status
}

func (h staticHandle) Status(context.Context) (git.Status, error) { return h.status, nil }
func (h staticHandle) Fetch(context.Context) error                 { return nil }
func (h staticHandle) Close() error                                { return nil }

type staticOpener map[string]git.Status

func (o staticOpener) Open(_ context.Context, path string) (git.Handle, error) {
	status, ok := o[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", git.ErrNotARepository, path)
	}
	return staticHandle{status: status}, nil
}

type memStore struct {
	mu    sync.Mutex
	paths []string
}

func (s *memStore) Load(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.paths...), nil
}

func (s *memStore) Save(_ context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append([]string{}, paths...)
	return nil
}

func setup(t *testing.T) (*fiber.App, *repos.Registry) {
	t.Helper()

	opener := staticOpener{
		"/work/a": {Branch: "main", Ahead: 1},
		"/work/b": {Branch: "dev", LastFetch: time.Now().Add(-2 * time.Hour)},
		"/work/c": {Branch: "main"},
	}
	logger := zaptest.NewLogger(t)

	registry := repos.New(opener, &memStore{}, repos.Config{}, nil, logger)
	t.Cleanup(func() { assert.NoError(t, registry.Close()) })

	require.True(t, registry.AddRepo(context.Background(), "/work/a"))
	require.True(t, registry.AddRepo(context.Background(), "/work/b"))

	app := fiber.New()
	NewHandler(registry, validator.New(), logger).Register(app.Group("/api/v1"))

	return app, registry
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHandler_List(t *testing.T) {
	app, _ := setup(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/repos", "")
	require.Equal(t, http.StatusOK, code)

	var list []RepoResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)

	assert.Equal(t, "/work/a", list[0].Path)
	assert.Equal(t, "main", list[0].Branch)
	assert.Equal(t, 1, list[0].Ahead)
	assert.True(t, list[0].Available)
	assert.Equal(t, never, list[0].LastSyncHuman)

	assert.Equal(t, "/work/b", list[1].Path)
	assert.Equal(t, "2 hours ago", list[1].LastSyncHuman)
	assert.NotNil(t, list[1].LastSync)
}

func TestHandler_Status(t *testing.T) {
	app, _ := setup(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/repos/status?path=/work/a", "")
	require.Equal(t, http.StatusOK, code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "main", status.Branch)

	code, _ = do(t, app, http.MethodGet, "/api/v1/repos/status?path=/work/zzz", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, app, http.MethodGet, "/api/v1/repos/status", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandler_AddAndRemove(t *testing.T) {
	app, registry := setup(t)

	code, body := do(t, app, http.MethodPost, "/api/v1/repos", `{"path": "/work/c"}`)
	require.Equal(t, http.StatusAccepted, code)
	assert.JSONEq(t, `{"started": true}`, string(body))

	require.Eventually(t, func() bool {
		_, busy := registry.Busy()
		return !busy && len(registry.Paths()) == 3
	}, 5*time.Second, 5*time.Millisecond)

	code, _ = do(t, app, http.MethodPost, "/api/v1/repos", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodDelete, "/api/v1/repos?path=/work/a", "")
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, []string{"/work/b", "/work/c"}, registry.Paths())

	code, _ = do(t, app, http.MethodDelete, "/api/v1/repos?path=/work/a", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandler_Tree(t *testing.T) {
	app, _ := setup(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/repos/tree", "")
	require.Equal(t, http.StatusOK, code)

	var root NodeResponse
	require.NoError(t, json.Unmarshal(body, &root))
	assert.Equal(t, "dir", root.Kind)
	assert.Equal(t, "work", root.Name)
	assert.Equal(t, "/work", root.Path)
	require.Len(t, root.Children, 2)

	a := root.Children[0]
	assert.Equal(t, "repo", a.Kind)
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "/work/a", a.Path)
	assert.Equal(t, 1, a.Depth)
	require.NotNil(t, a.Status)
	assert.Equal(t, "main", a.Status.Branch)
}

func TestHandler_FlatTree(t *testing.T) {
	app, _ := setup(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/repos/tree?flat=true", "")
	require.Equal(t, http.StatusOK, code)

	var rows []NodeResponse
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 3)

	depths := []int{rows[0].Depth, rows[1].Depth, rows[2].Depth}
	assert.Equal(t, []int{0, 1, 1}, depths)
	assert.Equal(t, "b", rows[2].Name)
	for _, row := range rows {
		assert.Empty(t, row.Children)
	}
}

func TestHandler_SelectRow(t *testing.T) {
	app, _ := setup(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/repos/tree/select?row=2", "")
	require.Equal(t, http.StatusOK, code)

	var repo RepoResponse
	require.NoError(t, json.Unmarshal(body, &repo))
	assert.Equal(t, "/work/b", repo.Path)

	code, _ = do(t, app, http.MethodGet, "/api/v1/repos/tree/select?row=0", "")
	assert.Equal(t, http.StatusNotFound, code, "row 0 is a directory")

	code, _ = do(t, app, http.MethodGet, "/api/v1/repos/tree/select?row=9", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandler_BulkOperations(t *testing.T) {
	app, registry := setup(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/repos/busy", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", string(body))

	code, _ = do(t, app, http.MethodPost, "/api/v1/repos/cancel", "")
	assert.Equal(t, http.StatusConflict, code)

	code, body = do(t, app, http.MethodPost, "/api/v1/repos/fetch", "")
	require.Equal(t, http.StatusAccepted, code)
	assert.JSONEq(t, `{"started": true}`, string(body))

	require.Eventually(t, func() bool {
		_, busy := registry.Busy()
		return !busy
	}, 5*time.Second, 5*time.Millisecond)

	code, _ = do(t, app, http.MethodPost, "/api/v1/repos/refresh", "")
	assert.Equal(t, http.StatusAccepted, code)
}

func TestHandler_SingleEntryOperations(t *testing.T) {
	app, _ := setup(t)

	code, body := do(t, app, http.MethodPost, "/api/v1/repos/refresh-one?path=/work/a", "")
	require.Equal(t, http.StatusOK, code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "main", status.Branch)

	code, _ = do(t, app, http.MethodPost, "/api/v1/repos/fetch-one?path=/work/b", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, app, http.MethodPost, "/api/v1/repos/fetch-one?path=/work/zzz", "")
	assert.Equal(t, http.StatusNotFound, code)
}
