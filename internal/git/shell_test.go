package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCountPorcelain(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		staged   int
		unstaged int
	}{
		{"empty", "", 0, 0},
		{"staged only", "M  a.go\nA  b.go\n", 2, 0},
		{"worktree only", " M a.go\n D b.go\n", 0, 2},
		{"both sides", "MM a.go\n", 1, 1},
		{"untracked", "?? new.go\n", 0, 1},
		{"renamed", "R  old.go -> new.go\n", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staged, unstaged := countPorcelain(tt.out)
			assert.Equal(t, tt.staged, staged)
			assert.Equal(t, tt.unstaged, unstaged)
		})
	}
}

func TestParseLeftRight(t *testing.T) {
	left, right := parseLeftRight("3\t5\n")
	assert.Equal(t, 3, left)
	assert.Equal(t, 5, right)

	left, right = parseLeftRight("garbage")
	assert.Zero(t, left)
	assert.Zero(t, right)
}

func TestShell_Status(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := filepath.Join(t.TempDir(), "repo")
	repo := initRepo(t, dir)

	shell := NewShell(Config{}, zaptest.NewLogger(t))

	_, err := shell.Open(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNotARepository)

	handle, err := shell.Open(context.Background(), dir)
	require.NoError(t, err)
	defer handle.Close()

	status, err := handle.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, branchName(t, repo), status.Branch)
	assert.Zero(t, status.Staged)
	assert.Zero(t, status.Unstaged)

	err = handle.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestShell_OpenTimeout(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := filepath.Join(t.TempDir(), "repo")
	initRepo(t, dir)

	shell := NewShell(Config{Timeout: time.Nanosecond}, zaptest.NewLogger(t))

	_, err := shell.Open(context.Background(), dir)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
