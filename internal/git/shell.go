package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Shell opens working copies through the git command line.
type Shell struct {
	config Config
	logger *zap.Logger
}

// NewShell creates a new shell-based Opener.
func NewShell(config Config, logger *zap.Logger) *Shell {
	return &Shell{
		config: config,
		logger: logger,
	}
}

// Open implements Opener.
func (s *Shell) Open(ctx context.Context, path string) (Handle, error) {
	if !IsRepository(path, s.config.marker()) {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, path)
	}

	h := &shellHandle{
		dir:    path,
		config: s.config,
		logger: s.logger.With(zap.String("path", path)),
	}

	ctx, cancel := s.config.withTimeout(ctx)
	defer cancel()

	if _, err := h.run(ctx, "rev-parse", "--git-dir"); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrOperationFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrNotARepository, err)
	}

	return h, nil
}

type shellHandle struct {
	dir    string
	config Config
	logger *zap.Logger
}

// commandError carries git's stderr so fetch failures can be classified.
type commandError struct {
	args   []string
	stderr string
	err    error
}

func (e *commandError) Error() string {
	msg := strings.TrimSpace(e.stderr)
	if msg == "" {
		msg = e.err.Error()
	}
	return "git " + strings.Join(e.args, " ") + ": " + msg
}

func (e *commandError) Unwrap() error {
	return e.err
}

func (h *shellHandle) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"--no-optional-locks"}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Dir = h.dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &commandError{args: args, stderr: stderr.String(), err: err}
	}

	return stdout.String(), nil
}

// Status implements Handle.
func (h *shellHandle) Status(ctx context.Context) (Status, error) {
	ctx, cancel := h.config.withTimeout(ctx)
	defer cancel()

	var status Status

	branch, err := h.branch(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}
	status.Branch = branch

	out, err := h.run(ctx, "status", "--porcelain=v1", "-uall")
	if err != nil {
		return Status{}, fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}
	status.Staged, status.Unstaged = countPorcelain(out)

	// No upstream is not an error: the branch is level.
	if out, err = h.run(ctx, "rev-list", "--left-right", "--count", "@{upstream}...HEAD"); err == nil {
		status.Behind, status.Ahead = parseLeftRight(out)
	}

	if out, err = h.run(ctx, "rev-parse", "--git-path", fetchHead); err == nil {
		p := strings.TrimSpace(out)
		if !filepath.IsAbs(p) {
			p = filepath.Join(h.dir, p)
		}
		if info, statErr := os.Stat(p); statErr == nil {
			status.LastFetch = info.ModTime()
		}
	}

	return status, nil
}

func (h *shellHandle) branch(ctx context.Context) (string, error) {
	out, err := h.run(ctx, "branch", "--show-current")
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out), nil
	}

	// Detached HEAD
	out, err = h.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return "(" + strings.TrimSpace(out) + ")", nil
}

// Fetch implements Handle.
func (h *shellHandle) Fetch(ctx context.Context) error {
	ctx, cancel := h.config.withTimeout(ctx)
	defer cancel()

	remote := h.config.remote()
	h.logger.Debug("fetching repository", zap.String("remote", remote))

	_, err := h.run(ctx, "fetch", "--quiet", remote)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, ctxErr)
	}

	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		stderr := strings.ToLower(cmdErr.stderr)
		switch {
		case strings.Contains(stderr, "does not appear to be a git repository"),
			strings.Contains(stderr, "no such remote"):
			return fmt.Errorf("%w: %s", ErrNoRemote, remote)
		case strings.Contains(stderr, "authentication failed"),
			strings.Contains(stderr, "could not read username"),
			strings.Contains(stderr, "permission denied"):
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
	}

	h.logger.Warn("failed to fetch repository", zap.Error(err))
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// Close implements Handle.
func (h *shellHandle) Close() error {
	return nil
}

// countPorcelain counts staged and unstaged entries in `git status
// --porcelain=v1` output. Untracked files count as unstaged.
func countPorcelain(out string) (int, int) {
	var staged, unstaged int
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 3 {
			continue
		}

		index, worktree := line[0], line[1]
		if index != ' ' && index != '?' {
			staged++
		}
		if worktree != ' ' {
			unstaged++
		}
	}
	return staged, unstaged
}

// parseLeftRight parses `git rev-list --left-right --count` output.
func parseLeftRight(out string) (int, int) {
	parts := strings.Fields(out)
	if len(parts) != 2 {
		return 0, 0
	}

	left, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0
	}
	right, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0
	}
	return left, right
}

var (
	_ Opener = (*Shell)(nil)
	_ Handle = (*shellHandle)(nil)
)
