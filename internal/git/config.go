package git

import (
	"context"
	"time"
)

type Backend string

const (
	BackendGoGit Backend = "gogit"
	BackendShell Backend = "shell"
)

const (
	DefaultRemote = "origin"
	DefaultMarker = ".git"
)

type Config struct {
	Backend Backend
	// Remote is the remote fetched by Handle.Fetch.
	Remote string
	// Marker is the metadata entry that makes a directory a working copy.
	Marker string
	// Timeout bounds a single Status or Fetch call. Zero disables it.
	Timeout time.Duration
}

func (c Config) remote() string {
	if c.Remote == "" {
		return DefaultRemote
	}
	return c.Remote
}

func (c Config) marker() string {
	if c.Marker == "" {
		return DefaultMarker
	}
	return c.Marker
}

func (c Config) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
