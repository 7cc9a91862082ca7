package repos

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/repodash/repodash/internal/repos"
)

const never = "never"

// POSTRequest represents the request payload for adding a repository.
type POSTRequest struct {
	Path string `json:"path" validate:"required,max=4096"`
}

// ScanRequest represents the request payload for adding every repository
// found in a directory.
type ScanRequest struct {
	Dir string `json:"dir" validate:"required,max=4096"`
}

// PathQuery selects a single tracked repository.
type PathQuery struct {
	Path string `query:"path" validate:"required,max=4096"`
}

// SelectQuery selects a row of the tree in display order.
type SelectQuery struct {
	Row int `query:"row" validate:"min=0"`
}

type StartedResponse struct {
	Started bool `json:"started"`
}

type StatusResponse struct {
	Branch    string `json:"branch"`
	Ahead     int    `json:"ahead"`
	Behind    int    `json:"behind"`
	Unstaged  int    `json:"unstaged"`
	Staged    int    `json:"staged"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`

	LastSync      *time.Time `json:"last_sync,omitempty"`
	LastSyncHuman string     `json:"last_sync_human"`
	CheckedAt     *time.Time `json:"checked_at,omitempty"`
}

type RepoResponse struct {
	StatusResponse

	Path string `json:"path"`
}

// NodeResponse is a tree node. Dirs carry children, repos carry a status.
type NodeResponse struct {
	Kind     string          `json:"kind"`
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Depth    int             `json:"depth"`
	Children []NodeResponse  `json:"children,omitempty"`
	Status   *StatusResponse `json:"status,omitempty"`
}

type BusyResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	StartedAt   time.Time `json:"started_at"`
}

func newStatusResponse(status repos.Status) StatusResponse {
	resp := StatusResponse{
		Branch:        status.Branch,
		Ahead:         status.Ahead,
		Behind:        status.Behind,
		Unstaged:      status.Unstaged,
		Staged:        status.Staged,
		Available:     status.Available,
		Message:       status.Message,
		LastSync:      timePtr(status.LastSync),
		LastSyncHuman: never,
		CheckedAt:     timePtr(status.CheckedAt),
	}
	if !status.LastSync.IsZero() {
		resp.LastSyncHuman = humanize.Time(status.LastSync)
	}

	return resp
}

func newRepoResponse(path string, status repos.Status) RepoResponse {
	return RepoResponse{
		StatusResponse: newStatusResponse(status),
		Path:           path,
	}
}

func newBusyResponse(busy repos.Busy) BusyResponse {
	return BusyResponse{
		ID:          busy.ID,
		Description: busy.Description,
		StartedAt:   busy.StartedAt,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
