package git

import "time"

// Status is a point-in-time reading of a working copy.
type Status struct {
	Branch    string    // Current branch, "(abc1234)" when detached
	Ahead     int       // Commits on HEAD missing from upstream
	Behind    int       // Commits on upstream missing from HEAD
	Unstaged  int       // Files changed in the worktree, untracked included
	Staged    int       // Files changed in the index
	LastFetch time.Time // Modification time of FETCH_HEAD, zero if never fetched
}
