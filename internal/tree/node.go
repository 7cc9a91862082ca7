// Package tree groups repository paths into a collapsed directory hierarchy
// and walks it in display order.
package tree

type Kind int

const (
	KindDir Kind = iota
	KindRepo
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindRepo:
		return "repo"
	}
	return "unknown"
}

// Node is either a *Dir or a *Repo.
type Node interface {
	Kind() Kind
	Name() string
}

// Dir groups the nodes found under a directory. After collapsing, Name may
// span several path segments.
type Dir struct {
	name     string
	path     string
	Children []Node
}

func (d *Dir) Kind() Kind     { return KindDir }
func (d *Dir) Name() string   { return d.name }
func (d *Dir) String() string { return d.name }

// Path is the filesystem path of the deepest directory merged into d.
func (d *Dir) Path() string { return d.path }

// Repo is a leaf naming a tracked repository. Path is the registry key of
// the entry it stands for; the node does not own the entry.
type Repo struct {
	name string
	Path string
}

func (r *Repo) Kind() Kind     { return KindRepo }
func (r *Repo) Name() string   { return r.name }
func (r *Repo) String() string { return r.Path }

var (
	_ Node = (*Dir)(nil)
	_ Node = (*Repo)(nil)
)
