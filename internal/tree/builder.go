package tree

import (
	"path/filepath"
	"strings"
)

// Build groups paths by their directory segments. Children keep the order
// in which paths were first seen. Directories holding a single directory
// are folded into it.
func Build(paths []string) *Dir {
	return build(paths, string(filepath.Separator))
}

func build(paths []string, sep string) *Dir {
	root := &Dir{}

	for _, p := range paths {
		segments := split(p, sep)
		if len(segments) == 0 {
			// The filesystem root has no segment to group by.
			if p != "" {
				root.Children = append(root.Children, &Repo{name: p, Path: p})
			}
			continue
		}

		prefix := ""
		if strings.HasPrefix(p, sep) {
			prefix = sep
		}

		node := root
		for i, segment := range segments[:len(segments)-1] {
			child := findDir(node, segment)
			if child == nil {
				child = &Dir{
					name: segment,
					path: prefix + strings.Join(segments[:i+1], sep),
				}
				node.Children = append(node.Children, child)
			}
			node = child
		}

		node.Children = append(node.Children, &Repo{
			name: segments[len(segments)-1],
			Path: p,
		})
	}

	return collapse(root, sep)
}

func split(p, sep string) []string {
	var segments []string
	for _, s := range strings.Split(p, sep) {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// findDir returns the Dir child named name. A Repo child with the same name
// is not a match: a repository nested in another gets a sibling Dir.
func findDir(d *Dir, name string) *Dir {
	for _, child := range d.Children {
		if dir, ok := child.(*Dir); ok && dir.name == name {
			return dir
		}
	}
	return nil
}

// collapse merges every Dir whose only child is a Dir into that child, then
// recurses. A Dir whose only child is a Repo keeps its own row.
func collapse(d *Dir, sep string) *Dir {
	for len(d.Children) == 1 {
		child, ok := d.Children[0].(*Dir)
		if !ok {
			break
		}

		name := child.name
		if d.name != "" {
			name = d.name + sep + child.name
		}
		d = &Dir{name: name, path: child.path, Children: child.Children}
	}

	for i, child := range d.Children {
		if dir, ok := child.(*Dir); ok {
			d.Children[i] = collapse(dir, sep)
		}
	}

	return d
}
