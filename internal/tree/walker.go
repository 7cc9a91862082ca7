package tree

// Visitor is called for every visited node with its depth below the root.
// For a Dir, returning false skips its children.
type Visitor func(n Node, depth int) bool

// Walk visits root and its descendants depth-first, parents before
// children, children in order.
func Walk(root Node, visit Visitor) {
	walk(root, 0, visit)
}

func walk(n Node, depth int, visit Visitor) {
	if n == nil {
		return
	}

	descend := visit(n, depth)
	dir, ok := n.(*Dir)
	if !ok || !descend {
		return
	}

	for _, child := range dir.Children {
		walk(child, depth+1, visit)
	}
}

// Select evaluates selected on every node in display order and returns the
// first Repo it accepted, or nil. Evaluation does not stop at the first
// match, so selected may draw or hit-test each row as it goes.
func Select(root Node, selected func(n Node, depth int) bool) *Repo {
	var found *Repo
	Walk(root, func(n Node, depth int) bool {
		ok := selected(n, depth)
		if repo, isRepo := n.(*Repo); isRepo && ok && found == nil {
			found = repo
		}
		return true
	})
	return found
}

// Flatten returns every node in display order.
func Flatten(root Node) []Node {
	var nodes []Node
	Walk(root, func(n Node, _ int) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// Repos returns the Repo nodes in display order.
func Repos(root Node) []*Repo {
	var repos []*Repo
	Walk(root, func(n Node, _ int) bool {
		if repo, ok := n.(*Repo); ok {
			repos = append(repos, repo)
		}
		return true
	})
	return repos
}
