package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() *Dir {
	return build([]string{"/repos/x/a", "/repos/x/b", "/repos/y/c"}, "/")
}

func TestWalk_PreOrder(t *testing.T) {
	var visited []string
	var depths []int

	Walk(sample(), func(n Node, depth int) bool {
		visited = append(visited, n.Kind().String()+":"+n.Name())
		depths = append(depths, depth)
		return true
	})

	assert.Equal(t, []string{
		"dir:repos",
		"dir:x", "repo:a", "repo:b",
		"dir:y", "repo:c",
	}, visited)
	assert.Equal(t, []int{0, 1, 2, 2, 1, 2}, depths)
}

func TestWalk_SkipsClosedDirs(t *testing.T) {
	var visited []string

	Walk(sample(), func(n Node, _ int) bool {
		visited = append(visited, n.Name())
		return n.Name() != "x"
	})

	assert.Equal(t, []string{"repos", "x", "y", "c"}, visited)
}

func TestSelect(t *testing.T) {
	root := sample()

	t.Run("returns first selected repo", func(t *testing.T) {
		calls := 0
		repo := Select(root, func(n Node, _ int) bool {
			calls++
			return n.Kind() == KindRepo && n.Name() != "a"
		})

		if assert.NotNil(t, repo) {
			assert.Equal(t, "/repos/x/b", repo.Path)
		}
		assert.Equal(t, 6, calls, "every node is evaluated")
	})

	t.Run("ignores selected dirs", func(t *testing.T) {
		repo := Select(root, func(n Node, _ int) bool {
			return n.Kind() == KindDir
		})
		assert.Nil(t, repo)
	})

	t.Run("is restartable", func(t *testing.T) {
		pick := func(n Node, _ int) bool { return n.Name() == "c" }

		first := Select(root, pick)
		second := Select(root, pick)
		assert.Same(t, first, second)
	})
}

func TestFlattenAndRepos(t *testing.T) {
	root := sample()

	assert.Equal(t, []string{"repos", "x", "a", "b", "y", "c"}, names(Flatten(root)))

	var paths []string
	for _, repo := range Repos(root) {
		paths = append(paths, repo.Path)
	}
	assert.Equal(t, []string{"/repos/x/a", "/repos/x/b", "/repos/y/c"}, paths)
}

func TestWalk_Nil(t *testing.T) {
	called := false
	Walk(nil, func(Node, int) bool {
		called = true
		return true
	})
	assert.False(t, called)
}
