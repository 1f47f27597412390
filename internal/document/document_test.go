package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveNodeID(t *testing.T) {
	id1 := DeriveNodeID("Getting Started!")
	id2 := DeriveNodeID("Getting Started!")
	require.Equal(t, id1, id2, "derivation must be deterministic")
	assert.Regexp(t, `^getting-started-[0-9a-f]{8}$`, id1)

	longTitle := ""
	for i := 0; i < 20; i++ {
		longTitle += "word "
	}
	id := DeriveNodeID(longTitle)
	slugPart := id[:len(id)-9] // strip "-" + 8 hex chars
	assert.LessOrEqual(t, len(slugPart), MaxSlugLen)
}

func TestContentHashStability(t *testing.T) {
	h1 := ContentHash("Title", []string{"a", "b"})
	h2 := ContentHash("Title", []string{"a", "b"})
	assert.Equal(t, h1, h2)

	h3 := ContentHash("Title", []string{"a", "c"})
	assert.NotEqual(t, h1, h3)
}

func TestWalkAndNodeIDs(t *testing.T) {
	child1 := &SectionNode{ID: "c1", Level: 1, Title: "Child 1"}
	child2 := &SectionNode{ID: "c2", Level: 1, Title: "Child 2"}
	root := &SectionNode{ID: "root", Level: 0, Title: "Root", Children: []*SectionNode{child1, child2}}
	doc := &Document{DocID: "d1", Title: "Doc", Root: root}

	var order []string
	doc.Walk(func(n *SectionNode) { order = append(order, n.ID) })
	assert.Equal(t, []string{"root", "c1", "c2"}, order)
	assert.ElementsMatch(t, []string{"root", "c1", "c2"}, doc.NodeIDs())

	doc.BuildNodeIndex()
	require.Contains(t, doc.Nodes, "c1")
	assert.Equal(t, "root", doc.Nodes["c1"].ParentID)
	assert.Equal(t, []string{"c1", "c2"}, doc.Nodes["root"].Children)
}

func TestIsLeafAndText(t *testing.T) {
	n := &SectionNode{Title: "T", Content: []string{"p1", "p2"}}
	assert.True(t, n.IsLeaf())
	assert.Equal(t, "T\np1\np2", n.Text())

	n.Children = []*SectionNode{{ID: "x"}}
	assert.False(t, n.IsLeaf())
}

func TestPath(t *testing.T) {
	n := &SectionNode{Title: "Intro"}
	assert.Equal(t, "Doc Title / Intro", Path("Doc Title", n))

	root := &SectionNode{Title: ""}
	assert.Equal(t, "Doc Title", Path("Doc Title", root))
}
