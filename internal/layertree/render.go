package layertree

import "github.com/joeblew999/plat-viewer/internal/layer"

// NodeType tells layer nodes from group nodes in a render tree.
type NodeType string

const (
	TypeLayer NodeType = "layer"
	TypeLevel NodeType = "level"
)

// RenderNode is a node of the tree as the table of contents shows it.
type RenderNode struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Type     NodeType        `json:"type" enum:"layer,level"`
	Layer    *layer.AppLayer `json:"layer,omitempty"`
	Checked  bool            `json:"checked"`
	Expanded bool            `json:"expanded"`
	Children []RenderNode    `json:"children,omitempty"`
}

// RenderOrder expands the tree depth-first from the root and returns the
// root's children. Layer nodes are checked when their layer is visible.
// Group nodes always report checked; mixed visibility below a group is not
// computed here. Child ids that do not resolve are skipped.
func RenderOrder(nodes []Node, layers []layer.AppLayer) []RenderNode {
	t := New(nodes)
	root, ok := t.Root()
	if !ok {
		return []RenderNode{}
	}
	byID := make(map[int]layer.AppLayer, len(layers))
	for _, l := range layers {
		byID[l.ID] = l
	}
	seen := map[string]bool{root.ID: true}
	return t.children(root, byID, seen)
}

func (t *Tree) children(n Node, layers map[int]layer.AppLayer, seen map[string]bool) []RenderNode {
	out := []RenderNode{}
	for _, id := range n.ChildrenIDs {
		child, ok := t.nodes[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		rn := RenderNode{
			ID:       child.ID,
			Label:    child.Name,
			Type:     TypeLevel,
			Checked:  true,
			Expanded: child.Expanded,
		}
		if child.IsAppLayer() {
			rn.Type = TypeLayer
			rn.Checked = false
			if l, ok := layers[*child.AppLayerID]; ok {
				rn.Layer = &l
				rn.Checked = l.Visible
			}
		}
		rn.Children = t.children(child, layers, seen)
		out = append(out, rn)
	}
	return out
}

// AppLayerIDs lists the application layers at and below fromID in
// depth-first order. An empty fromID starts at the root.
func AppLayerIDs(nodes []Node, fromID string) []int {
	t := New(nodes)
	if fromID == "" {
		root, ok := t.Root()
		if !ok {
			return nil
		}
		fromID = root.ID
	}
	var out []int
	t.walk(fromID, map[string]bool{}, func(n Node) {
		if n.IsAppLayer() {
			out = append(out, *n.AppLayerID)
		}
	})
	return out
}

func (t *Tree) walk(id string, seen map[string]bool, fn func(Node)) {
	n, ok := t.nodes[id]
	if !ok || seen[id] {
		return
	}
	seen[id] = true
	fn(n)
	for _, c := range n.ChildrenIDs {
		t.walk(c, seen, fn)
	}
}
