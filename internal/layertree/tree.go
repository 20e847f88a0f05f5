// Package layertree maps the nested layer tree of an application onto an
// ordered render tree and implements structural edits on it.
//
// Trees are stored as an arena: nodes keyed by id, with children listed as
// ordered id slices. Edits return a new tree and leave the receiver as it
// was.
package layertree

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrCyclicMove is returned when a node would become its own ancestor.
	ErrCyclicMove = errors.New("cyclic move")
	// ErrNodeNotFound is returned for unknown node ids.
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidMove is returned for moves the tree shape does not allow,
	// such as moving the root or nesting under a layer node.
	ErrInvalidMove = errors.New("invalid move")
)

// Node is one entry of a layer tree. A node bears a layer iff AppLayerID
// is set; otherwise it is a group (level) with ordered children.
type Node struct {
	ID          string   `json:"id" yaml:"id" doc:"Node id"`
	Name        string   `json:"name" yaml:"name" doc:"Display name"`
	Root        bool     `json:"root,omitempty" yaml:"root,omitempty"`
	AppLayerID  *int     `json:"appLayerId,omitempty" yaml:"appLayerId,omitempty" doc:"Referenced application layer"`
	ChildrenIDs []string `json:"childrenIds" yaml:"childrenIds"`
	Expanded    bool     `json:"expanded,omitempty" yaml:"expanded,omitempty"`
}

// IsAppLayer reports whether the node references an application layer.
func (n Node) IsAppLayer() bool { return n.AppLayerID != nil }

func (n Node) clone() Node {
	n.ChildrenIDs = slices.Clone(n.ChildrenIDs)
	if n.AppLayerID != nil {
		id := *n.AppLayerID
		n.AppLayerID = &id
	}
	return n
}

// ExpandGroups returns a copy of nodes with every group node expanded, the
// initial state a viewer shows.
func ExpandGroups(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.clone()
		if !n.IsAppLayer() {
			out[i].Expanded = true
		}
	}
	return out
}

// Tree is an immutable layer tree.
type Tree struct {
	nodes map[string]Node
	order []string
}

// New builds a tree from a node list. Later duplicates of an id win.
func New(nodes []Node) *Tree {
	t := &Tree{nodes: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		if _, dup := t.nodes[n.ID]; !dup {
			t.order = append(t.order, n.ID)
		}
		t.nodes[n.ID] = n.clone()
	}
	return t
}

// Nodes returns the nodes in their original order.
func (t *Tree) Nodes() []Node {
	out := make([]Node, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.nodes[id].clone())
	}
	return out
}

// Node returns a node by id.
func (t *Tree) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Root returns the root node.
func (t *Tree) Root() (Node, bool) {
	for _, id := range t.order {
		if n := t.nodes[id]; n.Root {
			return n.clone(), true
		}
	}
	return Node{}, false
}

// Parent returns the id of the group that lists id as a child.
func (t *Tree) Parent(id string) (string, bool) {
	for _, pid := range t.order {
		if slices.Contains(t.nodes[pid].ChildrenIDs, id) {
			return pid, true
		}
	}
	return "", false
}

func (t *Tree) copy() *Tree {
	c := &Tree{nodes: make(map[string]Node, len(t.nodes)), order: slices.Clone(t.order)}
	for id, n := range t.nodes {
		c.nodes[id] = n.clone()
	}
	return c
}

// Move places nodeID under parentID at index. A negative or out of range
// index appends. Moving a node under itself or one of its descendants
// fails with ErrCyclicMove.
func (t *Tree) Move(nodeID, parentID string, index int) (*Tree, error) {
	node, ok := t.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("move %q: %w", nodeID, ErrNodeNotFound)
	}
	parent, ok := t.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("move %q to %q: %w", nodeID, parentID, ErrNodeNotFound)
	}
	if node.Root {
		return nil, fmt.Errorf("move root %q: %w", nodeID, ErrInvalidMove)
	}
	if parent.IsAppLayer() {
		return nil, fmt.Errorf("move %q under layer node %q: %w", nodeID, parentID, ErrInvalidMove)
	}
	if t.isAncestorOrSelf(nodeID, parentID) {
		return nil, fmt.Errorf("move %q under %q: %w", nodeID, parentID, ErrCyclicMove)
	}

	c := t.copy()
	if oldID, ok := c.Parent(nodeID); ok {
		old := c.nodes[oldID]
		old.ChildrenIDs = slices.DeleteFunc(old.ChildrenIDs, func(id string) bool { return id == nodeID })
		c.nodes[oldID] = old
	}
	p := c.nodes[parentID]
	if index < 0 || index > len(p.ChildrenIDs) {
		index = len(p.ChildrenIDs)
	}
	p.ChildrenIDs = slices.Insert(p.ChildrenIDs, index, nodeID)
	c.nodes[parentID] = p
	return c, nil
}

// Position places a node relative to a sibling.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
	Inside Position = "inside"
)

// MoveRelative moves nodeID before or after siblingID, or to the end of
// siblingID's children for Inside.
func (t *Tree) MoveRelative(nodeID, siblingID string, pos Position) (*Tree, error) {
	if pos == Inside {
		return t.Move(nodeID, siblingID, -1)
	}
	if _, ok := t.nodes[siblingID]; !ok {
		return nil, fmt.Errorf("move %q next to %q: %w", nodeID, siblingID, ErrNodeNotFound)
	}
	if nodeID == siblingID {
		return nil, fmt.Errorf("move %q next to itself: %w", nodeID, ErrInvalidMove)
	}
	parentID, ok := t.Parent(siblingID)
	if !ok {
		return nil, fmt.Errorf("move %q next to root %q: %w", nodeID, siblingID, ErrInvalidMove)
	}
	children := slices.DeleteFunc(slices.Clone(t.nodes[parentID].ChildrenIDs), func(id string) bool { return id == nodeID })
	index := slices.Index(children, siblingID)
	if pos == After {
		index++
	}
	return t.Move(nodeID, parentID, index)
}

// ToggleExpanded flips the expanded flag of a node.
func (t *Tree) ToggleExpanded(id string) (*Tree, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("toggle %q: %w", id, ErrNodeNotFound)
	}
	c := t.copy()
	n.Expanded = !n.Expanded
	c.nodes[id] = n.clone()
	return c, nil
}

// isAncestorOrSelf walks up from id and reports whether ancestor is met.
func (t *Tree) isAncestorOrSelf(ancestor, id string) bool {
	seen := make(map[string]bool)
	for cur := id; !seen[cur]; {
		if cur == ancestor {
			return true
		}
		seen[cur] = true
		p, ok := t.Parent(cur)
		if !ok {
			return false
		}
		cur = p
	}
	return false
}
