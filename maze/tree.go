package maze

import (
	"fmt"
	"sort"
)

// DeltaKind classifies the effect of one observation on the tree
type DeltaKind int

const (
	// Unchanged means the node was already known, or the observation carried no node
	Unchanged DeltaKind = iota
	// Added means a new node was linked under a known parent
	Added
	// Orphan means a new node was recorded but its parent is still missing
	Orphan
	// Rejected means the node id did not parse and nothing was recorded
	Rejected
)

func (k DeltaKind) String() string {
	switch k {
	case Added:
		return "added"
	case Orphan:
		return "orphan"
	case Rejected:
		return "rejected"
	default:
		return "unchanged"
	}
}

// TreeDelta reports what Ingest did
type TreeDelta struct {
	Kind DeltaKind
	Node NodeID
	// Linked lists waiting orphans attached by this insert
	Linked []NodeID
	// Err is set for Orphan and Rejected
	Err error
}

// Edge is a directed parent -> child link in wire form
type Edge struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// Buckets groups a node's children by the trailing step of their id
type Buckets struct {
	Left    []NodeID
	Forward []NodeID
	Right   []NodeID
}

// Len is the total number of children
func (b Buckets) Len() int { return len(b.Left) + len(b.Forward) + len(b.Right) }

// Tree is the exploration tree built from observed node ids. It is not safe
// for concurrent use; the session loop owns it.
type Tree struct {
	root    string
	nodes   map[string]NodeID
	order   []string
	edges   []Edge
	waiting map[string][]NodeID // missing parent -> orphans
	linked  map[string]bool     // child -> has parent edge
	current string
}

// NewTree returns an empty tree for the given root marker
func NewTree(root string) *Tree {
	if root == "" {
		root = DefaultRoot
	}
	return &Tree{
		root:    root,
		nodes:   make(map[string]NodeID),
		waiting: make(map[string][]NodeID),
		linked:  make(map[string]bool),
	}
}

// Ingest adds the observation's node id, if any
func (t *Tree) Ingest(obs Observation) TreeDelta {
	if !obs.HasNode {
		return TreeDelta{Kind: Unchanged}
	}
	return t.Insert(obs.NodeID)
}

// Insert adds a node by its wire id
func (t *Tree) Insert(raw string) TreeDelta {
	id, err := ParseNodeID(raw, t.root)
	if err != nil {
		return TreeDelta{Kind: Rejected, Err: err}
	}
	key := id.String()
	if _, ok := t.nodes[key]; ok {
		t.current = key
		return TreeDelta{Kind: Unchanged, Node: id}
	}

	t.nodes[key] = id
	t.order = append(t.order, key)
	t.current = key

	delta := TreeDelta{Kind: Added, Node: id}
	if parent, ok := id.Parent(); ok {
		pkey := parent.String()
		if _, known := t.nodes[pkey]; known {
			t.link(pkey, key)
		} else {
			t.waiting[pkey] = append(t.waiting[pkey], id)
			delta.Kind = Orphan
			delta.Err = &StructuralError{NodeID: key, Reason: fmt.Sprintf("parent %s not yet observed", pkey)}
		}
	}

	if kids, ok := t.waiting[key]; ok {
		delete(t.waiting, key)
		for _, kid := range kids {
			t.link(key, kid.String())
		}
		delta.Linked = kids
	}
	return delta
}

func (t *Tree) link(parent, child string) {
	if t.linked[child] {
		return
	}
	t.edges = append(t.edges, Edge{Parent: parent, Child: child})
	t.linked[child] = true
}

// Root returns the root node id
func (t *Tree) Root() NodeID { return RootID(t.root) }

// RootMarker returns the root prefix string
func (t *Tree) RootMarker() string { return t.root }

// Len is the number of recorded nodes, orphans included
func (t *Tree) Len() int { return len(t.order) }

// Contains reports whether the wire id has been recorded
func (t *Tree) Contains(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Nodes returns the node ids in first-seen order
func (t *Tree) Nodes() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Edges returns the edges in insertion order
func (t *Tree) Edges() []Edge {
	out := make([]Edge, len(t.edges))
	copy(out, t.edges)
	return out
}

// Current returns the most recently observed node id, or "" before any node
func (t *Tree) Current() string { return t.current }

// Orphans returns recorded nodes still waiting for their parent, sorted
func (t *Tree) Orphans() []string {
	var out []string
	for _, kids := range t.waiting {
		for _, kid := range kids {
			out = append(out, kid.String())
		}
	}
	sort.Strings(out)
	return out
}

// Children buckets the children of parent by trailing step, each in edge order
func (t *Tree) Children(parent string) Buckets {
	var b Buckets
	for _, e := range t.edges {
		if e.Parent != parent {
			continue
		}
		id := t.nodes[e.Child]
		last, _ := id.Last()
		switch last {
		case StepLeft:
			b.Left = append(b.Left, id)
		case StepRight:
			b.Right = append(b.Right, id)
		default:
			b.Forward = append(b.Forward, id)
		}
	}
	return b
}

// TreeSnapshot is an immutable copy of the tree for collaborators
type TreeSnapshot struct {
	Root    string   `json:"root"`
	Nodes   []string `json:"nodes"`
	Edges   []Edge   `json:"edges"`
	Orphans []string `json:"orphans,omitempty"`
	Current string   `json:"current,omitempty"`
}

// Snapshot copies the tree
func (t *Tree) Snapshot() TreeSnapshot {
	return TreeSnapshot{
		Root:    RootID(t.root).String(),
		Nodes:   t.Nodes(),
		Edges:   t.Edges(),
		Orphans: t.Orphans(),
		Current: t.current,
	}
}
