package engine

import (
	"github.com/roach88/atelier/internal/doc"
)

// CreateNodeRequest describes a single node insertion.
//
// InsertIndex is optional; nil or out-of-range values append. The
// permissive clamp is deliberate: agent callers frequently race each
// other with stale indices, and rejecting those would make the surface
// unusable.
type CreateNodeRequest struct {
	ParentID    string
	Tag         string
	Classes     []string
	Attributes  map[string]string
	TextContent string
	InsertIndex *int
}

// CreateNode inserts a new node under ParentID. The node inherits the
// parent's page id.
func (e *Engine) CreateNode(req CreateNodeRequest) (*doc.Node, *Change, error) {
	const op = "createNode"
	e.mu.Lock()
	defer e.mu.Unlock()

	parent, ok := e.doc.Node(req.ParentID)
	if !ok {
		return nil, nil, notFound(op, "parent node %q does not exist", req.ParentID)
	}

	n := &doc.Node{
		ID:          e.ids.NewID(),
		Tag:         req.Tag,
		Classes:     append([]string(nil), req.Classes...),
		TextContent: req.TextContent,
		PageID:      parent.PageID,
	}
	if len(req.Attributes) > 0 {
		n.Attributes = make(map[string]string, len(req.Attributes))
		for k, v := range req.Attributes {
			n.Attributes[k] = v
		}
	}

	index := len(parent.Children)
	if req.InsertIndex != nil {
		index = *req.InsertIndex
	}
	e.doc.Nodes[n.ID] = n
	e.doc.Attach(parent, n, index)

	ch := change(
		[]string{doc.PagePartition(n.PageID)},
		Delta{Kind: DeltaNodeCreated, Payload: n.Clone()},
	)
	return n.Clone(), ch, nil
}

// NodeDef is one node of a nested subtree definition.
type NodeDef struct {
	Tag         string            `json:"tag"`
	Classes     []string          `json:"classes,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	TextContent string            `json:"textContent,omitempty"`
	Children    []NodeDef         `json:"children,omitempty"`
}

// SubtreeResult summarizes a CreateSubtree call.
type SubtreeResult struct {
	Count  int      `json:"count"`
	TopIDs []string `json:"topIds"`
}

// CreateSubtree materializes a nested definition tree under parentID in
// one atomic operation. It emits one coarse full-state delta instead of
// N node-created deltas.
func (e *Engine) CreateSubtree(parentID string, defs []NodeDef) (SubtreeResult, *Change, error) {
	const op = "createSubtree"
	e.mu.Lock()
	defer e.mu.Unlock()

	parent, ok := e.doc.Node(parentID)
	if !ok {
		return SubtreeResult{}, nil, notFound(op, "parent node %q does not exist", parentID)
	}

	var result SubtreeResult

	// Explicit work stack instead of recursion: definition depth is
	// caller-controlled.
	type frame struct {
		def    *NodeDef
		parent *doc.Node
		top    bool
	}
	var stack []frame
	for i := len(defs) - 1; i >= 0; i-- {
		stack = append(stack, frame{def: &defs[i], parent: parent, top: true})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &doc.Node{
			ID:          e.ids.NewID(),
			Tag:         f.def.Tag,
			Classes:     append([]string(nil), f.def.Classes...),
			TextContent: f.def.TextContent,
			PageID:      f.parent.PageID,
		}
		if len(f.def.Attributes) > 0 {
			n.Attributes = make(map[string]string, len(f.def.Attributes))
			for k, v := range f.def.Attributes {
				n.Attributes[k] = v
			}
		}
		e.doc.Nodes[n.ID] = n
		e.doc.Attach(f.parent, n, len(f.parent.Children))

		result.Count++
		if f.top {
			result.TopIDs = append(result.TopIDs, n.ID)
		}
		for i := len(f.def.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{def: &f.def.Children[i], parent: n})
		}
	}

	ch := change([]string{doc.PagePartition(parent.PageID)}, e.fullState())
	return result, ch, nil
}

// NodePatch describes a partial node update. Nil fields are untouched.
// Attributes is a shallow merge into the existing map; every other
// field replaces.
type NodePatch struct {
	Tag         *string
	Classes     *[]string
	Attributes  map[string]string
	TextContent *string
}

// UpdateNode applies a patch to an existing node.
func (e *Engine) UpdateNode(id string, patch NodePatch) (*doc.Node, *Change, error) {
	const op = "updateNode"
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.doc.Node(id)
	if !ok {
		return nil, nil, notFound(op, "node %q does not exist", id)
	}

	if patch.Tag != nil {
		n.Tag = *patch.Tag
	}
	if patch.Classes != nil {
		n.Classes = append([]string(nil), (*patch.Classes)...)
	}
	if patch.TextContent != nil {
		n.TextContent = *patch.TextContent
	}
	if len(patch.Attributes) > 0 {
		if n.Attributes == nil {
			n.Attributes = make(map[string]string, len(patch.Attributes))
		}
		for k, v := range patch.Attributes {
			n.Attributes[k] = v
		}
	}

	ch := change(
		[]string{doc.PagePartition(n.PageID)},
		Delta{Kind: DeltaNodeUpdated, Payload: n.Clone()},
	)
	return n.Clone(), ch, nil
}

// DeleteNode recursively deletes a node and its descendant subtree and
// detaches it from its parent. Page roots are not directly deletable;
// they go away only through page deletion.
func (e *Engine) DeleteNode(id string) (int, *Change, error) {
	const op = "deleteNode"
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.doc.Node(id)
	if !ok {
		return 0, nil, notFound(op, "node %q does not exist", id)
	}
	if e.doc.IsPageRoot(id) {
		return 0, nil, invalidOp(op, "node %q is a page root; delete the page instead", id)
	}

	parentID := n.ParentID
	pageID := n.PageID
	e.doc.Detach(n)
	removed := e.doc.RemoveSubtree(id)

	ch := change(
		[]string{doc.PagePartition(pageID)},
		Delta{Kind: DeltaNodeDeleted, Payload: NodeDeletedPayload{
			ID:           id,
			ParentID:     parentID,
			PageID:       pageID,
			RemovedCount: removed,
		}},
	)
	return removed, ch, nil
}

// MoveNode detaches a node from its current parent and attaches it
// under newParentID at the given position. A move that crosses a page
// boundary restamps the page id across the moved subtree.
//
// Self-parenting and moving a node under its own descendant would form
// a cycle and are rejected.
func (e *Engine) MoveNode(id, newParentID string, insertIndex *int) (*doc.Node, *Change, error) {
	const op = "moveNode"
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.doc.Node(id)
	if !ok {
		return nil, nil, notFound(op, "node %q does not exist", id)
	}
	if e.doc.IsPageRoot(id) {
		return nil, nil, invalidOp(op, "node %q is a page root and cannot be moved", id)
	}
	parent, ok := e.doc.Node(newParentID)
	if !ok {
		return nil, nil, notFound(op, "parent node %q does not exist", newParentID)
	}
	if newParentID == id {
		return nil, nil, invalidOp(op, "node %q cannot be its own parent", id)
	}
	if e.doc.IsDescendant(id, newParentID) {
		return nil, nil, invalidOp(op, "node %q cannot be moved under its own descendant %q", id, newParentID)
	}

	fromParent := n.ParentID
	fromPage := n.PageID

	e.doc.Detach(n)
	index := len(parent.Children)
	if insertIndex != nil {
		index = *insertIndex
	}
	e.doc.Attach(parent, n, index)
	if parent.PageID != fromPage {
		e.doc.RestampPage(n.ID, parent.PageID)
	}

	dirty := []string{doc.PagePartition(n.PageID)}
	if fromPage != n.PageID {
		dirty = append(dirty, doc.PagePartition(fromPage))
	}
	ch := change(dirty, Delta{Kind: DeltaNodeMoved, Payload: NodeMovedPayload{
		Node:       n.Clone(),
		FromParent: fromParent,
		FromPage:   fromPage,
	}})
	return n.Clone(), ch, nil
}

// GetNode returns a deep copy of a node. Callers never observe
// aliasing into engine-owned memory.
func (e *Engine) GetNode(id string) (*doc.Node, error) {
	const op = "getNode"
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.doc.Node(id)
	if !ok {
		return nil, notFound(op, "node %q does not exist", id)
	}
	return n.Clone(), nil
}

// ListTree materializes a page's tree depth-first from its root.
// An empty pageID selects the active page.
func (e *Engine) ListTree(pageID string) (*doc.TreeNode, error) {
	const op = "listTree"
	e.mu.Lock()
	defer e.mu.Unlock()

	if pageID == "" {
		pageID = e.doc.ActivePageID
	}
	if _, ok := e.doc.Page(pageID); !ok {
		return nil, notFound(op, "page %q does not exist", pageID)
	}
	return e.doc.Materialize(pageID), nil
}
