package doc

// Tree walking primitives.
//
// All walks are iterative over an explicit work stack of node ids.
// A parent-linked map imported from disk could in principle be deep or
// malformed; language-level recursion would tie the stack depth to
// document shape.

// Attach inserts childID into parent's Children at index and points the
// child back at the parent. An index outside the current range is
// clamped to append - the mutation surface is deliberately permissive
// about stale positions.
func (d *Document) Attach(parent *Node, child *Node, index int) {
	if index < 0 || index > len(parent.Children) {
		index = len(parent.Children)
	}
	parent.Children = append(parent.Children, "")
	copy(parent.Children[index+1:], parent.Children[index:])
	parent.Children[index] = child.ID
	child.ParentID = parent.ID
}

// Detach removes the child from its parent's Children list. The child's
// ParentID is left untouched so callers can decide whether this is a
// move or a delete.
func (d *Document) Detach(child *Node) {
	parent, ok := d.Nodes[child.ParentID]
	if !ok {
		return
	}
	for i, id := range parent.Children {
		if id == child.ID {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

// Subtree returns the ids of rootID and every node reachable below it,
// in depth-first order. Unknown ids yield an empty slice.
func (d *Document) Subtree(rootID string) []string {
	root, ok := d.Nodes[rootID]
	if !ok {
		return nil
	}
	var ids []string
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids = append(ids, n.ID)
		// Push children in reverse so they pop in render order.
		for i := len(n.Children) - 1; i >= 0; i-- {
			if c, ok := d.Nodes[n.Children[i]]; ok {
				stack = append(stack, c)
			}
		}
	}
	return ids
}

// IsDescendant reports whether id lies in the subtree rooted at
// ancestorID (a node is not its own descendant).
func (d *Document) IsDescendant(ancestorID, id string) bool {
	if ancestorID == id {
		return false
	}
	n, ok := d.Nodes[id]
	if !ok {
		return false
	}
	// Walk the parent chain; bounded by map size to survive a
	// corrupted cycle rather than spin forever.
	for steps := 0; steps <= len(d.Nodes); steps++ {
		if n.ParentID == "" {
			return false
		}
		if n.ParentID == ancestorID {
			return true
		}
		n, ok = d.Nodes[n.ParentID]
		if !ok {
			return false
		}
	}
	return false
}

// RestampPage rewrites PageID to pageID across the subtree rooted at
// rootID. Used when a move crosses a page boundary.
func (d *Document) RestampPage(rootID, pageID string) {
	for _, id := range d.Subtree(rootID) {
		if n, ok := d.Nodes[id]; ok {
			n.PageID = pageID
		}
	}
}

// RemoveSubtree deletes rootID and all of its descendants from the node
// map and returns how many nodes were removed. It does not touch the
// former parent's Children list.
func (d *Document) RemoveSubtree(rootID string) int {
	ids := d.Subtree(rootID)
	for _, id := range ids {
		delete(d.Nodes, id)
	}
	return len(ids)
}

// TreeNode is one node materialized with its children inlined, as
// produced by Materialize.
type TreeNode struct {
	Node     *Node       `json:"node"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Materialize builds the nested tree for a page, depth-first from the
// page root. Returned nodes are deep copies; callers may mutate freely.
func (d *Document) Materialize(pageID string) *TreeNode {
	page, ok := d.Pages[pageID]
	if !ok {
		return nil
	}
	root, ok := d.Nodes[page.RootID]
	if !ok {
		return nil
	}

	build := &TreeNode{Node: root.Clone()}
	// Parallel stacks: source node and its materialized counterpart.
	srcStack := []*Node{root}
	dstStack := []*TreeNode{build}
	for len(srcStack) > 0 {
		src := srcStack[len(srcStack)-1]
		dst := dstStack[len(dstStack)-1]
		srcStack = srcStack[:len(srcStack)-1]
		dstStack = dstStack[:len(dstStack)-1]

		for _, cid := range src.Children {
			c, ok := d.Nodes[cid]
			if !ok {
				continue
			}
			child := &TreeNode{Node: c.Clone()}
			dst.Children = append(dst.Children, child)
			srcStack = append(srcStack, c)
			dstStack = append(dstStack, child)
		}
	}
	return build
}
