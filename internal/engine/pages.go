package engine

import (
	"github.com/roach88/atelier/internal/doc"
)

// CreatePage adds a new page with a fresh root node and returns it.
func (e *Engine) CreatePage(name string) (*doc.Page, *Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	page := &doc.Page{ID: e.ids.NewID(), Name: name, RootID: e.ids.NewID()}
	root := &doc.Node{ID: page.RootID, Tag: "body", PageID: page.ID}
	e.doc.AddPage(page, root)

	ch := change(
		[]string{doc.PartitionProject, doc.PagePartition(page.ID)},
		Delta{Kind: DeltaPageCreated, Payload: page.Clone()},
	)
	return page.Clone(), ch, nil
}

// ClonePage deep-copies a page's entire forest under a fresh id map,
// preserving relative structure. Like createSubtree, it emits one
// coarse full-state delta.
func (e *Engine) ClonePage(sourceID, name string) (*doc.Page, *Change, error) {
	const op = "clonePage"
	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.doc.Page(sourceID)
	if !ok {
		return nil, nil, notFound(op, "page %q does not exist", sourceID)
	}

	page := &doc.Page{ID: e.ids.NewID(), Name: name}

	// First pass: fresh ids for every node in the source forest.
	srcIDs := e.doc.Subtree(src.RootID)
	idMap := make(map[string]string, len(srcIDs))
	for _, id := range srcIDs {
		idMap[id] = e.ids.NewID()
	}
	page.RootID = idMap[src.RootID]

	// Second pass: clone nodes and remap the parent/child relation.
	for _, id := range srcIDs {
		srcNode := e.doc.Nodes[id]
		n := srcNode.Clone()
		n.ID = idMap[id]
		n.PageID = page.ID
		if srcNode.ParentID != "" {
			n.ParentID = idMap[srcNode.ParentID]
		}
		for i, cid := range n.Children {
			n.Children[i] = idMap[cid]
		}
		e.doc.Nodes[n.ID] = n
	}
	e.doc.Pages[page.ID] = page
	e.doc.PageOrder = append(e.doc.PageOrder, page.ID)

	ch := change(
		[]string{doc.PartitionProject, doc.PagePartition(page.ID)},
		e.fullState(),
	)
	return page.Clone(), ch, nil
}

// DeletePage removes a page and its entire forest. The last remaining
// page of a project is not deletable. If the deleted page was active,
// an arbitrary remaining page becomes active.
func (e *Engine) DeletePage(id string) (*Change, error) {
	const op = "deletePage"
	e.mu.Lock()
	defer e.mu.Unlock()

	page, ok := e.doc.Page(id)
	if !ok {
		return nil, notFound(op, "page %q does not exist", id)
	}
	if len(e.doc.Pages) == 1 {
		return nil, invalidOp(op, "page %q is the last page of the project", id)
	}

	e.doc.RemoveSubtree(page.RootID)
	e.doc.RemovePage(id)
	if e.doc.ActivePageID == id {
		e.doc.ActivePageID = e.doc.PageOrder[0]
	}

	ch := change(
		[]string{doc.PartitionProject, doc.PagePartition(id)},
		Delta{Kind: DeltaPageDeleted, Payload: PageDeletedPayload{
			ID:           id,
			ActivePageID: e.doc.ActivePageID,
		}},
	)
	return ch, nil
}

// RenamePage sets a page's display name.
func (e *Engine) RenamePage(id, name string) (*doc.Page, *Change, error) {
	const op = "renamePage"
	e.mu.Lock()
	defer e.mu.Unlock()

	page, ok := e.doc.Page(id)
	if !ok {
		return nil, nil, notFound(op, "page %q does not exist", id)
	}
	page.Name = name

	ch := change(
		[]string{doc.PagePartition(id)},
		Delta{Kind: DeltaPageRenamed, Payload: page.Clone()},
	)
	return page.Clone(), ch, nil
}

// SetActivePage switches which page the observers should present.
func (e *Engine) SetActivePage(id string) (*Change, error) {
	const op = "setActivePage"
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.doc.Page(id); !ok {
		return nil, notFound(op, "page %q does not exist", id)
	}
	e.doc.ActivePageID = id

	ch := change(
		[]string{doc.PartitionProject},
		Delta{Kind: DeltaPageActivated, Payload: map[string]string{"id": id}},
	)
	return ch, nil
}
