// Package doc defines the canonical in-memory document model: a flat
// node map forming one forest per page, plus the sibling state that
// travels with it (styles, design tokens, viewport).
//
// The package is purely structural. It knows nothing about persistence,
// events, or who is allowed to mutate it - that discipline lives in
// internal/engine, the single authoritative writer.
package doc

// Node is one design element in the tree.
//
// Children order is render/z order. ParentID is empty only for a page
// root. PageID is denormalized onto every descendant so page-scoped
// queries stay O(1).
type Node struct {
	ID          string            `json:"id"`
	Tag         string            `json:"tag"`
	Classes     []string          `json:"classes,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	TextContent string            `json:"textContent,omitempty"`
	Children    []string          `json:"children,omitempty"`
	ParentID    string            `json:"parentId,omitempty"`
	PageID      string            `json:"pageId"`
}

// Page anchors one forest inside a document.
type Page struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RootID string `json:"rootId"`
}

// Viewport is the design canvas size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Token categories accepted by the engine.
const (
	TokenColors  = "colors"
	TokenFonts   = "fonts"
	TokenSpacing = "spacing"
)

// ValidTokenCategories defines the allowed design token categories.
var ValidTokenCategories = map[string]bool{
	TokenColors:  true,
	TokenFonts:   true,
	TokenSpacing: true,
}

// Styles maps selector -> property -> value. A selector may be prefixed
// with a media condition ("@media (max-width: 768px)|.hero").
type Styles map[string]map[string]string

// Tokens maps category -> name -> raw value string.
type Tokens map[string]map[string]string

// Document is the complete mutable state of one project.
//
// Invariants maintained by the engine:
//   - Nodes/Pages are consistent: every page's RootID resolves, every
//     non-root node's ParentID resolves to a node listing it in Children
//     exactly once, and no parent chain contains a cycle.
//   - A node's PageID always equals its parent's PageID.
//   - There is always at least one page, and ActivePageID resolves.
type Document struct {
	Nodes        map[string]*Node `json:"nodes"`
	Pages        map[string]*Page `json:"pages"`
	PageOrder    []string         `json:"pageOrder"`
	ActivePageID string           `json:"activePageId"`
	Styles       Styles           `json:"styles"`
	Tokens       Tokens           `json:"tokens"`
	Viewport     Viewport         `json:"viewport"`
	DesignType   string           `json:"designType"`
}

// DefaultViewport is applied to new documents.
var DefaultViewport = Viewport{Width: 1440, Height: 900}

// New creates an empty document with no pages. Callers (the engine and
// the codec) are responsible for establishing the >=1 page invariant
// before handing the document out.
func New() *Document {
	return &Document{
		Nodes:      make(map[string]*Node),
		Pages:      make(map[string]*Page),
		Styles:     make(Styles),
		Tokens:     make(Tokens),
		Viewport:   DefaultViewport,
		DesignType: "web",
	}
}

// Node returns the node with the given id.
func (d *Document) Node(id string) (*Node, bool) {
	n, ok := d.Nodes[id]
	return n, ok
}

// Page returns the page with the given id.
func (d *Document) Page(id string) (*Page, bool) {
	p, ok := d.Pages[id]
	return p, ok
}

// IsPageRoot reports whether id is the root node of any page.
func (d *Document) IsPageRoot(id string) bool {
	n, ok := d.Nodes[id]
	return ok && n.ParentID == ""
}

// AddPage registers a page, its root node, and its position in the
// page order. The root node must already carry the page's id.
func (d *Document) AddPage(p *Page, root *Node) {
	d.Pages[p.ID] = p
	d.Nodes[root.ID] = root
	d.PageOrder = append(d.PageOrder, p.ID)
}

// RemovePage drops the page from the registry and the page order.
// Node cleanup is the caller's responsibility.
func (d *Document) RemovePage(id string) {
	delete(d.Pages, id)
	for i, pid := range d.PageOrder {
		if pid == id {
			d.PageOrder = append(d.PageOrder[:i], d.PageOrder[i+1:]...)
			break
		}
	}
}

// PagesInOrder returns the pages in creation order.
func (d *Document) PagesInOrder() []*Page {
	pages := make([]*Page, 0, len(d.PageOrder))
	for _, id := range d.PageOrder {
		if p, ok := d.Pages[id]; ok {
			pages = append(pages, p)
		}
	}
	return pages
}
