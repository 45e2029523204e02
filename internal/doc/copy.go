package doc

// Deep copy helpers. The engine hands out copies, never aliases into
// engine-owned memory.

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Classes != nil {
		c.Classes = make([]string, len(n.Classes))
		copy(c.Classes, n.Classes)
	}
	if n.Attributes != nil {
		c.Attributes = make(map[string]string, len(n.Attributes))
		for k, v := range n.Attributes {
			c.Attributes[k] = v
		}
	}
	if n.Children != nil {
		c.Children = make([]string, len(n.Children))
		copy(c.Children, n.Children)
	}
	return &c
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Clone returns a deep copy of the styles map.
func (s Styles) Clone() Styles {
	if s == nil {
		return nil
	}
	c := make(Styles, len(s))
	for sel, props := range s {
		cp := make(map[string]string, len(props))
		for k, v := range props {
			cp[k] = v
		}
		c[sel] = cp
	}
	return c
}

// Clone returns a deep copy of the tokens map.
func (t Tokens) Clone() Tokens {
	if t == nil {
		return nil
	}
	c := make(Tokens, len(t))
	for cat, kv := range t {
		cp := make(map[string]string, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		c[cat] = cp
	}
	return c
}

// Clone returns a deep copy of the whole document.
func (d *Document) Clone() *Document {
	c := &Document{
		Nodes:        make(map[string]*Node, len(d.Nodes)),
		Pages:        make(map[string]*Page, len(d.Pages)),
		PageOrder:    make([]string, len(d.PageOrder)),
		ActivePageID: d.ActivePageID,
		Styles:       d.Styles.Clone(),
		Tokens:       d.Tokens.Clone(),
		Viewport:     d.Viewport,
		DesignType:   d.DesignType,
	}
	for id, n := range d.Nodes {
		c.Nodes[id] = n.Clone()
	}
	for id, p := range d.Pages {
		c.Pages[id] = p.Clone()
	}
	copy(c.PageOrder, d.PageOrder)
	return c
}
