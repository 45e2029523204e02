package engine

import (
	"github.com/roach88/atelier/internal/doc"
)

// SetStyles merges properties into the rule for selector. Re-setting a
// selector never replaces the rule wholesale; existing properties not
// named in props survive.
func (e *Engine) SetStyles(selector string, props map[string]string) (*Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged := e.mergeStyles(selector, props)
	ch := change(
		[]string{doc.PartitionStyles},
		Delta{Kind: DeltaStylesSet, Payload: StylesSetPayload{Selector: selector, Properties: merged}},
	)
	return ch, nil
}

// StyleRule pairs a selector with properties for batch application.
type StyleRule struct {
	Selector   string            `json:"selector"`
	Properties map[string]string `json:"properties"`
}

// BatchSetStyles merges a set of rules atomically and emits a single
// batched delta for all of them.
func (e *Engine) BatchSetStyles(rules []StyleRule) (*Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	applied := make([]StylesSetPayload, 0, len(rules))
	for _, r := range rules {
		merged := e.mergeStyles(r.Selector, r.Properties)
		applied = append(applied, StylesSetPayload{Selector: r.Selector, Properties: merged})
	}

	ch := change(
		[]string{doc.PartitionStyles},
		Delta{Kind: DeltaStylesBatchSet, Payload: applied},
	)
	return ch, nil
}

// DeleteStyles removes a selector's rule entirely.
func (e *Engine) DeleteStyles(selector string) (*Change, error) {
	const op = "deleteStyles"
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.doc.Styles[selector]; !ok {
		return nil, notFound(op, "selector %q does not exist", selector)
	}
	delete(e.doc.Styles, selector)

	ch := change(
		[]string{doc.PartitionStyles},
		Delta{Kind: DeltaStylesDeleted, Payload: map[string]string{"selector": selector}},
	)
	return ch, nil
}

// mergeStyles merges props into the selector's rule and returns a copy
// of the merged properties. Must be called with e.mu held.
func (e *Engine) mergeStyles(selector string, props map[string]string) map[string]string {
	rule, ok := e.doc.Styles[selector]
	if !ok {
		rule = make(map[string]string, len(props))
		e.doc.Styles[selector] = rule
	}
	for k, v := range props {
		rule[k] = v
	}
	merged := make(map[string]string, len(rule))
	for k, v := range rule {
		merged[k] = v
	}
	return merged
}

// SetViewport resizes the design canvas.
func (e *Engine) SetViewport(width, height int) (*Change, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.doc.Viewport.Width = width
	e.doc.Viewport.Height = height

	ch := change(
		[]string{doc.PartitionProject},
		Delta{Kind: DeltaViewportSet, Payload: e.doc.Viewport},
	)
	return ch, nil
}
