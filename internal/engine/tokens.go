package engine

import (
	"strings"

	"github.com/roach88/atelier/internal/doc"
)

// Design token operations, including value propagation: rewriting every
// style property value that textually references a token's old value.

// SetTokens merges key/value pairs into a token category.
func (e *Engine) SetTokens(category string, kv map[string]string) (*Change, error) {
	const op = "setTokens"
	e.mu.Lock()
	defer e.mu.Unlock()

	if !validCategory(category) {
		return nil, invalidOp(op, "unknown token category %q", category)
	}

	merged := e.mergeTokens(category, kv)
	ch := change(
		[]string{doc.PartitionProject},
		Delta{Kind: DeltaTokensSet, Payload: TokensSetPayload{Category: category, Values: merged}},
	)
	return ch, nil
}

// PropagationResult reports how many style selectors a token update
// rewrote.
type PropagationResult struct {
	UpdatedCount int `json:"updatedCount"`
}

// UpdateTokenWithPropagation changes one token's value and rewrites the
// old value into the new one across every style property value in the
// document.
//
// Substitution is textual but word-boundary safe: replacing "#fff" must
// not also rewrite "#ffffff". Setting a token to the value it already
// holds is a no-op with UpdatedCount zero, which also makes the call
// idempotent.
func (e *Engine) UpdateTokenWithPropagation(category, key, newValue string) (PropagationResult, *Change, error) {
	const op = "updateTokenWithPropagation"
	e.mu.Lock()
	defer e.mu.Unlock()

	if !validCategory(category) {
		return PropagationResult{}, nil, invalidOp(op, "unknown token category %q", category)
	}
	oldValue, ok := e.doc.Tokens[category][key]
	if !ok {
		return PropagationResult{}, nil, notFound(op, "token %s.%s does not exist", category, key)
	}
	if oldValue == newValue {
		return PropagationResult{UpdatedCount: 0}, change(nil), nil
	}

	var touched []StylesSetPayload
	for selector, props := range e.doc.Styles {
		changed := false
		for prop, value := range props {
			if next, rewrote := replaceTokenValue(value, oldValue, newValue); rewrote {
				props[prop] = next
				changed = true
			}
		}
		if changed {
			merged := make(map[string]string, len(props))
			for k, v := range props {
				merged[k] = v
			}
			touched = append(touched, StylesSetPayload{Selector: selector, Properties: merged})
		}
	}
	e.doc.Tokens[category][key] = newValue

	events := []Delta{{
		Kind:    DeltaTokensSet,
		Payload: TokensSetPayload{Category: category, Values: map[string]string{key: newValue}},
	}}
	dirty := []string{doc.PartitionProject}
	if len(touched) > 0 {
		events = append(events, Delta{Kind: DeltaStylesBatchSet, Payload: touched})
		dirty = append(dirty, doc.PartitionStyles)
	}

	return PropagationResult{UpdatedCount: len(touched)}, change(dirty, events...), nil
}

// mergeTokens merges kv into a category and returns a copy of the
// merged values. Must be called with e.mu held.
func (e *Engine) mergeTokens(category string, kv map[string]string) map[string]string {
	values, ok := e.doc.Tokens[category]
	if !ok {
		values = make(map[string]string, len(kv))
		e.doc.Tokens[category] = values
	}
	for k, v := range kv {
		values[k] = v
	}
	merged := make(map[string]string, len(values))
	for k, v := range values {
		merged[k] = v
	}
	return merged
}

func validCategory(category string) bool {
	return doc.ValidTokenCategories[category]
}

// isBoundary reports whether c may directly abut a token value without
// the value being part of a longer token. Letters, digits and the
// characters usual inside CSS idents or hash colors extend a token;
// anything else terminates it.
func isBoundary(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '#' || c == '_' || c == '-':
		return false
	}
	return true
}

// replaceTokenValue substitutes old for new everywhere old appears in s
// as a standalone token. Returns the rewritten string and whether any
// substitution happened.
func replaceTokenValue(s, old, new string) (string, bool) {
	if old == "" {
		return s, false
	}
	var out []byte
	rewrote := false
	i := 0
	for i < len(s) {
		j := indexFrom(s, old, i)
		if j < 0 {
			break
		}
		end := j + len(old)
		beforeOK := j == 0 || isBoundary(s[j-1])
		afterOK := end == len(s) || isBoundary(s[end])
		if beforeOK && afterOK {
			out = append(out, s[i:j]...)
			out = append(out, new...)
			rewrote = true
			i = end
		} else {
			out = append(out, s[i:j+1]...)
			i = j + 1
		}
	}
	if !rewrote {
		return s, false
	}
	out = append(out, s[i:]...)
	return string(out), true
}

// indexFrom is strings.Index starting at offset from.
func indexFrom(s, sub string, from int) int {
	if i := strings.Index(s[from:], sub); i >= 0 {
		return from + i
	}
	return -1
}
