// Package engine implements the document engine: the single
// authoritative writer over a project's in-memory document.
//
// Every mutation validates before touching state (a failed call leaves
// the document unchanged), then returns its typed result together with
// a Change describing the delta events to publish and the persistence
// partitions it dirtied. Fan-out and flushing are the caller's concern;
// the engine itself never blocks on I/O.
//
// Mutations are serialized with a mutex. The only ordering contract is
// that deltas are emitted in the order mutations were applied, which
// serialization gives us for free.
package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/atelier/internal/doc"
)

// IDGenerator generates unique, never-reused node/page ids.
// Implemented by UUIDGenerator (production) and the fixed generator in
// internal/testutil (tests).
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates RFC 4122 random UUIDs.
type UUIDGenerator struct{}

// NewID returns a new UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Engine owns mutation rights over one document.
type Engine struct {
	mu  sync.Mutex
	doc *doc.Document
	ids IDGenerator
}

// New creates an engine over the given document. The document must
// already satisfy the >=1 page invariant (NewDocument or codec load).
func New(d *doc.Document, ids IDGenerator) *Engine {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Engine{doc: d, ids: ids}
}

// NewDocument builds a fresh document seeded with a single page so the
// >=1 page invariant holds from the start.
func NewDocument(pageName string, ids IDGenerator) *doc.Document {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	d := doc.New()
	page := &doc.Page{ID: ids.NewID(), Name: pageName, RootID: ids.NewID()}
	root := &doc.Node{ID: page.RootID, Tag: "body", PageID: page.ID}
	d.AddPage(page, root)
	d.ActivePageID = page.ID
	return d
}

// Snapshot returns a deep copy of the current document. Used for
// persistence flushes and full-state events; safe to call concurrently
// with mutations.
func (e *Engine) Snapshot() *doc.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// FullStateDelta builds a full-state event from the current document.
func (e *Engine) FullStateDelta() Delta {
	return Delta{Kind: DeltaFullState, Payload: FullStatePayload{Document: e.Snapshot()}}
}

// fullState builds a full-state delta from the live document.
// Must be called with e.mu held.
func (e *Engine) fullState() Delta {
	return Delta{Kind: DeltaFullState, Payload: FullStatePayload{Document: e.doc.Clone()}}
}
