package engine

import "github.com/roach88/atelier/internal/doc"

// DeltaKind identifies a mutation type on the event surface.
type DeltaKind string

const (
	DeltaNodeCreated    DeltaKind = "node-created"
	DeltaNodeUpdated    DeltaKind = "node-updated"
	DeltaNodeDeleted    DeltaKind = "node-deleted"
	DeltaNodeMoved      DeltaKind = "node-moved"
	DeltaPageCreated    DeltaKind = "page-created"
	DeltaPageRenamed    DeltaKind = "page-renamed"
	DeltaPageDeleted    DeltaKind = "page-deleted"
	DeltaPageActivated  DeltaKind = "page-activated"
	DeltaStylesSet      DeltaKind = "styles-set"
	DeltaStylesBatchSet DeltaKind = "styles-batch-set"
	DeltaStylesDeleted  DeltaKind = "styles-deleted"
	DeltaTokensSet      DeltaKind = "tokens-set"
	DeltaViewportSet    DeltaKind = "viewport-set"
	DeltaProjectSwitch  DeltaKind = "project-switched"
	DeltaFullState      DeltaKind = "full-state"
)

// Delta is a minimal description of one state change. Deltas are
// delivered to observers in the exact order mutations were accepted.
//
// Bulk operations (createSubtree, clonePage) and any restore emit a
// single DeltaFullState instead of fine-grained deltas: the subtree may
// be large, and one snapshot event is the cheaper trade.
type Delta struct {
	Kind    DeltaKind `json:"kind"`
	Payload any       `json:"payload"`
}

// Change is the non-result outcome of a successful mutation: the delta
// events to publish, in order, and the partitions the mutation dirtied.
//
// Mutations return Change explicitly instead of pushing side effects so
// mutation logic can be tested without wiring a dispatcher or a
// coalescer.
type Change struct {
	Events []Delta
	Dirty  []string
}

func change(dirty []string, events ...Delta) *Change {
	return &Change{Events: events, Dirty: dirty}
}

// Delta payloads. Each payload stays small relative to a full snapshot;
// bandwidth reduction is the point of the delta model.

// NodeDeletedPayload describes a recursive node deletion.
type NodeDeletedPayload struct {
	ID           string `json:"id"`
	ParentID     string `json:"parentId"`
	PageID       string `json:"pageId"`
	RemovedCount int    `json:"removedCount"`
}

// NodeMovedPayload describes a reparenting.
type NodeMovedPayload struct {
	Node       *doc.Node `json:"node"`
	FromParent string    `json:"fromParent"`
	FromPage   string    `json:"fromPage"`
}

// PageDeletedPayload describes a page deletion, including the page that
// became active if the deleted page was.
type PageDeletedPayload struct {
	ID           string `json:"id"`
	ActivePageID string `json:"activePageId"`
}

// StylesSetPayload carries one selector's merged properties.
type StylesSetPayload struct {
	Selector   string            `json:"selector"`
	Properties map[string]string `json:"properties"`
}

// TokensSetPayload carries one category's merged values.
type TokensSetPayload struct {
	Category string            `json:"category"`
	Values   map[string]string `json:"values"`
}

// FullStatePayload carries a complete document snapshot.
type FullStatePayload struct {
	Document *doc.Document `json:"document"`
}
