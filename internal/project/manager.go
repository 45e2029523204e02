// Package project manages the project lifecycle: the on-disk registry,
// project directories, and the single open session that the rest of
// the process edits through.
//
// The manager owns the hot-swap protocol. Switching projects is the
// only operation that tears the session wiring down and rebuilds it,
// and it does so in a fixed order so observers never see deltas from
// two documents interleaved and no pending write is lost:
// flush outgoing, detach the event sink, persist the registry, open
// the incoming session, re-attach, publish one project-switched
// snapshot event.
package project

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/atelier/internal/codec"
	"github.com/roach88/atelier/internal/doc"
	"github.com/roach88/atelier/internal/engine"
	"github.com/roach88/atelier/internal/history"
	"github.com/roach88/atelier/internal/journal"
)

// DefaultPageName seeds the first page of a new project.
const DefaultPageName = "Page 1"

// SwitchedPayload is the payload of a project-switched event: which
// project is now active plus its full document, so observers resync in
// one frame.
type SwitchedPayload struct {
	Project  Info          `json:"project"`
	Document *doc.Document `json:"document"`
}

// Publisher receives delta events in mutation order. Implemented by the
// websocket hub; nil-safe via Attach/Detach.
type Publisher func(engine.Delta)

// Options configures a manager.
type Options struct {
	// Debounce is the coalescer quiet window; zero means the writer
	// default.
	Debounce time.Duration

	// IDs overrides the id generator, for deterministic tests.
	IDs engine.IDGenerator
}

// Manager owns the registry and the active session.
type Manager struct {
	root string
	opts Options

	mu       sync.Mutex
	reg      *registry
	session  *Session
	publish  Publisher
	attached bool
}

// Open loads the registry under root, creating the data root and a
// default project on first run, and opens the active project's session.
func Open(ctx context.Context, root string, opts Options) (*Manager, error) {
	if err := os.MkdirAll(filepath.Join(root, projectsDir), 0o755); err != nil {
		return nil, err
	}
	reg, err := loadRegistry(root)
	if err != nil {
		return nil, err
	}

	m := &Manager{root: root, opts: opts, reg: reg}

	if len(reg.Projects) == 0 {
		info, err := m.provision(ctx, "Untitled")
		if err != nil {
			return nil, err
		}
		reg.Projects = append(reg.Projects, info)
		reg.ActiveProjectID = info.ID
		if err := saveRegistry(root, reg); err != nil {
			return nil, err
		}
	}

	active := reg.find(reg.ActiveProjectID)
	if active == nil {
		active = reg.Projects[0]
		reg.ActiveProjectID = active.ID
		if err := saveRegistry(root, reg); err != nil {
			return nil, err
		}
	}

	session, err := openSession(ctx, m.projectDir(active), active, opts.IDs, opts.Debounce)
	if err != nil {
		return nil, err
	}
	m.session = session
	slog.Info("project opened", "project", active.ID, "slug", active.Slug)
	return m, nil
}

// Attach connects the event sink. Events raised while detached are
// dropped, which is the point: during a switch nothing may leak.
func (m *Manager) Attach(p Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish = p
	m.attached = p != nil
}

// Detach disconnects the event sink.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = false
}

// Active returns the open session.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// List returns registry entries in creation order together with the
// active project id.
func (m *Manager) List() ([]Info, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.reg.Projects))
	for _, p := range m.reg.Projects {
		out = append(out, *p)
	}
	return out, m.reg.ActiveProjectID
}

// errClosed rejects operations against a closed manager.
func errClosed(op string) error {
	return &engine.OpError{Op: op, Code: engine.CodeInvalidOperation, Message: "manager is closed"}
}

// Do runs one mutation against the active session and commits its
// outcome: journal the events, mark the dirty partitions, publish in
// order. Holding the manager lock from mutation through publish keeps
// delta order equal to mutation order across concurrent callers.
func (m *Manager) Do(fn func(s *Session) (*engine.Change, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return errClosed("mutate")
	}

	change, err := fn(m.session)
	if err != nil {
		return err
	}
	if change != nil {
		m.commitLocked(m.session, change.Events, change.Dirty)
	}
	return nil
}

// commitLocked applies a mutation's side effects. Must hold m.mu.
func (m *Manager) commitLocked(s *Session, events []engine.Delta, dirty []string) {
	for _, ev := range events {
		s.journal.RecordAsync(string(ev.Kind), ev.Payload)
	}
	if len(dirty) > 0 {
		s.coalescer.Schedule(dirty...)
	}
	if m.attached {
		for _, ev := range events {
			m.publish(ev)
		}
	}
}

// Create provisions a new project directory with a one-page document,
// registers it, and switches to it.
func (m *Manager) Create(ctx context.Context, name string) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := m.provision(ctx, name)
	if err != nil {
		return nil, err
	}
	m.reg.Projects = append(m.reg.Projects, info)
	if err := saveRegistry(m.root, m.reg); err != nil {
		return nil, err
	}
	if err := m.switchLocked(ctx, info.ID); err != nil {
		return nil, err
	}
	return info, nil
}

// provision writes a fresh project directory (partitioned layout plus
// an initial checkpoint) without touching the active session. Must hold
// m.mu (or be called before the manager is shared).
func (m *Manager) provision(ctx context.Context, name string) (*Info, error) {
	if name == "" {
		name = "Untitled"
	}
	info := &Info{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      m.reg.uniqueSlug(Slugify(name)),
		CreatedAt: time.Now().UTC(),
	}
	dir := m.projectDir(info)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	d := engine.NewDocument(DefaultPageName, m.opts.IDs)
	if err := codec.New(dir).SaveAll(name, d); err != nil {
		return nil, err
	}
	if err := history.New(dir).Init(ctx); err != nil {
		return nil, err
	}
	slog.Info("project created", "project", info.ID, "slug", info.Slug, "name", name)
	return info, nil
}

// Switch makes another registered project the active one.
func (m *Manager) Switch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switchLocked(ctx, id)
}

// switchLocked runs the hot-swap protocol. Must hold m.mu.
func (m *Manager) switchLocked(ctx context.Context, id string) error {
	if m.session != nil && m.session.info.ID == id {
		return nil
	}
	target := m.reg.find(id)
	if target == nil {
		return &engine.OpError{Op: "switchProject", Code: engine.CodeNotFound, Message: "no project " + id}
	}

	outgoing := m.session

	// Outgoing edits must be on disk before anything else happens; a
	// failed flush aborts the switch with the old session intact.
	if outgoing != nil {
		if err := outgoing.coalescer.WaitForFlush(); err != nil {
			return err
		}
	}

	wasAttached := m.attached
	m.attached = false

	prevActive := m.reg.ActiveProjectID
	m.reg.ActiveProjectID = id
	if err := saveRegistry(m.root, m.reg); err != nil {
		m.reg.ActiveProjectID = prevActive
		m.attached = wasAttached
		return err
	}

	incoming, err := openSession(ctx, m.projectDir(target), target, m.opts.IDs, m.opts.Debounce)
	if err != nil {
		m.reg.ActiveProjectID = prevActive
		if saveErr := saveRegistry(m.root, m.reg); saveErr != nil {
			slog.Error("registry rollback failed", "error", saveErr)
		}
		m.attached = wasAttached
		return err
	}

	if outgoing != nil {
		if err := outgoing.close(); err != nil {
			slog.Warn("outgoing session close failed", "project", outgoing.info.ID, "error", err)
		}
	}

	m.session = incoming
	m.attached = wasAttached

	ev := engine.Delta{Kind: engine.DeltaProjectSwitch, Payload: SwitchedPayload{
		Project:  *target,
		Document: incoming.Engine().Snapshot(),
	}}
	m.commitLocked(incoming, []engine.Delta{ev}, nil)
	slog.Info("project switched", "project", target.ID, "slug", target.Slug)
	return nil
}

// Rename updates a project's display name. The slug, and therefore the
// directory, is fixed at creation.
func (m *Manager) Rename(id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := m.reg.find(id)
	if info == nil {
		return &engine.OpError{Op: "renameProject", Code: engine.CodeNotFound, Message: "no project " + id}
	}
	if name == "" {
		return &engine.OpError{Op: "renameProject", Code: engine.CodeInvalidOperation, Message: "project name must not be empty"}
	}
	info.Name = name
	if err := saveRegistry(m.root, m.reg); err != nil {
		return err
	}
	if m.session != nil && m.session.info.ID == id {
		m.session.setName(name)
		m.session.coalescer.Schedule(doc.PartitionProject)
	}
	return nil
}

// Delete removes a project and its directory. Deleting the active
// project switches to another one first; deleting the last project is
// rejected so there is always an active document.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := m.reg.find(id)
	if info == nil {
		return &engine.OpError{Op: "deleteProject", Code: engine.CodeNotFound, Message: "no project " + id}
	}
	if len(m.reg.Projects) == 1 {
		return &engine.OpError{Op: "deleteProject", Code: engine.CodeInvalidOperation, Message: "cannot delete the last project"}
	}

	if m.session != nil && m.session.info.ID == id {
		var next *Info
		for _, p := range m.reg.Projects {
			if p.ID != id {
				next = p
				break
			}
		}
		if err := m.switchLocked(ctx, next.ID); err != nil {
			return err
		}
	}

	kept := m.reg.Projects[:0]
	for _, p := range m.reg.Projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.reg.Projects = kept
	if err := saveRegistry(m.root, m.reg); err != nil {
		return err
	}
	if err := os.RemoveAll(m.projectDir(info)); err != nil {
		return err
	}
	slog.Info("project deleted", "project", id, "slug", info.Slug)
	return nil
}

// Checkpoint flushes pending writes and records a named checkpoint of
// the active project.
func (m *Manager) Checkpoint(ctx context.Context, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", errClosed("checkpoint")
	}

	if err := m.session.coalescer.WaitForFlush(); err != nil {
		return "", err
	}
	return m.session.history.Snapshot(ctx, message)
}

// Checkpoints lists the active project's checkpoints, newest-first.
func (m *Manager) Checkpoints(ctx context.Context, limit int) ([]history.Checkpoint, error) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil, errClosed("listCheckpoints")
	}
	return s.history.Log(ctx, limit)
}

// Restore flushes, restores the checkpoint's on-disk state, reloads the
// document into a fresh engine, and publishes one full-state event.
func (m *Manager) Restore(ctx context.Context, checkpointID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	if s == nil {
		return errClosed("restoreCheckpoint")
	}

	if err := s.coalescer.WaitForFlush(); err != nil {
		return err
	}
	if err := s.history.Restore(ctx, checkpointID); err != nil {
		return err
	}

	d, name, err := s.codec.Load()
	if err != nil {
		return err
	}
	if name != "" {
		s.setName(name)
	}
	s.swapEngine(engine.New(d, m.opts.IDs))

	m.commitLocked(s, []engine.Delta{s.Engine().FullStateDelta()}, nil)
	slog.Info("checkpoint restored", "project", s.info.ID, "checkpoint", checkpointID)
	return nil
}

// Diff flushes and returns the diff between a checkpoint and current
// state. Informational; errors degrade to an empty string inside the
// history store.
func (m *Manager) Diff(ctx context.Context, checkpointID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", errClosed("diffCheckpoint")
	}

	if err := m.session.coalescer.WaitForFlush(); err != nil {
		return "", err
	}
	return m.session.history.Diff(ctx, checkpointID), nil
}

// Operations returns recent journal entries for the active project.
func (m *Manager) Operations(ctx context.Context, limit int) ([]journal.Entry, error) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil, errClosed("listOperations")
	}
	return s.journal.Entries(ctx, limit)
}

// Close flushes and releases the active session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = false
	if m.session == nil {
		return nil
	}
	err := m.session.close()
	m.session = nil
	return err
}

func (m *Manager) projectDir(info *Info) string {
	return filepath.Join(m.root, projectsDir, info.Slug)
}
