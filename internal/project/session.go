package project

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/atelier/internal/codec"
	"github.com/roach88/atelier/internal/engine"
	"github.com/roach88/atelier/internal/history"
	"github.com/roach88/atelier/internal/journal"
	"github.com/roach88/atelier/internal/writer"
)

// journalFile sits next to the document partitions but is excluded from
// checkpoints by the history store's ignore rules.
const journalFile = "journal.db"

// Session is one open project: the engine plus every per-project
// component wired around it. There is exactly one session at a time;
// the manager swaps sessions on switch.
type Session struct {
	info      *Info
	codec     *codec.Codec
	coalescer *writer.Coalescer
	history   *history.Store
	journal   *journal.Journal

	mu     sync.Mutex
	name   string
	engine *engine.Engine
}

// openSession wires a session over an existing project directory. The
// directory must already contain a loadable partitioned layout.
func openSession(ctx context.Context, dir string, info *Info, ids engine.IDGenerator, debounce time.Duration) (*Session, error) {
	c := codec.New(dir)
	d, name, err := c.Load()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = info.Name
	}

	s := &Session{
		info:   info,
		codec:  c,
		name:   name,
		engine: engine.New(d, ids),
	}
	s.coalescer = writer.New(s.flushPartitions, debounce)

	s.history = history.New(dir)
	if err := s.history.Init(ctx); err != nil {
		return nil, err
	}

	s.journal, err = journal.Open(filepath.Join(dir, journalFile))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Info returns the session's registry entry.
func (s *Session) Info() *Info { return s.info }

// Engine returns the current document engine. The pointer changes when
// a restore reloads the document, so callers should not cache it across
// operations.
func (s *Session) Engine() *engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// History returns the session's checkpoint store.
func (s *Session) History() *history.Store { return s.history }

// Journal returns the session's mutation journal.
func (s *Session) Journal() *journal.Journal { return s.journal }

// Dir returns the project directory.
func (s *Session) Dir() string { return s.codec.Dir() }

func (s *Session) projectName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// swapEngine replaces the engine after a restore reload.
func (s *Session) swapEngine(e *engine.Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// flushPartitions is the coalescer's FlushFunc: snapshot the live
// document and persist only the dirty partitions.
func (s *Session) flushPartitions(partitions []string) error {
	return s.codec.SavePartitions(s.projectName(), s.Engine().Snapshot(), partitions)
}

// close flushes outstanding writes and releases the journal. The last
// close error wins; a flush failure still lets the journal close.
func (s *Session) close() error {
	flushErr := s.coalescer.Close()
	if err := s.journal.Close(); err != nil {
		return err
	}
	return flushErr
}
