// Package codec (de)serializes a document into the partitioned on-disk
// project layout, and back.
//
// Layout, one directory per project:
//
//	project.json    project metadata, page order, viewport, tokens
//	styles.json     selector -> property -> value
//	pages/<id>.json page metadata plus the flat map of nodes owned by
//	                that page
//
// Files are written atomically (temp file + rename) with two-space
// indentation; encoding/json sorts map keys, so output is deterministic
// and diffs cleanly under version control. Every unit read from disk is
// validated against an embedded CUE schema before it is accepted.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/atelier/internal/doc"
)

const (
	projectFile = "project.json"
	stylesFile  = "styles.json"
	pagesDir    = "pages"

	// legacyFile is the pre-partitioning single-file layout, migrated
	// on first load.
	legacyFile = "document.json"
)

// PersistenceError wraps any disk or schema failure in the codec.
// Fatal to the in-progress operation; never retried automatically.
type PersistenceError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceFailure reports whether err is a codec persistence
// failure.
func IsPersistenceFailure(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// ProjectFile is the project.json unit: everything project-scoped that
// is not styles and not page content.
type ProjectFile struct {
	Name         string       `json:"name"`
	ActivePageID string       `json:"activePageId"`
	PageOrder    []string     `json:"pageOrder"`
	Viewport     doc.Viewport `json:"viewport"`
	DesignType   string       `json:"designType"`
	Tokens       doc.Tokens   `json:"tokens"`
}

// PageFile is one pages/<id>.json unit.
type PageFile struct {
	Page  *doc.Page            `json:"page"`
	Nodes map[string]*doc.Node `json:"nodes"`
}

// Codec reads and writes one project directory.
type Codec struct {
	dir string
}

// New creates a codec rooted at the project directory.
func New(dir string) *Codec {
	return &Codec{dir: dir}
}

// Dir returns the project directory this codec serves.
func (c *Codec) Dir() string { return c.dir }

// SaveAll persists every partition of the document.
func (c *Codec) SaveAll(name string, d *doc.Document) error {
	parts := []string{doc.PartitionProject, doc.PartitionStyles}
	for _, id := range d.PageOrder {
		parts = append(parts, doc.PagePartition(id))
	}
	return c.SavePartitions(name, d, parts)
}

// SavePartitions persists only the named partitions. A page partition
// whose page no longer exists in the document removes the page file -
// that is how page deletion reaches disk.
func (c *Codec) SavePartitions(name string, d *doc.Document, partitions []string) error {
	if err := os.MkdirAll(filepath.Join(c.dir, pagesDir), 0o755); err != nil {
		return &PersistenceError{Path: c.dir, Err: err}
	}

	// Deterministic write order keeps multi-partition failures
	// reproducible.
	sorted := make([]string, len(partitions))
	copy(sorted, partitions)
	sort.Strings(sorted)

	for _, part := range sorted {
		switch {
		case part == doc.PartitionProject:
			pf := ProjectFile{
				Name:         name,
				ActivePageID: d.ActivePageID,
				PageOrder:    append([]string(nil), d.PageOrder...),
				Viewport:     d.Viewport,
				DesignType:   d.DesignType,
				Tokens:       d.Tokens,
			}
			if err := c.writeJSON(filepath.Join(c.dir, projectFile), pf); err != nil {
				return err
			}

		case part == doc.PartitionStyles:
			if err := c.writeJSON(filepath.Join(c.dir, stylesFile), d.Styles); err != nil {
				return err
			}

		default:
			pageID, ok := pagePartitionID(part)
			if !ok {
				return &PersistenceError{Path: c.dir, Err: fmt.Errorf("unknown partition %q", part)}
			}
			path := c.pagePath(pageID)
			page, exists := d.Pages[pageID]
			if !exists {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return &PersistenceError{Path: path, Err: err}
				}
				continue
			}
			pf := PageFile{Page: page, Nodes: make(map[string]*doc.Node)}
			for _, id := range d.Subtree(page.RootID) {
				pf.Nodes[id] = d.Nodes[id]
			}
			if err := c.writeJSON(path, pf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Codec) pagePath(pageID string) string {
	return filepath.Join(c.dir, pagesDir, pageID+".json")
}

// pagePartitionID extracts the page id from a "page:<id>" partition.
func pagePartitionID(part string) (string, bool) {
	return doc.PagePartitionID(part)
}

// writeJSON marshals v with stable formatting and writes it atomically.
func (c *Codec) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}
