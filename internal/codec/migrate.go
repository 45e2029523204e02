package codec

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/atelier/internal/doc"
)

// legacyDocument is the old single-file-per-project layout: the whole
// document in one document.json.
type legacyDocument struct {
	Name         string               `json:"name"`
	ActivePageID string               `json:"activePageId"`
	PageOrder    []string             `json:"pageOrder"`
	Viewport     *doc.Viewport        `json:"viewport"`
	DesignType   string               `json:"designType"`
	Tokens       doc.Tokens           `json:"tokens"`
	Styles       doc.Styles           `json:"styles"`
	Pages        map[string]*doc.Page `json:"pages"`
	Nodes        map[string]*doc.Node `json:"nodes"`
}

// migrateLegacy converts a legacy document.json into the partitioned
// layout. Runs at load time, before first use, and is idempotent: once
// project.json exists the legacy file is ignored (it is kept renamed
// with a .bak suffix for manual recovery).
func (c *Codec) migrateLegacy() error {
	legacyPath := filepath.Join(c.dir, legacyFile)
	if _, err := os.Stat(legacyPath); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return &PersistenceError{Path: legacyPath, Err: err}
	}
	if _, err := os.Stat(filepath.Join(c.dir, projectFile)); err == nil {
		// Already migrated; a stale legacy file must not clobber the
		// partitioned layout.
		return nil
	}

	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return &PersistenceError{Path: legacyPath, Err: err}
	}
	if err := validateUnit(data, "#Legacy"); err != nil {
		return &PersistenceError{Path: legacyPath, Err: err}
	}
	var legacy legacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return &PersistenceError{Path: legacyPath, Err: err}
	}

	d := doc.New()
	d.ActivePageID = legacy.ActivePageID
	if legacy.Viewport != nil {
		d.Viewport = *legacy.Viewport
	}
	if legacy.DesignType != "" {
		d.DesignType = legacy.DesignType
	}
	if legacy.Tokens != nil {
		d.Tokens = legacy.Tokens
	}
	if legacy.Styles != nil {
		d.Styles = legacy.Styles
	}
	for id, p := range legacy.Pages {
		d.Pages[id] = p
	}
	for id, n := range legacy.Nodes {
		d.Nodes[id] = n
	}
	d.PageOrder = legacy.PageOrder
	if len(d.PageOrder) == 0 {
		for id := range d.Pages {
			d.PageOrder = append(d.PageOrder, id)
		}
		sort.Strings(d.PageOrder)
	}

	if err := c.SaveAll(legacy.Name, d); err != nil {
		return err
	}
	if err := os.Rename(legacyPath, legacyPath+".bak"); err != nil {
		return &PersistenceError{Path: legacyPath, Err: err}
	}
	return nil
}
