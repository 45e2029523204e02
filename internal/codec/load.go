package codec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/atelier/internal/doc"
)

// Load reads the partitioned layout back into a document, running the
// legacy single-file migration first when needed. Returns the document
// and the persisted project name.
//
// The flat node map is reconstructed by merging all page units; page
// order comes from project.json, with any page file not listed there
// appended in lexical order so a hand-dropped file still loads.
func (c *Codec) Load() (*doc.Document, string, error) {
	if err := c.migrateLegacy(); err != nil {
		return nil, "", err
	}

	projPath := filepath.Join(c.dir, projectFile)
	var pf ProjectFile
	if err := c.readValidated(projPath, "#Project", &pf); err != nil {
		return nil, "", err
	}

	d := doc.New()
	d.ActivePageID = pf.ActivePageID
	d.Viewport = pf.Viewport
	if pf.DesignType != "" {
		d.DesignType = pf.DesignType
	}
	if pf.Tokens != nil {
		d.Tokens = pf.Tokens
	}

	stylesPath := filepath.Join(c.dir, stylesFile)
	if _, err := os.Stat(stylesPath); err == nil {
		var styles doc.Styles
		if err := c.readValidated(stylesPath, "#Styles", &styles); err != nil {
			return nil, "", err
		}
		if styles != nil {
			d.Styles = styles
		}
	} else if !os.IsNotExist(err) {
		return nil, "", &PersistenceError{Path: stylesPath, Err: err}
	}

	pages, err := c.loadPages()
	if err != nil {
		return nil, "", err
	}
	for _, unit := range pages {
		d.Pages[unit.Page.ID] = unit.Page
		for id, n := range unit.Nodes {
			d.Nodes[id] = n
		}
	}
	d.PageOrder = orderPages(pf.PageOrder, d.Pages)

	if len(d.Pages) == 0 {
		return nil, "", &PersistenceError{Path: c.dir, Err: fmt.Errorf("project has no pages")}
	}
	if _, ok := d.Pages[d.ActivePageID]; !ok {
		d.ActivePageID = d.PageOrder[0]
	}

	return d, pf.Name, nil
}

// loadPages reads every pages/<id>.json unit.
func (c *Codec) loadPages() ([]PageFile, error) {
	dir := filepath.Join(c.dir, pagesDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Path: dir, Err: err}
	}

	var units []PageFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		var unit PageFile
		if err := c.readValidated(path, "#Page", &unit); err != nil {
			return nil, err
		}
		if unit.Page == nil {
			return nil, &PersistenceError{Path: path, Err: fmt.Errorf("page unit missing page metadata")}
		}
		units = append(units, unit)
	}
	return units, nil
}

// orderPages reconciles the persisted page order with the page units
// actually present on disk.
func orderPages(persisted []string, pages map[string]*doc.Page) []string {
	order := make([]string, 0, len(pages))
	seen := make(map[string]bool, len(pages))
	for _, id := range persisted {
		if _, ok := pages[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	var extra []string
	for id := range pages {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

// readValidated reads a JSON unit, validates it against the named CUE
// schema definition, and decodes it into out.
func (c *Codec) readValidated(path, schemaDef string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := validateUnit(data, schemaDef); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}
