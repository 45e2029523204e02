package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/atelier/internal/codec"
)

const (
	registryFile = "registry.json"
	projectsDir  = "projects"
)

// Info is one registry entry. The slug doubles as the project's
// directory name under projects/ and never changes after creation, so
// renames do not move directories out from under an open git repo.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// registry is the persisted registry.json shape.
type registry struct {
	ActiveProjectID string  `json:"activeProjectId"`
	Projects        []*Info `json:"projects"`
}

func (r *registry) find(id string) *Info {
	for _, p := range r.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *registry) hasSlug(slug string) bool {
	for _, p := range r.Projects {
		if p.Slug == slug {
			return true
		}
	}
	return false
}

// uniqueSlug suffixes -2, -3, ... until the slug is free.
func (r *registry) uniqueSlug(base string) string {
	if !r.hasSlug(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + itoa(i)
		if !r.hasSlug(candidate) {
			return candidate
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// loadRegistry reads registry.json under root. A missing file yields an
// empty registry, not an error; first run starts from nothing.
func loadRegistry(root string) (*registry, error) {
	path := filepath.Join(root, registryFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &registry{}, nil
	}
	if err != nil {
		return nil, &codec.PersistenceError{Path: path, Err: err}
	}
	var r registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &codec.PersistenceError{Path: path, Err: err}
	}
	return &r, nil
}

// saveRegistry writes registry.json atomically.
func saveRegistry(root string, r *registry) error {
	path := filepath.Join(root, registryFile)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return &codec.PersistenceError{Path: path, Err: err}
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &codec.PersistenceError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &codec.PersistenceError{Path: path, Err: err}
	}
	return nil
}
