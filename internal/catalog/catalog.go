// Package catalog reads and refreshes the local addon catalog, a git
// checkout with one branch per Odoo version.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"odoogen/internal/addons"
)

// ErrCatalogMissing is returned when the catalog root does not exist.
var ErrCatalogMissing = errors.New("addon catalog not found")

// Entry is one top-level directory of the catalog.
type Entry struct {
	Name         string
	Path         string
	IsAtomicUnit bool
}

// Kind returns the classification used by the materializer.
func (e Entry) Kind() addons.Kind {
	if e.IsAtomicUnit {
		return addons.KindAtomic
	}
	return addons.KindGroup
}

// List returns the catalog's top-level directories sorted by name.
// Hidden directories and plain files are skipped.
func List(root, marker string) ([]Entry, error) {
	dirents, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, root)
		}
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		path := filepath.Join(root, d.Name())
		kind, err := addons.Classify(path, marker)
		if err != nil {
			return nil, fmt.Errorf("list catalog: %w", err)
		}
		entries = append(entries, Entry{Name: d.Name(), Path: path, IsAtomicUnit: kind == addons.KindAtomic})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Names returns the entry names in order.
func Names(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
