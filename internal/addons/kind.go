// Package addons copies catalog entries into a project's custom_addons
// directory.
//
// A catalog directory holding the marker file (__manifest__.py) is an
// atomic unit and is copied whole under its own name. A directory without
// it is a group: each immediate child is copied into the destination and
// the group's own name disappears. Classification happens once, at the
// entry passed in; everything below is copied verbatim.
package addons

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultMarker identifies an installable Odoo module.
const DefaultMarker = "__manifest__.py"

// Kind is the classification of a catalog path.
type Kind int

const (
	KindAtomic Kind = iota // directory with the marker file
	KindGroup              // directory without it
	KindFile               // anything that is not a directory
)

func (k Kind) String() string {
	switch k {
	case KindAtomic:
		return "atomic"
	case KindGroup:
		return "group"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Classify inspects path once.
func Classify(path, marker string) (Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return KindFile, nil
	}
	if marker == "" {
		marker = DefaultMarker
	}
	m, err := os.Stat(filepath.Join(path, marker))
	switch {
	case err == nil && !m.IsDir():
		return KindAtomic, nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return KindGroup, nil
	default:
		return 0, err
	}
}
