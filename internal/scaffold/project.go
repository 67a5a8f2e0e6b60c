// Package scaffold lays out a dockerised Odoo project: the directory
// skeleton, docker-compose.yml and config/odoo.conf.
package scaffold

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
)

// ErrInvalidName is returned when a project name is not a safe single path
// segment.
var ErrInvalidName = errors.New("invalid project name")

// ErrInvalidPort is returned for a host port outside 1-65535.
var ErrInvalidPort = errors.New("invalid host port")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Directory names of the project skeleton.
const (
	DirConfig       = "config"
	DirAddons       = "addons"
	DirCustomAddons = "custom_addons"
	DirData         = "data"
)

// SkeletonDirs is created, in this order, before any file is written.
var SkeletonDirs = []string{DirConfig, DirAddons, DirCustomAddons, DirData}

// OpenDirs are handed to the container user with open permissions.
var OpenDirs = []string{DirAddons, DirCustomAddons, DirData}

// File names of the generated artifacts.
const (
	ComposeFileName = "docker-compose.yml"
	ConfFileName    = "odoo.conf"
)

// ProjectSpec describes one project to scaffold. Build it with
// NewProjectSpec; the zero value is not valid.
type ProjectSpec struct {
	Name            string
	OdooVersion     string
	PostgresVersion string
	Port            int
}

// NewProjectSpec validates its inputs and resolves the postgres version.
func NewProjectSpec(name, odoo string, port int) (ProjectSpec, error) {
	if err := ValidateName(name); err != nil {
		return ProjectSpec{}, err
	}
	pg, err := PostgresVersionFor(odoo)
	if err != nil {
		return ProjectSpec{}, err
	}
	if port < 1 || port > 65535 {
		return ProjectSpec{}, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	return ProjectSpec{Name: name, OdooVersion: odoo, PostgresVersion: pg, Port: port}, nil
}

// Layout resolves paths inside a project root.
type Layout struct {
	Root string
}

// NewLayout returns the layout of project name under baseDir.
func NewLayout(baseDir, name string) Layout {
	return Layout{Root: filepath.Join(baseDir, name)}
}

// Dir returns the path of a skeleton directory.
func (l Layout) Dir(name string) string { return filepath.Join(l.Root, name) }

// ComposePath is the deployment descriptor.
func (l Layout) ComposePath() string { return filepath.Join(l.Root, ComposeFileName) }

// ConfPath is the Odoo server configuration.
func (l Layout) ConfPath() string { return filepath.Join(l.Root, DirConfig, ConfFileName) }

// CustomAddons is where catalog entries are materialised.
func (l Layout) CustomAddons() string { return l.Dir(DirCustomAddons) }

// ValidateName checks that name can be used as the project directory.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
