package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"
)

// Service names in the generated descriptor.
const (
	ServiceWeb      = "web"
	ServicePostgres = "postgres"
	odooPort        = "8069"
)

// ComposeFile is the subset of the compose schema odoogen writes.
type ComposeFile struct {
	Version  string                    `yaml:"version"`
	Services map[string]ComposeService `yaml:"services"`
	Volumes  map[string]any            `yaml:"volumes"`
}

// ComposeService is one service entry.
type ComposeService struct {
	Image       string   `yaml:"image"`
	Ports       []string `yaml:"ports,omitempty"`
	Volumes     []string `yaml:"volumes,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty"`
	Environment []string `yaml:"environment,omitempty"`
	Restart     string   `yaml:"restart,omitempty"`
}

// ParseCompose decodes a descriptor.
func ParseCompose(data []byte) (*ComposeFile, error) {
	var f ComposeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse compose: %w", err)
	}
	return &f, nil
}

// Validate checks the services and the web port mapping.
func (f *ComposeFile) Validate() error {
	web, ok := f.Services[ServiceWeb]
	if !ok {
		return fmt.Errorf("compose: missing %q service", ServiceWeb)
	}
	db, ok := f.Services[ServicePostgres]
	if !ok {
		return fmt.Errorf("compose: missing %q service", ServicePostgres)
	}
	if !strings.HasPrefix(web.Image, "odoo:") {
		return fmt.Errorf("compose: web image %q is not odoo", web.Image)
	}
	if !strings.HasPrefix(db.Image, "postgres:") {
		return fmt.Errorf("compose: postgres image %q is not postgres", db.Image)
	}
	_, err := f.HostPort()
	return err
}

// OdooVersion returns the tag of the web image.
func (f *ComposeFile) OdooVersion() string {
	return strings.TrimPrefix(f.Services[ServiceWeb].Image, "odoo:")
}

// HostPort returns the host side of the web service's 8069 mapping.
func (f *ComposeFile) HostPort() (int, error) {
	web := f.Services[ServiceWeb]
	if len(web.Ports) != 1 {
		return 0, fmt.Errorf("compose: web must publish exactly one port, got %d", len(web.Ports))
	}
	mappings, err := nat.ParsePortSpec(web.Ports[0])
	if err != nil {
		return 0, fmt.Errorf("compose: port %q: %w", web.Ports[0], err)
	}
	if len(mappings) != 1 {
		return 0, fmt.Errorf("compose: port %q must map a single port", web.Ports[0])
	}
	m := mappings[0]
	if m.Port.Port() != odooPort {
		return 0, fmt.Errorf("compose: port %q does not target %s", web.Ports[0], odooPort)
	}
	host, err := strconv.Atoi(m.Binding.HostPort)
	if err != nil {
		return 0, fmt.Errorf("compose: port %q has no host port", web.Ports[0])
	}
	return host, nil
}

// LoadProject reads the descriptor of an existing project rooted at root
// and recovers its spec. The project name is the directory name.
func LoadProject(root string) (ProjectSpec, error) {
	data, err := os.ReadFile(filepath.Join(root, ComposeFileName))
	if err != nil {
		return ProjectSpec{}, fmt.Errorf("load project: %w", err)
	}
	f, err := ParseCompose(data)
	if err != nil {
		return ProjectSpec{}, fmt.Errorf("load project: %w", err)
	}
	if err := f.Validate(); err != nil {
		return ProjectSpec{}, fmt.Errorf("load project: %w", err)
	}
	port, _ := f.HostPort()
	return NewProjectSpec(filepath.Base(filepath.Clean(root)), f.OdooVersion(), port)
}
