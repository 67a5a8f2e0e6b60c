package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Artifacts holds rendered file contents.
type Artifacts struct {
	Compose []byte
	Conf    []byte
}

// Render produces the descriptor and server config for spec. It does no
// I/O. The descriptor is decoded again and checked before returning.
func Render(spec ProjectSpec) (Artifacts, error) {
	if _, err := PostgresVersionFor(spec.OdooVersion); err != nil {
		return Artifacts{}, err
	}

	compose, err := execute("docker-compose.yml.tmpl", spec)
	if err != nil {
		return Artifacts{}, err
	}
	conf, err := execute("odoo.conf.tmpl", spec)
	if err != nil {
		return Artifacts{}, err
	}

	f, err := ParseCompose(compose)
	if err != nil {
		return Artifacts{}, err
	}
	if err := f.Validate(); err != nil {
		return Artifacts{}, err
	}
	if port, _ := f.HostPort(); port != spec.Port {
		return Artifacts{}, fmt.Errorf("compose: rendered host port %d, want %d", port, spec.Port)
	}

	return Artifacts{Compose: compose, Conf: conf}, nil
}

func execute(name string, spec ProjectSpec) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, spec); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
