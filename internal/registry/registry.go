// Package registry remembers scaffolded projects in a small SQLite
// database so later runs can list them and avoid their ports.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"odoogen/internal/logging"
)

// ErrNotFound is returned when no project is recorded at a path.
var ErrNotFound = errors.New("project not registered")

// Project is one registered project. Path is absolute and unique.
type Project struct {
	Path            string
	Name            string
	OdooVersion     string
	PostgresVersion string
	Port            int
	Addons          []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Store is the SQLite-backed registry.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	log    *zap.Logger
}

// Open opens (creating if needed) the registry database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path, log: logging.Get(logging.CategoryRegistry)}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		odoo_version TEXT NOT NULL,
		postgres_version TEXT NOT NULL,
		port INTEGER NOT NULL,
		addons TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_port ON projects(port);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create registry schema: %w", err)
	}
	return nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts p or updates the project already at the same path. The
// creation time of an existing row is kept.
func (s *Store) Record(ctx context.Context, p Project) error {
	abs, err := filepath.Abs(p.Path)
	if err != nil {
		return fmt.Errorf("record project: %w", err)
	}
	addons := p.Addons
	if addons == nil {
		addons = []string{}
	}
	addonsJSON, err := json.Marshal(addons)
	if err != nil {
		return fmt.Errorf("record project: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (path, name, odoo_version, postgres_version, port, addons, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			odoo_version = excluded.odoo_version,
			postgres_version = excluded.postgres_version,
			port = excluded.port,
			addons = excluded.addons,
			updated_at = excluded.updated_at`,
		abs, p.Name, p.OdooVersion, p.PostgresVersion, p.Port, string(addonsJSON), now, now)
	if err != nil {
		return fmt.Errorf("record project: %w", err)
	}
	s.log.Debug("project recorded", zap.String("path", abs), zap.Int("port", p.Port))
	return nil
}

const selectProject = `SELECT path, name, odoo_version, postgres_version, port, addons, created_at, updated_at FROM projects`

// List returns every project ordered by name, then path.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectProject+` ORDER BY name, path`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Get returns the project recorded at path.
func (s *Store) Get(ctx context.Context, path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := scanProject(s.db.QueryRowContext(ctx, selectProject+` WHERE path = ?`, abs))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// Forget removes the project recorded at path. Files on disk are untouched.
func (s *Store) Forget(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE path = ?`, abs)
	if err != nil {
		return fmt.Errorf("forget project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	s.log.Info("project forgotten", zap.String("path", abs))
	return nil
}

// ReservedPorts returns the distinct host ports of all projects, ascending.
func (s *Store) ReservedPorts(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT port FROM projects ORDER BY port`)
	if err != nil {
		return nil, fmt.Errorf("reserved ports: %w", err)
	}
	defer rows.Close()

	var ports []int
	for rows.Next() {
		var port int
		if err := rows.Scan(&port); err != nil {
			return nil, fmt.Errorf("reserved ports: %w", err)
		}
		ports = append(ports, port)
	}
	return ports, rows.Err()
}

// ListPorts lets the store act as a port probe source.
func (s *Store) ListPorts(ctx context.Context) ([]int, error) {
	return s.ReservedPorts(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (Project, error) {
	var (
		p                Project
		addons           string
		created, updated string
	)
	if err := row.Scan(&p.Path, &p.Name, &p.OdooVersion, &p.PostgresVersion, &p.Port, &addons, &created, &updated); err != nil {
		return Project{}, err
	}
	if err := json.Unmarshal([]byte(addons), &p.Addons); err != nil {
		return Project{}, fmt.Errorf("decode addons of %s: %w", p.Path, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}
