package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"odoogen/internal/logging"
	"odoogen/internal/tactile"
)

// Generator writes a project to disk.
type Generator struct {
	executor    tactile.Executor
	permissions string
	log         *zap.Logger
}

// NewGenerator creates a generator. permissions is the chmod mode applied
// recursively to OpenDirs after writing; empty skips the step.
func NewGenerator(executor tactile.Executor, permissions string) *Generator {
	return &Generator{
		executor:    executor,
		permissions: permissions,
		log:         logging.Get(logging.CategoryScaffold),
	}
}

// Result describes a generated project.
type Result struct {
	Spec     ProjectSpec
	Layout   Layout
	Files    []string
	Warnings []string
}

// Generate creates baseDir/<name> with the skeleton directories, then the
// descriptor and server config. Each file is replaced atomically, so a
// re-run over an existing project rewrites it in place. A failure leaves
// whatever was created before it.
func (g *Generator) Generate(ctx context.Context, baseDir string, spec ProjectSpec) (*Result, error) {
	artifacts, err := Render(spec)
	if err != nil {
		return nil, err
	}

	layout := NewLayout(baseDir, spec.Name)
	res := &Result{Spec: spec, Layout: layout}

	for _, dir := range SkeletonDirs {
		if err := os.MkdirAll(layout.Dir(dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", dir, err)
		}
	}
	g.log.Debug("skeleton created", zap.String("root", layout.Root))

	files := []struct {
		path string
		data []byte
	}{
		{layout.ComposePath(), artifacts.Compose},
		{layout.ConfPath(), artifacts.Conf},
	}
	for _, f := range files {
		if err := writeFileAtomic(f.path, f.data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
		}
		res.Files = append(res.Files, f.path)
	}
	g.log.Info("project generated",
		zap.String("name", spec.Name),
		zap.String("odoo", spec.OdooVersion),
		zap.String("postgres", spec.PostgresVersion),
		zap.Int("port", spec.Port))

	if warning := g.openPermissions(ctx, layout); warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}
	return res, nil
}

func (g *Generator) openPermissions(ctx context.Context, layout Layout) string {
	if g.permissions == "" || g.executor == nil {
		return ""
	}
	args := append([]string{"-R", g.permissions}, OpenDirs...)
	cmd := tactile.Command{Binary: "chmod", Arguments: args, WorkingDirectory: layout.Root}
	if _, err := tactile.Run(ctx, g.executor, cmd); err != nil {
		g.log.Warn("could not open permissions", zap.String("root", layout.Root), zap.Error(err))
		return fmt.Sprintf("permissions not updated: %v", err)
	}
	return ""
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
