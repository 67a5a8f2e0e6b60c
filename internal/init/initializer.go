// Package init implements "odoogen new": collecting the project choices,
// allocating a host port, generating the project and filling custom_addons
// from the addon catalog.
//
// The run proceeds in phases:
//  1. Resolve name and Odoo version (flags, else prompts). An unsupported
//     version stops the run before anything is written.
//  2. Allocate the web port.
//  3. Generate the skeleton, docker-compose.yml and config/odoo.conf.
//  4. Record the project in the registry.
//  5. Refresh the catalog, select entries and materialize them.
//  6. Optionally start the containers.
//
// Phases 4 to 6 only add warnings when they fail.
//
// Related files:
//   - addons.go: catalog refresh, selection and materialization
package init

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"odoogen/internal/addons"
	"odoogen/internal/catalog"
	"odoogen/internal/logging"
	"odoogen/internal/prompt"
	"odoogen/internal/registry"
	"odoogen/internal/scaffold"
)

// ErrProjectExists is returned when the user declines to rewrite an
// existing project.
var ErrProjectExists = errors.New("project already exists")

// InitProgress represents a progress update during initialization.
type InitProgress struct {
	Phase   string  // Current phase name
	Message string  // Human-readable status message
	Percent float64 // 0.0 - 1.0 completion percentage
	IsError bool    // True if this is an error message
}

// PortFinder allocates the web port.
type PortFinder interface {
	FindAvailablePort(ctx context.Context, start int) (int, error)
}

// CatalogSyncer refreshes the local catalog checkout.
type CatalogSyncer interface {
	Ensure(ctx context.Context, branch string, pull bool) (catalog.SyncAction, error)
}

// ProjectRecorder remembers generated projects.
type ProjectRecorder interface {
	Record(ctx context.Context, p registry.Project) error
}

// ComposeRunner starts a generated project.
type ComposeRunner interface {
	ComposeUp(ctx context.Context, dir string) error
}

// InitConfig holds the choices for one run. Zero values mean "ask" (or
// "use the default" in non-interactive mode).
type InitConfig struct {
	BaseDir     string // Parent of the project directory
	Name        string
	OdooVersion string
	DefaultName string
	DefaultOdoo string

	StartPort int // First port tried by the allocator
	FixedPort int // Use this port as is, skipping allocation

	CatalogPath  string
	BranchSuffix string   // "17" + ".0"
	Addons       []string // Preselected catalog entries
	SkipAddons   bool
	Pull         *bool // nil asks
	Up           *bool // nil asks
	Overwrite    *bool // nil asks when the project exists

	DryRun       bool
	Timeout      time.Duration
	ProgressChan chan InitProgress
}

// DefaultInitConfig returns sensible defaults.
func DefaultInitConfig(baseDir string) InitConfig {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return InitConfig{
		BaseDir:      baseDir,
		DefaultName:  "odoo-project",
		DefaultOdoo:  scaffold.SupportedVersions[0],
		StartPort:    8069,
		BranchSuffix: ".0",
		Timeout:      10 * time.Minute,
	}
}

// Deps are the collaborators of an Initializer. Catalog, Registry and
// Docker may be nil.
type Deps struct {
	Prompter     prompt.Prompter
	Ports        PortFinder
	Generator    *scaffold.Generator
	Materializer *addons.Materializer
	Catalog      CatalogSyncer
	Registry     ProjectRecorder
	Docker       ComposeRunner
}

// InitResult represents the result of initialization.
type InitResult struct {
	Success       bool                 `json:"success"`
	Spec          scaffold.ProjectSpec `json:"spec"`
	ProjectDir    string               `json:"project_dir"`
	FilesCreated  []string             `json:"files_created"`
	CatalogAction catalog.SyncAction   `json:"catalog_action,omitempty"`
	Addons        []string             `json:"addons,omitempty"`
	FailedAddons  []addons.EntryResult `json:"-"`
	Started       bool                 `json:"started"`
	DryRun        bool                 `json:"dry_run"`
	Artifacts     *scaffold.Artifacts  `json:"-"`
	Duration      time.Duration        `json:"duration"`
	Warnings      []string             `json:"warnings,omitempty"`
}

// Initializer runs one scaffolding session.
type Initializer struct {
	config InitConfig
	deps   Deps
	log    *zap.Logger
}

// NewInitializer creates a new initializer.
func NewInitializer(config InitConfig, deps Deps) *Initializer {
	if deps.Prompter == nil {
		deps.Prompter = prompt.Defaults()
	}
	if deps.Materializer == nil {
		deps.Materializer = addons.NewMaterializer()
	}
	if deps.Generator == nil {
		deps.Generator = scaffold.NewGenerator(nil, "")
	}
	return &Initializer{config: config, deps: deps, log: logging.Get(logging.CategoryBoot)}
}

// Initialize performs the full run.
func (i *Initializer) Initialize(ctx context.Context) (*InitResult, error) {
	startTime := time.Now()
	if i.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.config.Timeout)
		defer cancel()
	}
	result := &InitResult{FilesCreated: make([]string, 0), Warnings: make([]string, 0)}

	// Phase 1: choices
	i.sendProgress("choices", "Collecting project settings...", 0.0)
	name, err := i.resolveName(ctx)
	if err != nil {
		return nil, err
	}
	version, err := i.resolveVersion(ctx)
	if err != nil {
		return nil, err
	}

	// Phase 2: port
	i.sendProgress("port", "Allocating web port...", 0.15)
	port, err := i.resolvePort(ctx)
	if err != nil {
		return nil, err
	}

	spec, err := scaffold.NewProjectSpec(name, version, port)
	if err != nil {
		return nil, err
	}
	result.Spec = spec
	layout := scaffold.NewLayout(i.config.BaseDir, spec.Name)
	result.ProjectDir = layout.Root

	if IsInitialized(layout.Root) {
		if err := i.confirmOverwrite(ctx, layout, result); err != nil {
			return nil, err
		}
	}

	if i.config.DryRun {
		artifacts, err := scaffold.Render(spec)
		if err != nil {
			return nil, err
		}
		result.DryRun = true
		result.Artifacts = &artifacts
		result.Addons = i.config.Addons
		result.Success = true
		result.Duration = time.Since(startTime)
		return result, nil
	}

	// Phase 3: generate
	i.sendProgress("generate", "Writing project files...", 0.30)
	gen, err := i.deps.Generator.Generate(ctx, i.config.BaseDir, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to generate project: %w", err)
	}
	result.FilesCreated = append(result.FilesCreated, gen.Files...)
	result.Warnings = append(result.Warnings, gen.Warnings...)

	// Phase 4: registry
	i.record(ctx, result, nil)

	// Phase 5: addons
	if !i.config.SkipAddons {
		i.sendProgress("addons", "Installing addons...", 0.50)
		if err := i.installAddons(ctx, layout, result); err != nil {
			return nil, err
		}
		if len(result.Addons) > 0 {
			i.record(ctx, result, result.Addons)
		}
	}

	// Phase 6: containers
	i.sendProgress("start", "Starting containers...", 0.90)
	if err := i.maybeStart(ctx, layout, result); err != nil {
		return nil, err
	}

	result.Success = true
	result.Duration = time.Since(startTime)
	i.sendProgress("done", "Project ready", 1.0)
	i.log.Info("project initialized",
		zap.String("dir", result.ProjectDir),
		zap.Int("addons", len(result.Addons)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (i *Initializer) resolveName(ctx context.Context) (string, error) {
	if i.config.Name != "" {
		return i.config.Name, scaffold.ValidateName(i.config.Name)
	}
	def := i.config.DefaultName
	if def == "" {
		def = "odoo-project"
	}
	return i.deps.Prompter.Input(ctx, "Project name", def, scaffold.ValidateName)
}

func (i *Initializer) resolveVersion(ctx context.Context) (string, error) {
	version := i.config.OdooVersion
	if version == "" {
		def := i.config.DefaultOdoo
		if !scaffold.IsSupported(def) {
			def = scaffold.SupportedVersions[0]
		}
		var err error
		version, err = i.deps.Prompter.Select(ctx, "Odoo version", scaffold.SupportedVersions, def)
		if err != nil {
			return "", err
		}
	}
	if _, err := scaffold.PostgresVersionFor(version); err != nil {
		return "", err
	}
	return version, nil
}

func (i *Initializer) resolvePort(ctx context.Context) (int, error) {
	if i.config.FixedPort != 0 {
		return i.config.FixedPort, nil
	}
	if i.deps.Ports == nil {
		return 0, fmt.Errorf("no port allocator configured")
	}
	start := i.config.StartPort
	if start == 0 {
		start = 8069
	}
	port, err := i.deps.Ports.FindAvailablePort(ctx, start)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate port: %w", err)
	}
	return port, nil
}

func (i *Initializer) record(ctx context.Context, result *InitResult, installed []string) {
	if i.deps.Registry == nil {
		return
	}
	err := i.deps.Registry.Record(ctx, registry.Project{
		Path:            result.ProjectDir,
		Name:            result.Spec.Name,
		OdooVersion:     result.Spec.OdooVersion,
		PostgresVersion: result.Spec.PostgresVersion,
		Port:            result.Spec.Port,
		Addons:          installed,
	})
	if err != nil {
		i.log.Warn("project not recorded", zap.Error(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to record project: %v", err))
	}
}

func (i *Initializer) maybeStart(ctx context.Context, layout scaffold.Layout, result *InitResult) error {
	if i.deps.Docker == nil {
		return nil
	}
	up, err := i.decide(ctx, i.config.Up, "Start the containers now (docker compose up -d)?")
	if err != nil || !up {
		return err
	}
	if err := i.deps.Docker.ComposeUp(ctx, layout.Root); err != nil {
		i.log.Warn("containers not started", zap.Error(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to start containers: %v", err))
		return nil
	}
	result.Started = true
	return nil
}

// confirmOverwrite lets an existing project be regenerated in place. The
// descriptor and server config are rewritten; addons and data are kept.
func (i *Initializer) confirmOverwrite(ctx context.Context, layout scaffold.Layout, result *InitResult) error {
	overwrite := true
	if i.config.Overwrite != nil {
		overwrite = *i.config.Overwrite
	} else if !i.config.DryRun {
		var err error
		overwrite, err = i.deps.Prompter.Confirm(ctx,
			fmt.Sprintf("%s already holds a project. Rewrite its descriptors?", layout.Root), true)
		if err != nil {
			return err
		}
	}
	if !overwrite {
		return fmt.Errorf("%w: %s", ErrProjectExists, layout.Root)
	}
	i.log.Info("rewriting existing project", zap.String("dir", layout.Root))
	result.Warnings = append(result.Warnings, fmt.Sprintf("Rewriting existing project in %s", layout.Root))
	return nil
}

// decide returns the preset answer, or asks.
func (i *Initializer) decide(ctx context.Context, preset *bool, question string) (bool, error) {
	if preset != nil {
		return *preset, nil
	}
	return i.deps.Prompter.Confirm(ctx, question, false)
}

// sendProgress sends a progress update if a channel is configured.
func (i *Initializer) sendProgress(phase, message string, percent float64) {
	if i.config.ProgressChan != nil {
		select {
		case i.config.ProgressChan <- InitProgress{
			Phase:   phase,
			Message: message,
			Percent: percent,
		}:
		default:
			// Don't block if channel is full
		}
	}
}

// IsInitialized reports whether dir already holds a generated project.
func IsInitialized(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, scaffold.ComposeFileName))
	return err == nil
}
