package addons

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"odoogen/internal/logging"
)

// ErrDestinationExists is returned in no-clobber mode when a target path is
// already present. Nothing of the entry is copied.
var ErrDestinationExists = errors.New("destination already exists")

// ErrInvalidEntry is returned for an entry name that is not a single path
// segment inside the catalog.
var ErrInvalidEntry = errors.New("invalid catalog entry")

// Materializer copies catalog entries into a destination root.
type Materializer struct {
	marker    string
	noClobber bool
	log       *zap.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithMarker overrides DefaultMarker.
func WithMarker(marker string) Option {
	return func(m *Materializer) {
		if marker != "" {
			m.marker = marker
		}
	}
}

// WithNoClobber refuses to overwrite existing destinations.
func WithNoClobber(on bool) Option {
	return func(m *Materializer) { m.noClobber = on }
}

// NewMaterializer creates a materializer.
func NewMaterializer(opts ...Option) *Materializer {
	m := &Materializer{
		marker: DefaultMarker,
		log:    logging.Get(logging.CategoryAddons),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Marker returns the marker file name in use.
func (m *Materializer) Marker() string { return m.marker }

// Outcome describes one materialized entry.
type Outcome struct {
	Source string
	Kind   Kind
	// Targets are the top-level paths written under the destination root.
	Targets []string
}

type copyJob struct {
	src, dst string
}

// Materialize copies src into destRoot according to its kind:
//   - atomic: destRoot/<base(src)> receives the whole tree;
//   - group: every immediate child lands at destRoot/<child>;
//   - file: copied to destRoot/<base(src)>.
func (m *Materializer) Materialize(src, destRoot string) (*Outcome, error) {
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	out, jobs, err := m.plan(src, destRoot)
	if err != nil {
		return nil, err
	}

	for _, job := range jobs {
		if err := CopyTree(job.src, job.dst); err != nil {
			return out, fmt.Errorf("copy %s: %w", filepath.Base(job.src), err)
		}
		out.Targets = append(out.Targets, job.dst)
	}

	m.log.Info("entry materialized",
		zap.String("source", src),
		zap.Stringer("kind", out.Kind),
		zap.Int("targets", len(out.Targets)))
	return out, nil
}

// Plan classifies src and returns the targets Materialize would write,
// without touching the filesystem.
func (m *Materializer) Plan(src, destRoot string) (*Outcome, error) {
	out, jobs, err := m.plan(src, destRoot)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		out.Targets = append(out.Targets, job.dst)
	}
	return out, nil
}

func (m *Materializer) plan(src, destRoot string) (*Outcome, []copyJob, error) {
	k, err := Classify(src, m.marker)
	if err != nil {
		return nil, nil, fmt.Errorf("classify %s: %w", filepath.Base(src), err)
	}

	var jobs []copyJob
	switch k {
	case KindAtomic, KindFile:
		jobs = append(jobs, copyJob{src: src, dst: filepath.Join(destRoot, filepath.Base(src))})
	case KindGroup:
		children, err := os.ReadDir(src)
		if err != nil {
			return nil, nil, fmt.Errorf("read group %s: %w", filepath.Base(src), err)
		}
		for _, child := range children {
			jobs = append(jobs, copyJob{
				src: filepath.Join(src, child.Name()),
				dst: filepath.Join(destRoot, child.Name()),
			})
		}
	}

	if m.noClobber {
		for _, job := range jobs {
			if _, err := os.Lstat(job.dst); err == nil {
				return nil, nil, fmt.Errorf("%w: %s", ErrDestinationExists, job.dst)
			}
		}
	}
	return &Outcome{Source: src, Kind: k}, jobs, nil
}

// EntryResult is the result for one requested entry.
type EntryResult struct {
	Name    string
	Outcome *Outcome
	Err     error
}

// Report collects the results of MaterializeAll in request order.
type Report struct {
	Results []EntryResult
}

// Succeeded returns the names of the entries that were copied.
func (r *Report) Succeeded() []string {
	var names []string
	for _, res := range r.Results {
		if res.Err == nil {
			names = append(names, res.Name)
		}
	}
	return names
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []EntryResult {
	var failed []EntryResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins every entry error, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
	}
	return errors.Join(errs...)
}

// MaterializeAll materializes catalogRoot/<name> for each name, in order.
// A failing entry is recorded and the remaining entries still run.
func (m *Materializer) MaterializeAll(ctx context.Context, catalogRoot string, names []string, destRoot string) *Report {
	return m.each(ctx, catalogRoot, names, destRoot, m.Materialize)
}

// PlanAll is MaterializeAll without writing: each result carries the
// targets that would be written.
func (m *Materializer) PlanAll(ctx context.Context, catalogRoot string, names []string, destRoot string) *Report {
	return m.each(ctx, catalogRoot, names, destRoot, m.Plan)
}

func (m *Materializer) each(ctx context.Context, catalogRoot string, names []string, destRoot string,
	apply func(src, destRoot string) (*Outcome, error)) *Report {
	report := &Report{Results: make([]EntryResult, 0, len(names))}
	for _, name := range names {
		res := EntryResult{Name: name}
		switch {
		case ctx.Err() != nil:
			res.Err = ctx.Err()
		case !validEntryName(name):
			res.Err = fmt.Errorf("%w: %q", ErrInvalidEntry, name)
		default:
			res.Outcome, res.Err = apply(filepath.Join(catalogRoot, name), destRoot)
		}
		if res.Err != nil {
			m.log.Warn("entry not materialized", zap.String("entry", name), zap.Error(res.Err))
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func validEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
