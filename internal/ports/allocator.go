package ports

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"odoogen/internal/logging"
)

// DefaultMaxAttempts bounds the search when the caller sets none.
const DefaultMaxAttempts = 100

var (
	// ErrInvalidPort is returned for a start port outside 1-65535.
	ErrInvalidPort = errors.New("port out of range")

	// ErrNoAvailablePort is returned when every candidate is occupied.
	ErrNoAvailablePort = errors.New("no available port")
)

// Allocator picks the first free port at or above a start port.
type Allocator struct {
	probes      []Probe
	maxAttempts int
	log         *zap.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts caps the number of candidate ports tried.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithLogger overrides the category logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Allocator) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAllocator creates an allocator consulting the given probes.
func NewAllocator(probes []Probe, opts ...Option) *Allocator {
	a := &Allocator{
		probes:      probes,
		maxAttempts: DefaultMaxAttempts,
		log:         logging.Get(logging.CategoryPorts),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot merges every probe's view of occupied ports. Probes that fail
// are logged and skipped, so the snapshot is optimistic.
func (a *Allocator) Snapshot(ctx context.Context) Set {
	occupied := NewSet()
	for _, probe := range a.probes {
		ports, err := probe.Occupied(ctx)
		if err != nil {
			a.log.Warn("port probe failed; assuming its ports are free",
				zap.String("probe", probe.Name()), zap.Error(err))
			continue
		}
		a.log.Debug("port probe answered", zap.String("probe", probe.Name()), zap.Int("occupied", len(ports)))
		occupied.Merge(ports)
	}
	return occupied
}

// FindAvailablePort returns the first port >= start that no probe reports
// as occupied. At most maxAttempts candidates are tried and the search never
// passes 65535.
func (a *Allocator) FindAvailablePort(ctx context.Context, start int) (int, error) {
	if start < MinPort || start > MaxPort {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPort, start)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	occupied := a.Snapshot(ctx)
	return a.pick(start, occupied)
}

func (a *Allocator) pick(start int, occupied Set) (int, error) {
	last := start + a.maxAttempts - 1
	if last > MaxPort {
		last = MaxPort
	}
	for port := start; port <= last; port++ {
		if !occupied.Has(port) {
			return port, nil
		}
		a.log.Info("port already in use", zap.Int("port", port), zap.Int("next", port+1))
	}
	return 0, fmt.Errorf("%w in %d-%d", ErrNoAvailablePort, start, last)
}
