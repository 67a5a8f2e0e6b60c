// Package ports finds a host port for a new project's web service.
//
// Occupancy comes from one or more Probes (the kernel's listening-socket
// table, ports published by docker, ports reserved by earlier scaffolds).
// A probe that cannot answer is skipped with a warning: a missing
// diagnostic tool must never block scaffolding.
package ports

import (
	"context"
	"errors"
	"sort"
)

// MinPort and MaxPort bound valid TCP/UDP ports.
const (
	MinPort = 1
	MaxPort = 65535
)

// ErrProbeUnavailable marks a probe that could not query the host at all
// (tool missing, permission denied, daemon unreachable).
var ErrProbeUnavailable = errors.New("port probe unavailable")

// Set is a set of port numbers.
type Set map[int]struct{}

// NewSet builds a set from ports.
func NewSet(ports ...int) Set {
	s := make(Set, len(ports))
	for _, p := range ports {
		s.Add(p)
	}
	return s
}

// Add inserts p.
func (s Set) Add(p int) { s[p] = struct{}{} }

// Has reports whether p is in the set.
func (s Set) Has(p int) bool {
	_, ok := s[p]
	return ok
}

// Merge adds every port of other.
func (s Set) Merge(other Set) {
	for p := range other {
		s.Add(p)
	}
}

// Sorted returns the ports in ascending order.
func (s Set) Sorted() []int {
	out := make([]int, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Probe reports ports that are currently taken on the host.
type Probe interface {
	// Name identifies the probe in logs.
	Name() string

	// Occupied returns a snapshot of the ports the probe considers in use.
	Occupied(ctx context.Context) (Set, error)
}

// StaticProbe reports a fixed set of ports.
type StaticProbe struct {
	Label string
	Ports Set
	Err   error
}

// Name implements Probe.
func (p StaticProbe) Name() string {
	if p.Label == "" {
		return "static"
	}
	return p.Label
}

// Occupied implements Probe.
func (p StaticProbe) Occupied(context.Context) (Set, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Ports, nil
}
