package ports

import (
	"context"
	"fmt"
)

// PortLister is anything that can enumerate ports it knows to be taken:
// the docker daemon (published container ports) or the project registry
// (ports handed to earlier scaffolds).
type PortLister interface {
	ListPorts(ctx context.Context) ([]int, error)
}

// ListerProbe adapts a PortLister to Probe.
type ListerProbe struct {
	Label  string
	Lister PortLister
}

// NewDockerProbe reports host ports published by running containers.
func NewDockerProbe(lister PortLister) *ListerProbe {
	return &ListerProbe{Label: "docker", Lister: lister}
}

// NewRegistryProbe reports ports reserved by registered projects.
func NewRegistryProbe(lister PortLister) *ListerProbe {
	return &ListerProbe{Label: "registry", Lister: lister}
}

// Name implements Probe.
func (p *ListerProbe) Name() string { return p.Label }

// Occupied implements Probe.
func (p *ListerProbe) Occupied(ctx context.Context) (Set, error) {
	ports, err := p.Lister.ListPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProbeUnavailable, p.Label, err)
	}
	return NewSet(ports...), nil
}
