package main

import (
	"context"

	"go.uber.org/zap"

	"odoogen/internal/config"
	"odoogen/internal/dockerhost"
	"odoogen/internal/ports"
	"odoogen/internal/registry"
	"odoogen/internal/tactile"
)

// executorOverride replaces the command runner; set by tests.
var executorOverride tactile.Executor

// services bundles the collaborators shared by the commands. registry and
// docker are nil when disabled or unavailable.
type services struct {
	// executor runs commands that change the host (git, chmod, compose).
	// Under --dry-run it only records them.
	executor tactile.Executor
	// probeExecutor runs read-only host queries and is never a dry run.
	probeExecutor tactile.Executor
	registry      *registry.Store
	docker        *dockerhost.Host
}

// openServices wires the command runner, the registry and the docker
// host from the config. Failures to reach optional collaborators are
// logged and leave them nil.
func openServices(c *config.Config) *services {
	log := currentLogger()
	s := &services{}

	s.probeExecutor = tactile.NewDirectExecutorWithConfig(tactile.ExecutorConfig{
		DefaultTimeout:     c.Execution.GetDefaultTimeout(),
		MaxOutputBytes:     c.Execution.MaxOutputBytes,
		InheritEnvironment: true,
	})
	switch {
	case executorOverride != nil:
		s.executor = executorOverride
	case dryRun:
		s.executor = tactile.NewDryRunExecutor()
	default:
		s.executor = s.probeExecutor
	}

	if c.Registry.Enabled {
		store, err := registry.Open(c.Registry.Path)
		if err != nil {
			log.Warn("project registry unavailable", zap.String("path", c.Registry.Path), zap.Error(err))
		} else {
			s.registry = store
		}
	}

	host, err := dockerhost.New(s.executor, c.Docker.Binary, c.GetDockerTimeout())
	if err != nil {
		log.Warn("docker client unavailable", zap.Error(err))
	} else {
		s.docker = host
	}
	return s
}

// allocator builds a port allocator over every enabled probe.
func (s *services) allocator(c *config.Config) *ports.Allocator {
	probes := []ports.Probe{ports.NewSocketTableProbe(s.probeExecutor, c.Ports.SocketTool)}
	if c.Ports.ProbeDocker && s.docker != nil {
		probes = append(probes, ports.NewDockerProbe(s.docker))
	}
	if c.Ports.ProbeRegistry && s.registry != nil {
		probes = append(probes, ports.NewRegistryProbe(s.registry))
	}
	return ports.NewAllocator(probes, ports.WithMaxAttempts(c.Ports.MaxAttempts))
}

// composeUp returns the compose runner, or nil when docker is unavailable.
func (s *services) composeUp() composeRunner {
	if s.docker == nil {
		return nil
	}
	return s.docker
}

type composeRunner interface {
	ComposeUp(ctx context.Context, dir string) error
}

func (s *services) Close() {
	if s.registry != nil {
		_ = s.registry.Close()
	}
	if s.docker != nil {
		_ = s.docker.Close()
	}
}
