// Package dockerhost talks to the local docker daemon: reachability,
// ports published by running containers, and starting a compose project.
package dockerhost

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"odoogen/internal/logging"
	"odoogen/internal/tactile"
)

// ErrDaemonUnavailable is returned when the daemon cannot be reached.
var ErrDaemonUnavailable = errors.New("docker daemon unavailable")

// DefaultTimeout bounds each daemon API call.
const DefaultTimeout = 5 * time.Second

// daemonAPI is the part of the docker client used here.
type daemonAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Close() error
}

// Host wraps the daemon client and the docker CLI.
type Host struct {
	api      daemonAPI
	executor tactile.Executor
	binary   string
	timeout  time.Duration
	log      *zap.Logger
}

// New connects using the standard DOCKER_* environment with API version
// negotiation. binary is the docker CLI used for compose.
func New(executor tactile.Executor, binary string, timeout time.Duration) (*Host, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newHost(cli, executor, binary, timeout), nil
}

func newHost(api daemonAPI, executor tactile.Executor, binary string, timeout time.Duration) *Host {
	if binary == "" {
		binary = "docker"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Host{
		api:      api,
		executor: executor,
		binary:   binary,
		timeout:  timeout,
		log:      logging.Get(logging.CategoryDocker),
	}
}

// Close releases the client.
func (h *Host) Close() error {
	return h.api.Close()
}

// Ping checks that the daemon answers.
func (h *Host) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ping, err := h.api.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	h.log.Debug("docker daemon reachable", zap.String("api_version", ping.APIVersion), zap.String("os", ping.OSType))
	return nil
}

// PublishedPorts returns the distinct host ports published by running
// containers, ascending.
func (h *Host) PublishedPorts(ctx context.Context) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	list, err := h.api.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}

	seen := make(map[int]struct{})
	var ports []int
	for _, c := range list {
		for _, p := range c.Ports {
			if p.PublicPort == 0 {
				continue
			}
			port := int(p.PublicPort)
			if _, dup := seen[port]; dup {
				continue
			}
			seen[port] = struct{}{}
			ports = append(ports, port)
		}
	}
	sort.Ints(ports)
	h.log.Debug("published ports", zap.Int("containers", len(list)), zap.Ints("ports", ports))
	return ports, nil
}

// ListPorts lets the host act as a port probe source.
func (h *Host) ListPorts(ctx context.Context) ([]int, error) {
	return h.PublishedPorts(ctx)
}

// ComposeUp starts the compose project in dir in the background.
func (h *Host) ComposeUp(ctx context.Context, dir string) error {
	if err := h.Ping(ctx); err != nil {
		return err
	}
	h.log.Info("starting containers", zap.String("dir", dir))
	cmd := tactile.Command{
		Binary:           h.binary,
		Arguments:        []string{"compose", "up", "-d"},
		WorkingDirectory: dir,
	}
	if _, err := tactile.Run(ctx, h.executor, cmd); err != nil {
		return fmt.Errorf("compose up: %w", err)
	}
	return nil
}
