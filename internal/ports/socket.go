package ports

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"odoogen/internal/tactile"
)

// SocketTableProbe reads the kernel's listening-socket table through `ss`
// (or `netstat`) run by a tactile.Executor.
type SocketTableProbe struct {
	Executor tactile.Executor
	Tool     string // "ss" (default) or "netstat"
}

// NewSocketTableProbe creates a probe using the given tool.
func NewSocketTableProbe(executor tactile.Executor, tool string) *SocketTableProbe {
	return &SocketTableProbe{Executor: executor, Tool: tool}
}

// Name implements Probe.
func (p *SocketTableProbe) Name() string { return p.tool() }

func (p *SocketTableProbe) tool() string {
	if p.Tool == "" {
		return "ss"
	}
	return p.Tool
}

// Occupied implements Probe. Any failure to run the tool, including a
// non-zero exit, is reported as ErrProbeUnavailable.
func (p *SocketTableProbe) Occupied(ctx context.Context) (Set, error) {
	cmd := tactile.Command{Binary: p.tool(), Arguments: []string{"-tuln"}}
	res, err := tactile.Run(ctx, p.Executor, cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
	}
	return ParseSocketTable(res.Stdout), nil
}

// ParseSocketTable extracts local ports from `ss -tuln` or `netstat -tuln`
// output. The local address is the first column shaped like host:port with
// a numeric port; peer columns such as "0.0.0.0:*" never match first.
func ParseSocketTable(output string) Set {
	ports := NewSet()
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			if port, ok := parseAddrPort(field); ok {
				ports.Add(port)
				break
			}
		}
	}
	return ports
}

// parseAddrPort accepts "0.0.0.0:8069", "[::]:8069", "*:8069",
// "127.0.0.53%lo:53" and ":::8069".
func parseAddrPort(field string) (int, bool) {
	idx := strings.LastIndex(field, ":")
	if idx < 0 || idx == len(field)-1 {
		return 0, false
	}
	port, err := strconv.Atoi(field[idx+1:])
	if err != nil || port < MinPort || port > MaxPort {
		return 0, false
	}
	return port, true
}
