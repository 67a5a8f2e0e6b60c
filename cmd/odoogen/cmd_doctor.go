package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"odoogen/internal/catalog"
	"odoogen/internal/tactile"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the tools odoogen relies on",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

type checkResult struct {
	Name   string
	OK     bool
	Detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	c := currentConfig()
	svc := openServices(c)
	defer svc.Close()

	var (
		mu      sync.Mutex
		results = make([]checkResult, 4)
	)
	set := func(i int, r checkResult) {
		mu.Lock()
		results[i] = r
		mu.Unlock()
	}

	// A failed check is a result, not an error. The group only fails when
	// the run is interrupted, and then nothing is printed.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set(0, toolCheck(gctx, svc.probeExecutor, c.Ports.SocketTool, "-V"))
		return gctx.Err()
	})
	g.Go(func() error {
		set(1, toolCheck(gctx, svc.probeExecutor, "git", "--version"))
		return gctx.Err()
	})
	g.Go(func() error {
		r := checkResult{Name: "docker daemon", OK: true, Detail: "reachable"}
		if svc.docker == nil {
			r = checkResult{Name: "docker daemon", Detail: "client could not be created"}
		} else if err := svc.docker.Ping(gctx); err != nil {
			r = checkResult{Name: "docker daemon", Detail: err.Error()}
		}
		set(2, r)
		return gctx.Err()
	})
	g.Go(func() error {
		r := checkResult{Name: "addon catalog", OK: true}
		entries, err := catalog.List(c.Catalog.Path, c.Catalog.Marker)
		if err != nil {
			r.OK = false
			r.Detail = err.Error()
		} else {
			r.Detail = fmt.Sprintf("%d entries in %s", len(entries), c.Catalog.Path)
		}
		set(3, r)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("doctor interrupted: %w", err)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		mark := "✓"
		if !r.OK {
			mark = "✗"
			failed++
		}
		fmt.Fprintf(out, "%s %-14s %s\n", mark, r.Name, r.Detail)
	}
	if failed > 0 {
		fmt.Fprintf(out, "\n%d check(s) failed; odoogen still runs but skips what they provide.\n", failed)
	}
	return nil
}

func toolCheck(ctx context.Context, e tactile.Executor, tool string, versionFlag string) checkResult {
	if tool == "" {
		tool = "ss"
	}
	res, err := tactile.Run(ctx, e, tactile.Command{Binary: tool, Arguments: []string{versionFlag}})
	if err != nil {
		return checkResult{Name: tool, Detail: err.Error()}
	}
	detail := firstLine(res.Stdout)
	if detail == "" {
		detail = "available"
	}
	return checkResult{Name: tool, OK: true, Detail: detail}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
