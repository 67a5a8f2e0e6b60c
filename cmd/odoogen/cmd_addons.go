package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"odoogen/internal/addons"
	"odoogen/internal/catalog"
	"odoogen/internal/config"
	"odoogen/internal/logging"
	"odoogen/internal/prompt"
	"odoogen/internal/registry"
	"odoogen/internal/scaffold"
)

var (
	addonsNoClobber bool
	addonsWatch     bool
)

var addonsCmd = &cobra.Command{
	Use:   "addons",
	Short: "Work with the addon catalog",
}

var addonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries and how they will be copied",
	Args:  cobra.NoArgs,
	RunE:  runAddonsList,
}

var addonsAddCmd = &cobra.Command{
	Use:   "add <project> <entry>...",
	Short: "Copy catalog entries into an existing project",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAddonsAdd,
}

var addonsSyncCmd = &cobra.Command{
	Use:   "sync <project> <entry>...",
	Short: "Re-copy catalog entries into a project, optionally on every change",
	Long: `Copies the entries once. With --watch, keeps running and copies an
entry again whenever its files change in the catalog. Stop with Ctrl+C.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAddonsSync,
}

func init() {
	addonsAddCmd.Flags().BoolVar(&addonsNoClobber, "no-clobber", false, "Fail an entry instead of overwriting existing files")
	addonsSyncCmd.Flags().BoolVar(&addonsWatch, "watch", false, "Keep syncing on catalog changes")

	addonsCmd.AddCommand(addonsListCmd)
	addonsCmd.AddCommand(addonsAddCmd)
	addonsCmd.AddCommand(addonsSyncCmd)
}

func runAddonsList(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	entries, err := catalog.List(c.Catalog.Path, c.Catalog.Marker)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Kind())
	}
	return w.Flush()
}

func runAddonsAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	c := currentConfig()
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	spec, err := scaffold.LoadProject(root)
	if err != nil {
		return err
	}
	layout := scaffold.Layout{Root: root}
	out := cmd.OutOrStdout()

	svc := openServices(c)
	defer svc.Close()
	checkoutProjectBranch(ctx, svc, c, spec, out)

	m := addons.NewMaterializer(addons.WithMarker(c.Catalog.Marker), addons.WithNoClobber(addonsNoClobber))
	if dryRun {
		return printPlan(out, m.PlanAll(ctx, c.Catalog.Path, args[1:], layout.CustomAddons()))
	}
	report := m.MaterializeAll(ctx, c.Catalog.Path, args[1:], layout.CustomAddons())

	for _, r := range report.Results {
		if r.Err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", r.Name, r.Err)
			continue
		}
		fmt.Fprintf(out, "✓ %s (%s)\n", r.Name, r.Outcome.Kind)
	}

	if installed := report.Succeeded(); len(installed) > 0 && svc.registry != nil {
		rememberAddons(ctx, svc.registry, root, spec, installed)
	}
	return report.Err()
}

// checkoutProjectBranch switches the shared catalog to the branch of the
// project's Odoo version. A failure is reported and copying goes on from
// whatever is checked out.
func checkoutProjectBranch(ctx context.Context, svc *services, c *config.Config, spec scaffold.ProjectSpec, out io.Writer) {
	branch := c.CatalogBranch(spec.OdooVersion)
	syncer := catalog.NewSyncer(svc.executor, c.Catalog.Path, c.Catalog.Repository)
	if _, err := syncer.Ensure(ctx, branch, false); err != nil {
		logging.Get(logging.CategoryCatalog).Warn("catalog branch not switched",
			zap.String("branch", branch), zap.Error(err))
		fmt.Fprintln(out, prompt.WarningStyle.Render(fmt.Sprintf("! catalog not switched to %s: %v", branch, err)))
	}
}

// printPlan lists what a dry run would copy.
func printPlan(out io.Writer, report *addons.Report) error {
	for _, r := range report.Results {
		if r.Err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", r.Name, r.Err)
			continue
		}
		fmt.Fprintf(out, "would copy %s (%s)\n", r.Name, r.Outcome.Kind)
		for _, target := range r.Outcome.Targets {
			fmt.Fprintf(out, "  → %s\n", target)
		}
	}
	return report.Err()
}

// rememberAddons merges installed into the registry record of the project,
// creating the record for projects generated before the registry existed.
func rememberAddons(ctx context.Context, store *registry.Store, root string, spec scaffold.ProjectSpec, installed []string) {
	log := logging.Get(logging.CategoryRegistry)
	p, err := store.Get(ctx, root)
	if errors.Is(err, registry.ErrNotFound) {
		p = &registry.Project{
			Path:            root,
			Name:            spec.Name,
			OdooVersion:     spec.OdooVersion,
			PostgresVersion: spec.PostgresVersion,
			Port:            spec.Port,
		}
	} else if err != nil {
		log.Warn("registry lookup failed", zap.String("path", root), zap.Error(err))
		return
	}
	for _, name := range installed {
		if !slices.Contains(p.Addons, name) {
			p.Addons = append(p.Addons, name)
		}
	}
	if err := store.Record(ctx, *p); err != nil {
		log.Warn("registry update failed", zap.String("path", root), zap.Error(err))
	}
}

func runAddonsSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	c := currentConfig()
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	spec, err := scaffold.LoadProject(root)
	if err != nil {
		return err
	}
	dest := scaffold.Layout{Root: root}.CustomAddons()
	entries := args[1:]
	out := cmd.OutOrStdout()

	svc := openServices(c)
	defer svc.Close()
	checkoutProjectBranch(ctx, svc, c, spec, out)

	m := addons.NewMaterializer(addons.WithMarker(c.Catalog.Marker))
	if dryRun {
		return printPlan(out, m.PlanAll(ctx, c.Catalog.Path, entries, dest))
	}
	report := m.MaterializeAll(ctx, c.Catalog.Path, entries, dest)
	if err := report.Err(); err != nil || !addonsWatch {
		if err == nil {
			fmt.Fprintf(out, "Synced %d entries\n", len(report.Succeeded()))
		}
		return err
	}

	w, err := addons.NewWatcher(m, c.Catalog.Path, entries, dest, func(entry string, _ *addons.Outcome, err error) {
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", entry, err)
			return
		}
		fmt.Fprintf(out, "↻ %s\n", entry)
	})
	if err != nil {
		return err
	}
	// --timeout bounds the initial copy only; watching runs until a signal.
	watchCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := w.Start(watchCtx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(out, "Watching %d entries in %s (Ctrl+C to stop)\n", len(entries), c.Catalog.Path)
	<-watchCtx.Done()
	return nil
}
