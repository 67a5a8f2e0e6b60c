package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"odoogen/internal/addons"
	"odoogen/internal/catalog"
	projinit "odoogen/internal/init"
	"odoogen/internal/prompt"
	"odoogen/internal/scaffold"
)

var (
	// new flags
	newName      string
	newOdoo      string
	newPort      int
	newAddons    []string
	newNoAddons  bool
	newPull      bool
	newUp        bool
	newYes       bool
	newNoClobber bool
	newMarkdown  bool
	newPrompter  prompt.Prompter // overridden in tests
)

// newCmd creates a project
var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new Odoo project",
	Long: `Creates <workspace>/<name> with:

  config/odoo.conf        server configuration
  addons/                 mounted at /mnt/extra-addons
  custom_addons/          mounted at /mnt/custom-addons, filled from the catalog
  data/                   filestore and postgres data
  docker-compose.yml      odoo + postgres services

Example:
  odoogen new --name shop --odoo 17 --addons sale_ext,bundle --up --yes`,
	Args: cobra.NoArgs,
	RunE: runNew,
}

func addNewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&newName, "name", "", "Project name (directory)")
	cmd.Flags().StringVar(&newOdoo, "odoo", "", "Odoo version (18, 17, 16, 15, 14, 13)")
	cmd.Flags().IntVar(&newPort, "port", 0, "Host port for the web service (default: first free port)")
	cmd.Flags().StringSliceVar(&newAddons, "addons", nil, "Catalog entries to install (comma separated)")
	cmd.Flags().BoolVar(&newNoAddons, "no-addons", false, "Skip the addon catalog entirely")
	cmd.Flags().BoolVar(&newPull, "pull", false, "Pull the latest catalog before installing addons")
	cmd.Flags().BoolVar(&newUp, "up", false, "Run docker compose up -d when done")
	cmd.Flags().BoolVarP(&newYes, "yes", "y", false, "Accept defaults instead of prompting")
	cmd.Flags().BoolVar(&newNoClobber, "no-clobber", false, "Fail an addon instead of overwriting existing files")
	cmd.Flags().BoolVar(&newMarkdown, "markdown", false, "Render the summary as markdown")
}

func runNew(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	c := currentConfig()
	svc := openServices(c)
	defer svc.Close()

	config := projinit.DefaultInitConfig(resolveWorkspace())
	config.Timeout = timeout
	config.Name = newName
	config.OdooVersion = newOdoo
	config.DefaultOdoo = c.Scaffold.DefaultVersion
	config.StartPort = c.Ports.Start
	config.FixedPort = newPort
	config.CatalogPath = c.Catalog.Path
	config.BranchSuffix = c.Catalog.BranchSuffix
	config.Addons = newAddons
	config.SkipAddons = newNoAddons
	config.DryRun = dryRun
	if flagChanged(cmd, "pull") || newYes {
		config.Pull = &newPull
	}
	if flagChanged(cmd, "up") || newYes {
		config.Up = &newUp
	}

	p := newPrompter
	if p == nil {
		if newYes {
			p = prompt.Defaults()
		} else {
			p = prompt.NewTeaPrompter(os.Stdin, os.Stdout)
		}
	}

	deps := projinit.Deps{
		Prompter:     p,
		Ports:        svc.allocator(c),
		Generator:    scaffold.NewGenerator(svc.executor, c.Scaffold.OpenPermissions),
		Materializer: addons.NewMaterializer(addons.WithMarker(c.Catalog.Marker), addons.WithNoClobber(newNoClobber)),
		Catalog:      catalog.NewSyncer(svc.executor, c.Catalog.Path, c.Catalog.Repository),
	}
	if svc.registry != nil {
		deps.Registry = svc.registry
	}
	if up := svc.composeUp(); up != nil {
		deps.Docker = up
	}

	out := cmd.OutOrStdout()
	progress := make(chan projinit.InitProgress, 16)
	config.ProgressChan = progress
	done := make(chan struct{})
	go func() {
		defer close(done)
		reportProgress(cmd.ErrOrStderr(), progress)
	}()

	result, err := projinit.NewInitializer(config, deps).Initialize(ctx)
	close(progress)
	<-done
	if errors.Is(err, prompt.ErrAborted) {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	if newMarkdown {
		md, err := renderMarkdown(summaryMarkdown(result))
		if err != nil {
			return err
		}
		fmt.Fprint(out, md)
		return nil
	}
	fmt.Fprintln(out, renderSummary(result))
	return nil
}

// reportProgress prints each phase of a run until progress is closed.
func reportProgress(w io.Writer, progress <-chan projinit.InitProgress) {
	for p := range progress {
		style := prompt.HintStyle
		if p.IsError {
			style = prompt.ErrorStyle
		}
		fmt.Fprintln(w, style.Render(fmt.Sprintf("[%3.0f%%] %s", p.Percent*100, p.Message)))
	}
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
