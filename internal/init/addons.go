package init

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"odoogen/internal/catalog"
	"odoogen/internal/scaffold"
)

// installAddons refreshes the catalog, resolves the selection and copies
// it into custom_addons. Catalog problems become warnings; only an aborted
// prompt stops the run.
func (i *Initializer) installAddons(ctx context.Context, layout scaffold.Layout, result *InitResult) error {
	if i.config.CatalogPath == "" {
		result.Warnings = append(result.Warnings, "No addon catalog configured")
		return nil
	}

	if i.deps.Catalog != nil {
		// A fresh clone is already current, so pulling is only offered
		// for an existing checkout.
		pull := false
		if _, err := os.Stat(i.config.CatalogPath); err == nil {
			if pull, err = i.decide(ctx, i.config.Pull, "Pull the latest addons?"); err != nil {
				return err
			}
		}
		branch := result.Spec.OdooVersion + i.config.BranchSuffix
		action, err := i.deps.Catalog.Ensure(ctx, branch, pull)
		result.CatalogAction = action
		if err != nil {
			i.log.Warn("catalog refresh failed", zap.String("branch", branch), zap.Error(err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("Catalog refresh failed: %v", err))
		}
	}

	entries, err := catalog.List(i.config.CatalogPath, i.deps.Materializer.Marker())
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Addon catalog unavailable: %v", err))
		return nil
	}

	selected := i.config.Addons
	if len(selected) == 0 {
		if len(entries) == 0 {
			return nil
		}
		selected, err = i.deps.Prompter.MultiSelect(ctx, "Select addons to install", catalog.Names(entries))
		if err != nil {
			return err
		}
	}
	if len(selected) == 0 {
		return nil
	}

	report := i.deps.Materializer.MaterializeAll(ctx, i.config.CatalogPath, selected, layout.CustomAddons())
	result.Addons = report.Succeeded()
	result.FailedAddons = report.Failed()
	for _, failed := range result.FailedAddons {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Addon %s not installed: %v", failed.Name, failed.Err))
	}
	if errors.Is(report.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}
