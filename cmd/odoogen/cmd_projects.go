package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"odoogen/internal/prompt"
)

var errRegistryDisabled = errors.New("project registry is disabled or unavailable")

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List and manage generated projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects recorded in the registry",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsForgetCmd = &cobra.Command{
	Use:   "forget <path>",
	Short: "Remove a project from the registry, releasing its port",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsForget,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsForgetCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	svc := openServices(currentConfig())
	defer svc.Close()
	if svc.registry == nil {
		return errRegistryDisabled
	}

	projects, err := svc.registry.List(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects recorded.")
		return nil
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(prompt.Primary).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(prompt.Muted)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("NAME", "ODOO", "PG", "PORT", "ADDONS", "PATH")
	for _, p := range projects {
		t.Row(p.Name, p.OdooVersion, p.PostgresVersion, strconv.Itoa(p.Port), strings.Join(p.Addons, ","), p.Path)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func runProjectsForget(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	svc := openServices(currentConfig())
	defer svc.Close()
	if svc.registry == nil {
		return errRegistryDisabled
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if err := svc.registry.Forget(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", path)
	return nil
}
