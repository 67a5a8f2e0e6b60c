package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	projinit "odoogen/internal/init"
	"odoogen/internal/prompt"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(prompt.Accent)
	keyStyle   = lipgloss.NewStyle().Foreground(prompt.Muted).Width(12)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(prompt.Primary).
			Padding(0, 1)
)

// renderSummary formats the outcome of "new" for the terminal.
func renderSummary(r *projinit.InitResult) string {
	var b strings.Builder
	title := fmt.Sprintf("Odoo %s project %q created", r.Spec.OdooVersion, r.Spec.Name)
	if r.DryRun {
		title = fmt.Sprintf("Dry run: Odoo %s project %q", r.Spec.OdooVersion, r.Spec.Name)
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	row := func(k, v string) {
		b.WriteString(keyStyle.Render(k) + " " + v + "\n")
	}
	row("Directory", r.ProjectDir)
	row("Web", fmt.Sprintf("http://localhost:%d", r.Spec.Port))
	row("Postgres", r.Spec.PostgresVersion)
	if len(r.Addons) > 0 {
		row("Addons", strings.Join(r.Addons, ", "))
	}
	if r.CatalogAction != "" {
		row("Catalog", string(r.CatalogAction))
	}
	if r.Started {
		row("Containers", "started")
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range r.Warnings {
			b.WriteString(prompt.WarningStyle.Render("! "+w) + "\n")
		}
	}
	if r.DryRun && r.Artifacts != nil {
		b.WriteString("\n" + string(r.Artifacts.Compose))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// summaryMarkdown describes the project and the next steps.
func summaryMarkdown(r *projinit.InitResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Spec.Name)
	fmt.Fprintf(&b, "Odoo **%s** with PostgreSQL **%s**, served on port **%d**.\n\n", r.Spec.OdooVersion, r.Spec.PostgresVersion, r.Spec.Port)
	if len(r.Addons) > 0 {
		b.WriteString("## Addons\n\n")
		for _, a := range r.Addons {
			fmt.Fprintf(&b, "- `%s`\n", a)
		}
		b.WriteString("\n")
	}
	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Next steps\n\n")
	b.WriteString("```sh\n")
	fmt.Fprintf(&b, "cd %s\n", r.ProjectDir)
	if !r.Started {
		b.WriteString("docker compose up -d\n")
	}
	b.WriteString("docker compose logs -f web\n")
	b.WriteString("```\n\n")
	fmt.Fprintf(&b, "Then open http://localhost:%d\n", r.Spec.Port)
	return b.String()
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("notty"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}
