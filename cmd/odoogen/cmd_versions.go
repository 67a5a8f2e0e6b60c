package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"odoogen/internal/scaffold"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List supported Odoo versions and their PostgreSQL pairing",
	Args:  cobra.NoArgs,
	RunE:  runVersions,
}

func runVersions(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ODOO\tPOSTGRES\tCATALOG BRANCH")
	for _, v := range scaffold.SupportedVersions {
		pg, err := scaffold.PostgresVersionFor(v)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", v, pg, c.CatalogBranch(v))
	}
	return w.Flush()
}
