package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var portCmd = &cobra.Command{
	Use:   "port [start]",
	Short: "Print the first free host port at or above start",
	Long: `Consults the socket table, running containers and the project registry
and prints the first port nobody holds. start defaults to ports.start from
the config (8069).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPort,
}

func runPort(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	c := currentConfig()
	start := c.Ports.Start
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid start port %q", args[0])
		}
		start = n
	}

	svc := openServices(c)
	defer svc.Close()

	port, err := svc.allocator(c).FindAvailablePort(ctx, start)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), port)
	return nil
}
