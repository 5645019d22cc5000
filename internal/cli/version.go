package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release of the inventory CLI.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/inventory"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the inventory version",
		// Skips config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "inventory v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
