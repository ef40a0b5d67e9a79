// version.go implements the version command.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/coderd/internal/version"
)

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	var short bool

	c := &cobra.Command{
		Use:   "version",
		Short: "Print the coderd version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if short {
				fmt.Println(version.Short())
				return
			}
			fmt.Print(version.Get().String())
		},
	}
	c.Flags().BoolVar(&short, "short", false, "Print only the version tag")
	return c
}
