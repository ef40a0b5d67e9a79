// guide.go implements the guide command for documentation access.
//
// Guides are embedded in the binary so documentation is always available
// without external files. Terminal output gets glamour rendering for
// readability; pipe/redirect gets raw markdown for machine consumption.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpl-au/coderd/guide"
)

func init() {
	rootCmd.AddCommand(newGuideCmd())
}

func newGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guide [topic]",
		Short: "Show the coderd usage guide",
		Long: `Outputs the coderd guide for LLMs and humans.

  coderd guide         # main guide
  coderd guide edit    # the fuzzy edit tool in detail
  coderd guide config  # configuration reference`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			content, err := guide.Get(name)
			if err != nil {
				available, listErr := guide.List()
				if listErr != nil {
					return listErr
				}
				return fmt.Errorf("guide %q not found. Available: %s", name, strings.Join(available, ", "))
			}

			if term.IsTerminal(int(os.Stdout.Fd())) {
				rendered, err := glamour.Render(content, "dark")
				if err == nil {
					fmt.Print(rendered)
					return nil
				}
			}

			fmt.Print(content)
			return nil
		},
	}
}
