package main

import (
	"github.com/spf13/cobra"
)

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "Detect launcher root directories on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates := app.Gateway.DetectPrismRoots()

		if jsonOutput {
			printJSON(candidates)
			return nil
		}

		if len(candidates) == 0 {
			printWarning("No launcher roots found")
			return nil
		}

		for _, c := range candidates {
			switch {
			case c.Valid:
				printSuccess("%s (%s)", c.Path, c.Source)
			case c.Exists:
				printWarning("%s (%s, not a launcher root)", c.Path, c.Source)
			default:
				printWarning("%s (%s, missing)", c.Path, c.Source)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rootsCmd)
}
