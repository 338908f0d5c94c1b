package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List the instances under the launcher root",
	RunE: func(cmd *cobra.Command, args []string) error {
		instances, err := app.Gateway.ListInstances(cfg.Launcher.Root)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(instances)
			return nil
		}

		if len(instances) == 0 {
			printWarning("No instances found")
			return nil
		}

		for _, inst := range instances {
			fmt.Printf("%-24s %-10s %s\n", inst.ID, inst.MinecraftVersion, inst.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(instancesCmd)
}
