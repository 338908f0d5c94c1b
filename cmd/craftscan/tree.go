package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/craftscan/craftscan/internal/gateway"
)

var treeCmd = &cobra.Command{
	Use:   "tree <instance> [nodeId]",
	Short: "List the children of a virtual tree node",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scanID, err := scanAndWait(cmd, gateway.StartScanRequest{
			InstanceFolder:       args[0],
			IncludeVanilla:       true,
			IncludeMods:          true,
			IncludeResourcepacks: true,
		})
		if err != nil {
			return err
		}

		nodeID := ""
		if len(args) == 2 {
			nodeID = args[1]
		}

		nodes, err := app.Gateway.ListTreeChildren(scanID, nodeID)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(nodes)
			return nil
		}

		for _, node := range nodes {
			marker := ""
			if node.HasChildren {
				marker = "/"
			}
			fmt.Printf("%s%s\t%s\n", node.Name, marker, node.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
