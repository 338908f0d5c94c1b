package main

import (
	"encoding/base64"
	"os"

	"github.com/spf13/cobra"

	"github.com/craftscan/craftscan/internal/gateway"
)

var previewOut string

var previewCmd = &cobra.Command{
	Use:   "preview <instance> <assetId>",
	Short: "Fetch the bytes of one asset",
	Args:  cobra.ExactArgs(2),
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

		preview, err := app.Gateway.GetAssetPreview(scanID, args[1])
		if err != nil {
			return err
		}

		if previewOut == "" {
			printJSON(preview)
			return nil
		}

		data, err := base64.StdEncoding.DecodeString(preview.Base64)
		if err != nil {
			return err
		}
		if err := os.WriteFile(previewOut, data, 0644); err != nil {
			return err
		}
		printSuccess("Wrote %d bytes (%s) to %s", len(data), preview.Mime, previewOut)
		return nil
	},
}

func init() {
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "Write asset bytes to a file instead of printing JSON")
	rootCmd.AddCommand(previewCmd)
}
