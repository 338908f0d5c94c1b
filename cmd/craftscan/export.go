package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/craftscan/craftscan/internal/gateway"
	"github.com/craftscan/craftscan/internal/models"
)

var (
	exportDest  string
	exportAudio string
)

var exportCmd = &cobra.Command{
	Use:   "export <instance> <assetId...>",
	Short: "Export assets to a directory or the clipboard",
	Long: `Export writes the selected assets under --dest, mirroring their
virtual tree layout. Without --dest the assets are staged in the temp
directory and their paths are placed on the clipboard.`,
	Args: cobra.MinimumNArgs(2),
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

		// Choosing the id up front makes the operation cancellable
		// while SaveAssets or CopyAssetsToClipboard is blocking.
		req := gateway.ExportRequest{
			ScanID:      scanID,
			OperationID: uuid.NewString(),
			AssetIDs:    args[1:],
			AudioFormat: models.AudioFormat(exportAudio),
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		defer signal.Stop(sigCh)
		go func() {
			if _, ok := <-sigCh; ok {
				printWarning("\nCancelling export...")
				_ = app.Gateway.CancelExport(req.OperationID)
			}
		}()

		var result models.ExportResult
		if exportDest != "" {
			req.DestinationDir = exportDest
			result, err = app.Gateway.SaveAssets(cmd.Context(), req)
		} else {
			result, err = app.Gateway.CopyAssetsToClipboard(cmd.Context(), req)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(result)
			return nil
		}

		for _, failure := range result.Failures {
			printWarning("%s: %s", failure.Key, failure.Error)
		}
		for _, out := range result.OutputFiles {
			fmt.Println(out)
		}
		if result.Failed > 0 {
			printWarning("Exported %d of %d assets (%d failed)",
				result.Succeeded, result.Total, result.Failed)
			return nil
		}
		printSuccess("Exported %d assets", result.Succeeded)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDest, "dest", "d", "", "Destination directory (empty = clipboard)")
	exportCmd.Flags().StringVar(&exportAudio, "audio", string(models.AudioOriginal),
		"Audio output format: original, mp3, or wav")
	rootCmd.AddCommand(exportCmd)
}
