package main

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/craftscan/craftscan/internal/gateway"
	"github.com/craftscan/craftscan/internal/models"
)

var (
	scanNoVanilla       bool
	scanNoMods          bool
	scanNoResourcepacks bool
	scanForce           bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <instance>",
	Short: "Scan an instance into a searchable asset index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := gateway.StartScanRequest{
			InstanceFolder:       args[0],
			IncludeVanilla:       !scanNoVanilla,
			IncludeMods:          !scanNoMods,
			IncludeResourcepacks: !scanNoResourcepacks,
			ForceRescan:          scanForce,
		}
		req.PrismRoot = cfg.Launcher.Root

		resp, err := app.Gateway.StartScan(cmd.Context(), req)
		if err != nil {
			return err
		}

		// Ctrl-C cancels the scan instead of killing the process.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		defer signal.Stop(sigCh)
		go func() {
			if _, ok := <-sigCh; ok {
				printWarning("\nCancelling scan...")
				_ = app.Gateway.CancelScan(resp.ScanID)
			}
		}()

		status, err := pollScan(resp.ScanID)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(status)
			return nil
		}

		switch status.Lifecycle {
		case models.LifecycleCompleted:
			printSuccess("Indexed %d assets from %d containers (scan %s)",
				status.AssetCount, status.ScannedContainers, status.ScanID)
		case models.LifecycleCancelled:
			printWarning("Scan cancelled after %d of %d containers",
				status.ScannedContainers, status.TotalContainers)
		case models.LifecycleError:
			return models.NewError(models.ErrKindState, "scan failed: "+status.Error)
		}
		return nil
	},
}

// pollScan waits for a scan to leave the running state, printing progress
// to stderr unless JSON output was requested.
func pollScan(scanID string) (models.ScanStatus, error) {
	for {
		status, err := app.Gateway.GetScanStatus(scanID)
		if err != nil {
			return models.ScanStatus{}, err
		}
		if status.Lifecycle != models.LifecycleScanning {
			if !jsonOutput {
				_, _ = dimColor.Fprintln(os.Stderr)
			}
			return status, nil
		}
		if !jsonOutput {
			_, _ = dimColor.Fprintf(os.Stderr, "\r%d/%d containers, %d assets",
				status.ScannedContainers, status.TotalContainers, status.AssetCount)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func init() {
	scanCmd.Flags().BoolVar(&scanNoVanilla, "no-vanilla", false, "Skip vanilla assets")
	scanCmd.Flags().BoolVar(&scanNoMods, "no-mods", false, "Skip mod jars")
	scanCmd.Flags().BoolVar(&scanNoResourcepacks, "no-resourcepacks", false, "Skip resource packs")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "Ignore the snapshot cache and rescan")
	rootCmd.AddCommand(scanCmd)
}
