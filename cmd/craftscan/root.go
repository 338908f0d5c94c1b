package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/craftscan/craftscan/internal/client"
	"github.com/craftscan/craftscan/internal/config"
	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/gateway"
	"github.com/craftscan/craftscan/internal/models"
)

var (
	cfgFile    string
	prismRoot  string
	jsonOutput bool
	verbose    bool

	cfg    *config.Config
	logger *events.Logger
	app    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "craftscan",
	Short: "Index and export Minecraft assets from a launcher instance",
	Long: `Craftscan scans the vanilla assets, mods, and resource packs of a
Prism-style launcher instance into a searchable index, and exports
selected assets to a directory or the clipboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewLoader(cfgFile).Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if prismRoot != "" {
			cfg.Launcher.Root = prismRoot
		}

		logger, err = events.NewLogger(&cfg.Log)
		if err != nil {
			return err
		}

		app, err = client.New(cfg, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app != nil {
			return app.Close()
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file path (default: search standard locations)")
	rootCmd.PersistentFlags().StringVar(&prismRoot, "root", "",
		"Launcher root directory (default: auto-detect)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
}

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

func printSuccess(format string, args ...interface{}) {
	_, _ = successColor.Fprintf(os.Stdout, format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	_, _ = warnColor.Fprintf(os.Stderr, format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	_, _ = errorColor.Fprintf(os.Stderr, format+"\n", args...)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError("encode output: %v", err)
		return
	}
	fmt.Println(string(data))
}

// scanAndWait runs a scan to completion and returns its id. Query
// commands call it before touching the index.
func scanAndWait(cmd *cobra.Command, req gateway.StartScanRequest) (string, error) {
	req.PrismRoot = cfg.Launcher.Root

	resp, err := app.Gateway.StartScan(cmd.Context(), req)
	if err != nil {
		return "", err
	}

	if resp.CacheHit && !jsonOutput {
		_, _ = dimColor.Fprintln(os.Stderr, "cache hit, refreshing in background")
	}

	status, err := pollScan(resp.ScanID)
	if err != nil {
		return "", err
	}

	switch status.Lifecycle {
	case models.LifecycleCancelled:
		return "", models.NewError(models.ErrKindState, "scan cancelled")
	case models.LifecycleError:
		return "", models.NewError(models.ErrKindState, "scan failed: "+status.Error)
	}
	return resp.ScanID, nil
}
