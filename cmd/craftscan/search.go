package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/craftscan/craftscan/internal/gateway"
)

var (
	searchFolder string
	searchImages bool
	searchAudio  bool
	searchOther  bool
	searchLimit  int
	searchOffset int
)

var searchCmd = &cobra.Command{
	Use:   "search <instance> [query...]",
	Short: "Search the asset index of an instance",
	Long: `Search scans the instance (served from the snapshot cache when
possible) and matches every query token against asset keys.`,
	Args: cobra.MinimumNArgs(1),
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

		// No kind flag means no kind restriction.
		if !searchImages && !searchAudio && !searchOther {
			searchImages, searchAudio, searchOther = true, true, true
		}

		resp, err := app.Gateway.SearchAssets(gateway.SearchRequest{
			ScanID:        scanID,
			Query:         strings.Join(args[1:], " "),
			FolderNodeID:  searchFolder,
			IncludeImages: searchImages,
			IncludeAudio:  searchAudio,
			IncludeOther:  searchOther,
			Offset:        searchOffset,
			Limit:         searchLimit,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(resp)
			return nil
		}

		for _, rec := range resp.Assets {
			fmt.Printf("%s  %s\n", rec.AssetID, rec.Key)
		}
		printSuccess("%d of %d matching assets", len(resp.Assets), resp.Total)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchFolder, "folder", "", "Restrict matches to a tree folder node id")
	searchCmd.Flags().BoolVar(&searchImages, "images", false, "Include image assets")
	searchCmd.Flags().BoolVar(&searchAudio, "audio", false, "Include audio assets")
	searchCmd.Flags().BoolVar(&searchOther, "other", false, "Include other assets")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum results to return")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Results to skip")
	rootCmd.AddCommand(searchCmd)
}
