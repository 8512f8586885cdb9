package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/blockassign/internal/tiger"
)

var fetchBlocksCmd = &cobra.Command{
	Use:   "fetch-blocks",
	Short: "Download a TIGER/Line block archive for one state",
	Long: `Downloads the Census TIGER/Line TABBLOCK20 archive for a state and extracts it.
The .zip is kept in --dest and can be passed to map as the blocks file.`,
	Example: "  blockassign fetch-blocks --state AZ --year 2020 --dest ./data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		state, _ := cmd.Flags().GetString("state")
		year, _ := cmd.Flags().GetInt("year")
		dest, _ := cmd.Flags().GetString("dest")
		productName, _ := cmd.Flags().GetString("product")

		// Use config values as defaults.
		if year == 0 {
			year = cfg.Tiger.Year
		}
		if dest == "" {
			dest = cfg.Tiger.TempDir
		}
		cfg.Tiger.Year, cfg.Tiger.TempDir = year, dest
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		product, ok := tiger.ProductByName(productName)
		if !ok {
			return eris.Errorf("fetch-blocks: unknown product %q", productName)
		}

		zap.L().With(zap.String("command", "fetch-blocks")).Info("fetching blocks",
			zap.String("state", state),
			zap.Int("year", year),
			zap.String("product", product.Name),
			zap.String("dest", dest),
		)

		shpPath, err := tiger.DownloadBlocks(ctx, product, year, state, dest)
		if err != nil {
			return eris.Wrap(err, "fetch-blocks")
		}

		fmt.Println(shpPath)
		return nil
	},
}

func init() {
	fetchBlocksCmd.Flags().String("state", "", "state abbreviation or FIPS code (required)")
	fetchBlocksCmd.Flags().Int("year", 0, "TIGER/Line vintage (default: from config or 2020)")
	fetchBlocksCmd.Flags().String("dest", "", "download directory (default: from config)")
	fetchBlocksCmd.Flags().String("product", tiger.Blocks.Name, "TIGER/Line product: TABBLOCK20, BG, TRACT")
	_ = fetchBlocksCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(fetchBlocksCmd)
}
