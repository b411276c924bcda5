package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkShopCmd = &cobra.Command{
	Use:   "check-shop",
	Short: "Test the shop API connection",
	Long: `Fetch the shop's locations to verify the access token and connectivity,
and show which configured locations the shop knows about.`,
	RunE: checkShop,
}

func init() {
	rootCmd.AddCommand(checkShopCmd)
}

func checkShop(cmd *cobra.Command, args []string) error {
	fmt.Println("🧪 Testing shop connection...")

	cfg, logger, err := bootstrap("check-shop")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(false); err != nil {
		return err
	}
	client, err := newShopClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	locations, err := client.FetchLocations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch locations: %w", err)
	}
	fmt.Printf("   ✅ %s answered with %d location(s)\n", cfg.Shop.APIBaseURL(), len(locations))

	configured := make(map[int64]bool, len(cfg.Locations))
	for _, l := range cfg.Locations {
		configured[l.ID] = true
	}
	for _, l := range locations {
		marker := " "
		if configured[l.ID] {
			marker = "*"
		}
		fmt.Printf("   %s %d  %s\n", marker, l.ID, l.Name)
	}

	fmt.Println("\n🎉 Shop connection is working! (* = configured location)")
	return nil
}
