package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpointed cities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		checkpoints, err := st.ListCompletions(ctx)
		if err != nil {
			return eris.Wrap(err, "list completions")
		}
		if len(checkpoints) == 0 {
			fmt.Println("No completed cities.")
			return nil
		}

		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		total := 0
		fmt.Println("=== Completed Cities ===")
		for _, cp := range checkpoints {
			tier := registry.TierOf(cp.City)
			if tier == "" {
				tier = "-"
			}
			fmt.Printf("%-20s %-10s %5d establishments   %s\n",
				cp.City, tier, cp.Summary.Count, cp.CompletedAt.Format("2006-01-02 15:04"))
			total += cp.Summary.Count
		}
		fmt.Println()
		fmt.Printf("%d cities, %d establishments\n", len(checkpoints), total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
