package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/forks-fortunes/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the results CSV, XLSX workbook, insights markdown, and city maps",
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

		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		builder := report.New(st, registry, cfg.Report.Dir, cfg.Report.MapsDir)
		art, err := builder.Build(ctx)
		if err != nil {
			return eris.Wrap(err, "build report")
		}

		fmt.Printf("results:  %s\n", art.CSV)
		fmt.Printf("workbook: %s\n", art.XLSX)
		fmt.Printf("insights: %s\n", art.Insights)
		fmt.Printf("maps:     %d files under %s\n", len(art.Maps), cfg.Report.MapsDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
