package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Inspect the configured city registry",
}

var citiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wealth tiers and their cities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		for _, tier := range registry.Tiers {
			fmt.Printf("%s (%d cities):\n", tier.Name, len(tier.Cities))
			for _, city := range tier.Cities {
				fmt.Printf("  %s\n", city)
			}
			fmt.Println()
		}

		if len(registry.Smoke) > 0 {
			fmt.Printf("smoke subset: %v\n", registry.Smoke)
		}
		fmt.Printf("study-area ZIPs: %d\n", len(registry.Zips))
		return nil
	},
}

func init() {
	citiesCmd.AddCommand(citiesListCmd)
	rootCmd.AddCommand(citiesCmd)
}
