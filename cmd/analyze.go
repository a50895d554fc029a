package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sells-group/forks-fortunes/internal/model"
	"github.com/sells-group/forks-fortunes/internal/pipeline"
	"github.com/sells-group/forks-fortunes/internal/resilience"
	"github.com/sells-group/forks-fortunes/internal/search"
	"github.com/sells-group/forks-fortunes/pkg/geocode"
	"github.com/sells-group/forks-fortunes/pkg/places"
)

var (
	analyzeTier   string
	analyzeSmoke  bool
	analyzeCities []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis for the configured cities",
	Long:  "Sweeps each selected city's grid through the Places catalog, scores and aggregates the results, and checkpoints each completed city. Interrupted runs resume from the checkpoint store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		cities, err := selectCities(registry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
		limiter := rate.NewLimiter(rate.Limit(cfg.Places.RateLimit), 1)

		retry := resilience.DefaultRetryConfig()
		if cfg.Places.MaxRetries > 0 {
			retry.MaxAttempts = cfg.Places.MaxRetries
		}
		retry.OnRetry = resilience.RetryLogger("places", "nearby_search")

		engine := search.New(placesClient, st, limiter, search.Config{
			MaxPages:       cfg.Places.MaxPages,
			PageTokenDelay: time.Duration(cfg.Places.PageTokenDelaySecs) * time.Second,
			Concurrency:    cfg.Places.Concurrency,
			Retry:          retry,
		})

		geocoder := geocode.NewClient(geocode.WithGoogleAPIKey(cfg.Geocode.GoogleKey))

		inputs, err := loadInputs(ctx, registry)
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, registry, st, engine, geocoder, inputs)
		report, err := p.Run(ctx, cities)

		if report != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
		}
		if err != nil {
			return eris.Wrap(err, "analyze run")
		}
		return nil
	},
}

// selectCities resolves the --city/--smoke/--tier flags against the registry;
// no flags means every registered city.
func selectCities(registry *model.CityRegistry) ([]string, error) {
	switch {
	case len(analyzeCities) > 0:
		for _, city := range analyzeCities {
			if !registry.Contains(city) {
				return nil, eris.Errorf("unknown city %q (see `forks cities list`)", city)
			}
		}
		return analyzeCities, nil
	case analyzeSmoke:
		if len(registry.Smoke) == 0 {
			return nil, eris.New("cities file defines no smoke subset")
		}
		return registry.Smoke, nil
	case analyzeTier != "":
		cities, ok := registry.TierCities(analyzeTier)
		if !ok {
			return nil, eris.Errorf("unknown tier %q (see `forks cities list`)", analyzeTier)
		}
		return cities, nil
	default:
		return registry.AllCities(), nil
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTier, "tier", "", "analyze only the named wealth tier")
	analyzeCmd.Flags().BoolVar(&analyzeSmoke, "smoke", false, "analyze the small smoke-test subset")
	analyzeCmd.Flags().StringArrayVar(&analyzeCities, "city", nil, "analyze an explicit city (repeatable)")
	rootCmd.AddCommand(analyzeCmd)
}
