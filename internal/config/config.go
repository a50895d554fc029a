package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is loaded once at
// startup and passed into the pipeline; nothing mutates it after Load
// returns.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Places   PlacesConfig   `yaml:"places" mapstructure:"places"`
	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Zillow   ZillowConfig   `yaml:"zillow" mapstructure:"zillow"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the checkpoint store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlacesConfig holds Google Places API settings.
type PlacesConfig struct {
	Key                string  `yaml:"key" mapstructure:"key"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	SearchRadiusM      int     `yaml:"search_radius_m" mapstructure:"search_radius_m"`
	MaxPages           int     `yaml:"max_pages" mapstructure:"max_pages"`
	PageTokenDelaySecs int     `yaml:"page_token_delay_secs" mapstructure:"page_token_delay_secs"`
	RateLimit          float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxRetries         int     `yaml:"max_retries" mapstructure:"max_retries"`
	Concurrency        int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// CensusConfig holds Census ACS API settings.
type CensusConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	CacheFile string  `yaml:"cache_file" mapstructure:"cache_file"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeocodeConfig configures city-center resolution.
type GeocodeConfig struct {
	GoogleKey string `yaml:"google_key" mapstructure:"google_key"`
	// PlacesShapefile optionally points at a Census TIGER PLACE shapefile;
	// when set, city centers come from polygon centroids instead of the
	// geocoding APIs.
	PlacesShapefile string `yaml:"places_shapefile" mapstructure:"places_shapefile"`
}

// ZillowConfig configures the property-value loader.
type ZillowConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// AnalysisConfig configures the per-city grid search.
type AnalysisConfig struct {
	CitiesFile     string  `yaml:"cities_file" mapstructure:"cities_file"`
	SearchRadiusKM float64 `yaml:"search_radius_km" mapstructure:"search_radius_km"`
	StepKM         float64 `yaml:"step_km" mapstructure:"step_km"`
}

// ReportConfig configures report output locations.
type ReportConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	MapsDir string `yaml:"maps_dir" mapstructure:"maps_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FORKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "forks.db")
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("places.search_radius_m", 1000)
	v.SetDefault("places.max_pages", 10)
	v.SetDefault("places.page_token_delay_secs", 2)
	v.SetDefault("places.rate_limit", 5)
	v.SetDefault("places.max_retries", 4)
	v.SetDefault("places.concurrency", 2)
	v.SetDefault("census.base_url", "https://api.census.gov/data/2021/acs/acs5")
	v.SetDefault("census.cache_file", "data/census_zip_data.csv")
	v.SetDefault("census.rate_limit", 2)
	v.SetDefault("zillow.file", "data/zhvi_by_zip.csv")
	v.SetDefault("analysis.cities_file", "cities.yaml")
	v.SetDefault("analysis.search_radius_km", 10)
	v.SetDefault("analysis.step_km", 0.75)
	v.SetDefault("report.dir", "results")
	v.SetDefault("report.maps_dir", "maps")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the cross-field rules the grid search depends on. Commands
// that run the pipeline call it; read-only commands skip it.
func (c *Config) Validate() error {
	if c.Analysis.SearchRadiusKM <= 0 {
		return eris.New("config: analysis.search_radius_km must be > 0")
	}
	if c.Analysis.StepKM <= 0 {
		return eris.New("config: analysis.step_km must be > 0")
	}
	// Adjacent search circles must overlap or the grid has coverage gaps.
	if c.Analysis.StepKM*1000 > float64(c.Places.SearchRadiusM) {
		return eris.Errorf("config: analysis.step_km (%.2f km) exceeds places.search_radius_m (%d m)",
			c.Analysis.StepKM, c.Places.SearchRadiusM)
	}
	if c.Places.Key == "" {
		return eris.New("config: places.key is required")
	}
	if c.Places.MaxPages <= 0 {
		return eris.New("config: places.max_pages must be > 0")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
