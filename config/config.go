// Package config loads phonespecs settings from an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Scrape     ScrapeConfig     `yaml:"scrape"`
	Datasets   DatasetPaths     `yaml:"datasets"`
	Processing ProcessingConfig `yaml:"processing"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ScrapeConfig controls the catalog scraper.
type ScrapeConfig struct {
	BaseURL        string        `yaml:"base_url" env:"SCRAPE_BASE_URL" env-default:"https://www.epey.com"`
	ListPath       string        `yaml:"list_path" env:"SCRAPE_LIST_PATH" env-default:"akilli-telefonlar"`
	SortKey        string        `yaml:"sort_key" env:"SCRAPE_SORT_KEY" env-default:"tiklama:DESC"`
	Limit          int           `yaml:"limit" env:"SCRAPE_LIMIT" env-default:"200"`
	Timeout        time.Duration `yaml:"timeout" env:"SCRAPE_TIMEOUT" env-default:"30s"`
	PageDelayMin   time.Duration `yaml:"page_delay_min" env:"SCRAPE_PAGE_DELAY_MIN" env-default:"1.2s"`
	PageDelayMax   time.Duration `yaml:"page_delay_max" env:"SCRAPE_PAGE_DELAY_MAX" env-default:"2s"`
	DetailDelayMin time.Duration `yaml:"detail_delay_min" env:"SCRAPE_DETAIL_DELAY_MIN" env-default:"1.5s"`
	DetailDelayMax time.Duration `yaml:"detail_delay_max" env:"SCRAPE_DETAIL_DELAY_MAX" env-default:"3s"`
	UserAgent      string        `yaml:"user_agent" env:"SCRAPE_USER_AGENT"`
	RenderJS       bool          `yaml:"render_js" env:"SCRAPE_RENDER_JS" env-default:"false"`
	PageLoadWait   time.Duration `yaml:"page_load_wait" env:"SCRAPE_PAGE_LOAD_WAIT" env-default:"2s"`
	CacheDir       string        `yaml:"cache_dir" env:"SCRAPE_CACHE_DIR"`
}

// ListBase is the catalog root that sort tokens and page numbers hang off.
func (c ScrapeConfig) ListBase() string {
	return c.BaseURL + "/" + c.ListPath
}

// DatasetPaths holds the location of every CSV file the pipeline touches.
type DatasetPaths struct {
	Raw      string `yaml:"raw" env:"DATASET_RAW" env-default:"outputs/datasets/raw/epey_popular_phones_full.csv"`
	Basic    string `yaml:"basic" env:"DATASET_BASIC" env-default:"outputs/datasets/processed/products_basic_info.csv"`
	Common   string `yaml:"common" env:"DATASET_COMMON" env-default:"outputs/datasets/processed/products_common_features.csv"`
	ML       string `yaml:"ml" env:"DATASET_ML" env-default:"outputs/datasets/processed/products_ml_features.csv"`
	Filtered string `yaml:"filtered" env:"DATASET_FILTERED" env-default:"outputs/datasets/processed/filtered_dataset.csv"`
}

// ProcessingConfig holds the column filter knobs.
type ProcessingConfig struct {
	CoverageThreshold  float64 `yaml:"coverage_threshold" env:"COVERAGE_THRESHOLD" env-default:"50"`
	DominanceThreshold float64 `yaml:"dominance_threshold" env:"DOMINANCE_THRESHOLD" env-default:"95"`
	Join               string  `yaml:"join" env:"JOIN_STRATEGY" env-default:"id"`
	RawBOM             bool    `yaml:"raw_bom" env:"RAW_BOM" env-default:"true"`
}

// ServerConfig configures the feature query endpoint.
type ServerConfig struct {
	Addr             string        `yaml:"addr" env:"SERVER_ADDR" env-default:":5000"`
	FeaturesPath     string        `yaml:"features_path" env:"SERVER_FEATURES_PATH"`
	ExcludedFeatures []string      `yaml:"excluded_features" env:"SERVER_EXCLUDED_FEATURES" env-default:"urun_fiyat,urun_puan" env-separator:","`
	AllowedOrigins   []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	ReadTimeout      time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Color bool   `yaml:"color" env:"LOG_COLOR" env-default:"true"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"phonespecs"`
}

// Load reads .env (if present), then path (if non-empty and present), then
// the environment. A missing config file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error loading .env file", "err", err)
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("error reading config %q: %w", path, err)
			}
			return cfg.finish()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config %q: %w", path, err)
		}
		slog.Debug("config file not found, using environment", "path", path)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error reading config from environment: %w", err)
	}
	return cfg.finish()
}

func (c *Config) finish() (*Config, error) {
	if c.Server.FeaturesPath == "" {
		c.Server.FeaturesPath = c.Datasets.ML
	}
	if c.Scrape.PageDelayMax < c.Scrape.PageDelayMin {
		return nil, fmt.Errorf("page delay max %v is below min %v", c.Scrape.PageDelayMax, c.Scrape.PageDelayMin)
	}
	if c.Scrape.DetailDelayMax < c.Scrape.DetailDelayMin {
		return nil, fmt.Errorf("detail delay max %v is below min %v", c.Scrape.DetailDelayMax, c.Scrape.DetailDelayMin)
	}
	if c.Processing.CoverageThreshold < 0 || c.Processing.CoverageThreshold > 100 {
		return nil, fmt.Errorf("coverage threshold %v out of range [0, 100]", c.Processing.CoverageThreshold)
	}
	if c.Processing.DominanceThreshold < 0 || c.Processing.DominanceThreshold > 100 {
		return nil, fmt.Errorf("dominance threshold %v out of range [0, 100]", c.Processing.DominanceThreshold)
	}
	switch c.Processing.Join {
	case "id", "triple":
	default:
		return nil, fmt.Errorf("unknown join strategy %q, want \"id\" or \"triple\"", c.Processing.Join)
	}
	return c, nil
}

func (c Config) String() string {
	bs, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Sprintf("error while marshaling config: %v", err)
	}
	return string(bs)
}
