// Package config loads and validates indexer configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers accepted by storage.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Storage   StorageConfig   `mapstructure:"storage"`
	TFIDF     TFIDFConfig     `mapstructure:"tfidf"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Report    ReportConfig    `mapstructure:"report"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlConfig governs the URL source and the admission pool.
type CrawlConfig struct {
	URLsFile    string `mapstructure:"urls_file"`
	Concurrency int    `mapstructure:"concurrency"`
}

// FetchConfig configures the HTTP transport.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// ScoringConfig tunes the frequency scorer.
type ScoringConfig struct {
	TopK             int `mapstructure:"top_k"`
	TitleBoost       int `mapstructure:"title_boost"`
	DescriptionBoost int `mapstructure:"description_boost"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	MaxConns  int32  `mapstructure:"max_conns"`
	SQLiteDir string `mapstructure:"sqlite_dir"`
}

// TFIDFConfig tunes the aggregator write-back.
type TFIDFConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// PublisherConfig holds the Pub/Sub destination for indexed-document notices.
type PublisherConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ReportConfig sets where run summaries are written.
type ReportConfig struct {
	Dir    string `mapstructure:"dir"`
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// ServerConfig controls the optional ops HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBINDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key is registered here so AutomaticEnv can resolve it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("crawl.urls_file", "urls.txt")
	v.SetDefault("crawl.concurrency", 10)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.max_body_bytes", 10*1024*1024)
	v.SetDefault("scoring.top_k", 1000)
	v.SetDefault("scoring.title_boost", 50)
	v.SetDefault("scoring.description_boost", 10)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_conns", 0)
	v.SetDefault("storage.sqlite_dir", "data")
	v.SetDefault("tfidf.batch_size", 1000)
	v.SetDefault("publisher.project_id", "")
	v.SetDefault("publisher.topic", "")
	v.SetDefault("report.dir", "")
	v.SetDefault("report.bucket", "")
	v.SetDefault("report.prefix", "runs")
	v.SetDefault("server.addr", "")
}

// MinPostgresConns is the smallest pool that lets every in-flight URL hold a
// document and a word transaction at once, with one connection to spare for
// existence checks and pings.
func (c Config) MinPostgresConns() int32 {
	return int32(2*c.Crawl.Concurrency + 1)
}

// PostgresMaxConns returns storage.max_conns, or MinPostgresConns when unset.
func (c Config) PostgresMaxConns() int32 {
	if c.Storage.MaxConns > 0 {
		return c.Storage.MaxConns
	}
	return c.MinPostgresConns()
}

// DefaultUserAgent is the desktop-browser string sent on every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0")
	}
	if c.Scoring.TopK <= 0 {
		return fmt.Errorf("scoring.top_k must be > 0")
	}
	if c.Scoring.TitleBoost < 0 || c.Scoring.DescriptionBoost < 0 {
		return fmt.Errorf("scoring boosts must be >= 0")
	}
	if c.TFIDF.BatchSize <= 0 {
		return fmt.Errorf("tfidf.batch_size must be > 0")
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for the postgres driver")
		}
		if c.Storage.MaxConns < 0 {
			return fmt.Errorf("storage.max_conns must be >= 0")
		}
		if floor := c.MinPostgresConns(); c.Storage.MaxConns > 0 && c.Storage.MaxConns < floor {
			return fmt.Errorf("storage.max_conns must be >= %d (2*crawl.concurrency+1), got %d",
				floor, c.Storage.MaxConns)
		}
	case DriverSQLite:
		if c.Storage.SQLiteDir == "" {
			return fmt.Errorf("storage.sqlite_dir must be set for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Publisher.Topic != "" && c.Publisher.ProjectID == "" {
		return fmt.Errorf("publisher.project_id must be set when publisher.topic is set")
	}
	if c.Report.Dir != "" && c.Report.Bucket != "" {
		return fmt.Errorf("report.dir and report.bucket are mutually exclusive")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
