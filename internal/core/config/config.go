package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding an optional YAML file that
// is read before the environment.
const FileEnv = "AIRFOIL_CONFIG"

type InvalidationCfg struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
	Brokers string `yaml:"brokers"`
	GroupID string `yaml:"group_id"`
}

type EventsCfg struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
	Brokers string `yaml:"brokers"`
}

type ResampleCfg struct {
	Points int     `yaml:"points"`
	Scheme string  `yaml:"scheme"`
	Ratio  float64 `yaml:"ratio"`
	// MaxPoints caps the point count a caller may ask for.
	MaxPoints int `yaml:"max_points"`
	// CacheTTL bounds how long a resampled profile of a hot airfoil stays in Redis.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type MetricsCfg struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

type Config struct {
	Addr           string          `yaml:"addr"`
	LogLevel       string          `yaml:"log_level"`
	LogConsole     bool            `yaml:"log_console"`
	LogSampleN     int             `yaml:"log_sample_n"`
	CatalogURL     string          `yaml:"catalog_url"`
	RedisAddr      string          `yaml:"redis_addr"`
	RedisEnabled   bool            `yaml:"redis_enabled"`
	StoreTTL       time.Duration   `yaml:"store_ttl"`
	StoreOpTimeout time.Duration   `yaml:"store_op_timeout"`
	LRUSize        int             `yaml:"lru_size"`
	IndexTTL       time.Duration   `yaml:"index_ttl"`
	Resample       ResampleCfg     `yaml:"resample"`
	HotThreshold   float64         `yaml:"hot_threshold"`
	HotHalfLife    time.Duration   `yaml:"hot_half_life"`
	CloneWorkers   int             `yaml:"clone_workers"`
	CloneRate      float64         `yaml:"clone_rate"`
	Events         EventsCfg       `yaml:"events"`
	Invalidation   InvalidationCfg `yaml:"invalidation"`
	Metrics        MetricsCfg      `yaml:"metrics"`
}

func Defaults() Config {
	return Config{
		Addr:           ":8090",
		LogLevel:       "info",
		CatalogURL:     "https://m-selig.ae.illinois.edu/ads",
		RedisAddr:      "localhost:6379",
		StoreTTL:       0,
		StoreOpTimeout: 250 * time.Millisecond,
		LRUSize:        512,
		IndexTTL:       time.Hour,
		Resample: ResampleCfg{
			Points:    100,
			Scheme:    "chord",
			Ratio:     0.9,
			MaxPoints: 2000,
			CacheTTL:  10 * time.Minute,
		},
		HotThreshold: 5,
		HotHalfLife:  time.Minute,
		CloneWorkers: 8,
		// requests per second against the public catalog
		CloneRate: 10,
		Events: EventsCfg{
			Topic:   "airfoil-catalog",
			Brokers: "localhost:9092",
		},
		Invalidation: InvalidationCfg{
			Topic:   "airfoil-catalog",
			Brokers: "localhost:9092",
			GroupID: "airfoil-invalidator",
		},
		Metrics: MetricsCfg{
			Addr: ":9090",
			Path: "/metrics",
		},
	}
}

// FromEnv returns the defaults overridden by the environment.
func FromEnv() Config {
	return overlayEnv(Defaults())
}

// Load reads the YAML file named by AIRFOIL_CONFIG, if any, on top of the
// defaults and then applies the environment, which always wins.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if cfg, err = parseFile(b, cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	cfg = overlayEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseFile(b []byte, base Config) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	// an empty file leaves the defaults untouched
	if err := dec.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return base, nil
}

func overlayEnv(c Config) Config {
	c.Addr = getenv("ADDR", c.Addr)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.LogConsole = getbool("LOG_CONSOLE", c.LogConsole)
	c.LogSampleN = getint("LOG_SAMPLE_N", c.LogSampleN)
	c.CatalogURL = strings.TrimRight(getenv("CATALOG_URL", c.CatalogURL), "/")
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisEnabled = getbool("REDIS_ENABLED", c.RedisEnabled)
	c.StoreTTL = getduration("STORE_TTL", c.StoreTTL)
	c.StoreOpTimeout = getduration("STORE_OP_TIMEOUT", c.StoreOpTimeout)
	c.LRUSize = getint("LRU_SIZE", c.LRUSize)
	c.IndexTTL = getduration("INDEX_TTL", c.IndexTTL)
	c.Resample.Points = getint("RESAMPLE_POINTS", c.Resample.Points)
	c.Resample.Scheme = strings.ToLower(getenv("RESAMPLE_SCHEME", c.Resample.Scheme))
	c.Resample.Ratio = getfloat("RESAMPLE_RATIO", c.Resample.Ratio)
	c.Resample.MaxPoints = getint("RESAMPLE_MAX_POINTS", c.Resample.MaxPoints)
	c.Resample.CacheTTL = getduration("RESAMPLE_CACHE_TTL", c.Resample.CacheTTL)
	c.HotThreshold = getfloat("HOT_THRESHOLD", c.HotThreshold)
	c.HotHalfLife = getduration("HOT_HALF_LIFE", c.HotHalfLife)
	c.CloneWorkers = getint("CLONE_WORKERS", c.CloneWorkers)
	c.CloneRate = getfloat("CLONE_RATE", c.CloneRate)

	c.Events.Enabled = getbool("EVENTS_ENABLED", c.Events.Enabled)
	c.Events.Topic = getenv("KAFKA_TOPIC", c.Events.Topic)
	c.Events.Brokers = getenv("KAFKA_BROKERS", c.Events.Brokers)

	c.Invalidation.Enabled = getbool("INVALIDATION_ENABLED", c.Invalidation.Enabled)
	c.Invalidation.Topic = getenv("KAFKA_TOPIC", c.Invalidation.Topic)
	c.Invalidation.Brokers = getenv("KAFKA_BROKERS", c.Invalidation.Brokers)
	c.Invalidation.GroupID = getenv("KAFKA_GROUP_ID", c.Invalidation.GroupID)

	c.Metrics.Enabled = getbool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Addr = getenv("METRICS_ADDR", c.Metrics.Addr)
	c.Metrics.Path = getenv("METRICS_PATH", c.Metrics.Path)
	return c
}

// Validate rejects settings no component can run with. Spacing parameters
// are checked where they are used.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: ADDR is empty")
	case c.CatalogURL == "":
		return errors.New("config: CATALOG_URL is empty")
	case c.LRUSize <= 0:
		return fmt.Errorf("config: LRU_SIZE must be positive, got %d", c.LRUSize)
	case c.CloneWorkers <= 0:
		return fmt.Errorf("config: CLONE_WORKERS must be positive, got %d", c.CloneWorkers)
	case c.CloneRate < 0:
		return fmt.Errorf("config: CLONE_RATE must not be negative, got %g", c.CloneRate)
	case c.Resample.MaxPoints <= 0:
		return fmt.Errorf("config: RESAMPLE_MAX_POINTS must be positive, got %d", c.Resample.MaxPoints)
	case c.Resample.Points > c.Resample.MaxPoints:
		return fmt.Errorf("config: RESAMPLE_POINTS %d exceeds RESAMPLE_MAX_POINTS %d", c.Resample.Points, c.Resample.MaxPoints)
	case c.HotHalfLife <= 0:
		return fmt.Errorf("config: HOT_HALF_LIFE must be positive, got %s", c.HotHalfLife)
	}
	return nil
}

// BrokerList splits a comma-separated broker string.
func BrokerList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
