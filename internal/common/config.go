package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override (FINEXTRACT_OCR_DPI, ...).
const EnvPrefix = "FINEXTRACT"

// Config holds all application configuration
type Config struct {
	Extraction   ExtractionConfig    `mapstructure:"extraction"`
	OCR          OCRConfig           `mapstructure:"ocr"`
	Lattice      LatticeConfig       `mapstructure:"lattice"`
	LayoutModels []LayoutModelConfig `mapstructure:"layout_models"`
	Scoring      ScoringConfig       `mapstructure:"scoring"`
	Store        StoreConfig         `mapstructure:"store"`
	Storage      StorageConfig       `mapstructure:"storage"`
	Watch        WatchConfig         `mapstructure:"watch"`
	Log          LogConfig           `mapstructure:"log"`
}

// ExtractionConfig holds per-call defaults
type ExtractionConfig struct {
	Strategy          string `mapstructure:"strategy"`
	Lang              string `mapstructure:"lang"`
	MaxPages          int    `mapstructure:"max_pages"`
	EngineConcurrency int    `mapstructure:"engine_concurrency"` // engines in flight per call
	DetectPages       int    `mapstructure:"detect_pages"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Pdftoppm      string `mapstructure:"pdftoppm"`
	TessdataDir   string `mapstructure:"tessdata_dir"`
	Lang          string `mapstructure:"lang"`
	DPI           int    `mapstructure:"dpi"`
	MaxPages      int    `mapstructure:"max_pages"`
	MaxImageWidth int    `mapstructure:"max_image_width"`
	WorkDir       string `mapstructure:"work_dir"`
}

type LatticeConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LayoutModelConfig describes one remote layout-aware model endpoint
type LayoutModelConfig struct {
	Name       string        `mapstructure:"name"`
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// ScoringConfig holds the factor weights and targets of the model scorer
type ScoringConfig struct {
	TextLength    float64 `mapstructure:"text_length"`
	Structure     float64 `mapstructure:"structure"`
	Readability   float64 `mapstructure:"readability"`
	Speed         float64 `mapstructure:"speed"`
	Completeness  float64 `mapstructure:"completeness"`
	TargetChars   int     `mapstructure:"target_chars"`
	TargetSeconds float64 `mapstructure:"target_seconds"`
}

// StoreConfig holds score history database configuration
type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // "" (disabled) | sqlite | postgres
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration for s3:// sources
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// WatchConfig holds watch-folder worker configuration
type WatchConfig struct {
	Roots     []string      `mapstructure:"roots"`
	Debounce  time.Duration `mapstructure:"debounce"`
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Persist   bool          `mapstructure:"persist"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// SetDefaults registers every key so env overrides and Unmarshal see them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("extraction.strategy", "auto")
	v.SetDefault("extraction.lang", "eng")
	v.SetDefault("extraction.max_pages", 0)
	v.SetDefault("extraction.engine_concurrency", 1)
	v.SetDefault("extraction.detect_pages", 2)

	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 0)
	v.SetDefault("ocr.max_image_width", 3000)
	v.SetDefault("ocr.work_dir", "")

	v.SetDefault("lattice.enabled", true)
	v.SetDefault("layout_models", []map[string]any{})

	v.SetDefault("scoring.text_length", 0.3)
	v.SetDefault("scoring.structure", 0.2)
	v.SetDefault("scoring.readability", 0.25)
	v.SetDefault("scoring.speed", 0.1)
	v.SetDefault("scoring.completeness", 0.15)
	v.SetDefault("scoring.target_chars", 2000)
	v.SetDefault("scoring.target_seconds", 5.0)

	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 10)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.use_ssl", true)

	v.SetDefault("watch.roots", []string{})
	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("watch.workers", 2)
	v.SetDefault("watch.queue_size", 64)
	v.SetDefault("watch.timeout", 5*time.Minute)
	v.SetDefault("watch.persist", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindEnv wires FINEXTRACT_* overrides plus the legacy variable names.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("ocr.tessdata_dir", EnvPrefix+"_OCR_TESSDATA_DIR", "TESSDATA_PREFIX")
	_ = v.BindEnv("ocr.work_dir", EnvPrefix+"_OCR_WORK_DIR", "ARTIFACT_CACHE_DIR")
	_ = v.BindEnv("store.dsn", EnvPrefix+"_STORE_DSN", "DB_URL")
	_ = v.BindEnv("storage.access_key", EnvPrefix+"_STORAGE_ACCESS_KEY", "MINIO_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", EnvPrefix+"_STORAGE_SECRET_KEY", "MINIO_SECRET_KEY")
}

// LoadConfig decodes v (defaults, config file, env) into a Config.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "decode config", err)
	}
	if cfg.Store.Driver == "" && cfg.Store.DSN != "" {
		cfg.Store.Driver = inferDriver(cfg.Store.DSN)
	}
	return &cfg, nil
}

func inferDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.OCR.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "ocr.dpi must be positive", ErrInvalidInput)
	}
	if c.OCR.MaxPages < 0 || c.Extraction.MaxPages < 0 {
		return NewAppError("CONFIG_ERROR", "max_pages must not be negative", ErrInvalidInput)
	}
	if c.Extraction.EngineConcurrency < 1 {
		return NewAppError("CONFIG_ERROR", "extraction.engine_concurrency must be at least 1", ErrInvalidInput)
	}
	if c.Extraction.DetectPages < 1 {
		return NewAppError("CONFIG_ERROR", "extraction.detect_pages must be at least 1", ErrInvalidInput)
	}

	seen := map[string]bool{}
	for i, m := range c.LayoutModels {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("layout_models[%d].name is required", i), ErrInvalidInput)
		}
		if seen[name] {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("layout model %q is configured twice", name), ErrInvalidInput)
		}
		seen[name] = true
		if m.Endpoint == "" {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("layout model %q has no endpoint", name), ErrInvalidInput)
		}
	}

	s := c.Scoring
	for _, w := range []float64{s.TextLength, s.Structure, s.Readability, s.Speed, s.Completeness} {
		if w < 0 {
			return NewAppError("CONFIG_ERROR", "scoring weights must not be negative", ErrInvalidInput)
		}
	}
	if s.TextLength+s.Structure+s.Readability+s.Speed+s.Completeness == 0 {
		return NewAppError("CONFIG_ERROR", "at least one scoring weight must be positive", ErrInvalidInput)
	}

	switch c.Store.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return NewAppError("CONFIG_ERROR", "store.dsn is required when store.driver is set", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported store.driver %q", c.Store.Driver), ErrInvalidInput)
	}

	if c.Watch.Workers <= 0 || c.Watch.QueueSize <= 0 {
		return NewAppError("CONFIG_ERROR", "watch.workers and watch.queue_size must be positive", ErrInvalidInput)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported log.format %q", c.Log.Format), ErrInvalidInput)
	}
	return nil
}
