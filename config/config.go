// Package config loads runtime settings from defaults, an optional config
// file, and DRAWCHECK_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
	// RequestTimeout bounds a whole validation request.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// PageTimeout bounds extraction work on a single page.
	PageTimeout time.Duration `mapstructure:"page_timeout"`
	// MinCharDensity is the text-layer character count below which a page is
	// routed through OCR.
	MinCharDensity int `mapstructure:"min_char_density"`
	// OCRLanguages are tesseract language hints.
	OCRLanguages []string `mapstructure:"ocr_languages"`
	// RasterDPI is the resolution for scanned-page rasters.
	RasterDPI float64 `mapstructure:"raster_dpi"`
	// AnnotateDPI is the resolution for annotated output pages.
	AnnotateDPI float64 `mapstructure:"annotate_dpi"`
	// WeightTolerancePct overrides the default weight verification band when
	// positive.
	WeightTolerancePct float64 `mapstructure:"weight_tolerance_pct"`
	// AnnotationEnabled gates the annotation backend.
	AnnotationEnabled bool `mapstructure:"annotation_enabled"`
	// Sequential disables concurrent validator execution.
	Sequential bool `mapstructure:"sequential"`
}

const envPrefix = "DRAWCHECK"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout", 2*time.Minute)
	v.SetDefault("page_timeout", 20*time.Second)
	v.SetDefault("min_char_density", 64)
	v.SetDefault("ocr_languages", []string{"eng"})
	v.SetDefault("raster_dpi", 300.0)
	v.SetDefault("annotate_dpi", 150.0)
	v.SetDefault("weight_tolerance_pct", 0.0)
	v.SetDefault("annotation_enabled", true)
	v.SetDefault("sequential", false)
}

// Load resolves the configuration. file may be empty; when set it must name a
// readable YAML config file.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page_timeout must be positive, got %s", c.PageTimeout)
	}
	if c.PageTimeout > c.RequestTimeout {
		return fmt.Errorf("page_timeout %s exceeds request_timeout %s", c.PageTimeout, c.RequestTimeout)
	}
	if c.RasterDPI < 72 || c.RasterDPI > 1200 {
		return fmt.Errorf("raster_dpi %.0f outside 72-1200", c.RasterDPI)
	}
	return nil
}
