package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	HTS             HTSConfig             `mapstructure:"hts"`
	FederalRegister FederalRegisterConfig `mapstructure:"federal_register"`
	Cache           CacheConfig           `mapstructure:"cache"`
	Duty            DutyConfig            `mapstructure:"duty"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// HTSConfig holds USITC HTS export API configuration
type HTSConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	Referer           string        `mapstructure:"referer"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// FederalRegisterConfig holds Federal Register search API configuration
type FederalRegisterConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SearchTerm string        `mapstructure:"search_term"`
}

// CacheConfig holds rate cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// DutyConfig holds duty calculation configuration
type DutyConfig struct {
	SurchargeRate float64 `mapstructure:"surcharge_rate"`
	ErrorMode     string  `mapstructure:"error_mode"` // "propagate" or "fallback"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dutyrobot/")

	// DUTYROBOT_HTS_BASE_URL -> hts.base_url
	v.SetEnvPrefix("DUTYROBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// HTS defaults
	v.SetDefault("hts.base_url", "https://hts.usitc.gov/api")
	v.SetDefault("hts.timeout", "10s")
	v.SetDefault("hts.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36 DutyRobot/1.1")
	v.SetDefault("hts.referer", "https://hts.usitc.gov/")
	v.SetDefault("hts.requests_per_second", 2)
	v.SetDefault("hts.burst", 5)

	// Federal Register defaults
	v.SetDefault("federal_register.base_url", "https://www.federalregister.gov/api/v1")
	v.SetDefault("federal_register.timeout", "5s")
	v.SetDefault("federal_register.search_term", "Section 301")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")

	// Duty defaults
	v.SetDefault("duty.surcharge_rate", 25)
	v.SetDefault("duty.error_mode", "propagate")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.HTS.BaseURL == "" {
		return fmt.Errorf("HTS base URL is required (set DUTYROBOT_HTS_BASE_URL)")
	}
	if config.FederalRegister.BaseURL == "" {
		return fmt.Errorf("Federal Register base URL is required (set DUTYROBOT_FEDERAL_REGISTER_BASE_URL)")
	}

	if config.HTS.Timeout <= 0 {
		return fmt.Errorf("hts.timeout must be positive, got: %s", config.HTS.Timeout)
	}
	if config.FederalRegister.Timeout <= 0 {
		return fmt.Errorf("federal_register.timeout must be positive, got: %s", config.FederalRegister.Timeout)
	}
	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got: %s", config.Cache.TTL)
	}

	if config.HTS.RequestsPerSecond <= 0 || config.HTS.Burst <= 0 {
		return fmt.Errorf("hts.requests_per_second and hts.burst must be positive")
	}

	if config.Duty.SurchargeRate < 0 {
		return fmt.Errorf("duty.surcharge_rate must not be negative, got: %v", config.Duty.SurchargeRate)
	}

	if config.Duty.ErrorMode != "propagate" && config.Duty.ErrorMode != "fallback" {
		return fmt.Errorf("duty.error_mode must be 'propagate' or 'fallback', got: %s", config.Duty.ErrorMode)
	}

	return nil
}
