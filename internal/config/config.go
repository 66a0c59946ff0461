package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/sightspotter/internal/geo"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment variable read by MustLoad, e.g. SIGHTS_PORT.
const envPrefix = "SIGHTS"

// Config holds the configuration settings for the sight placement service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port of the host API and monitoring server.
// - Provider: Which geosearch provider to use and how to reach it.
// - BearingMode: The azimuth formula used for placement.
// - FetchTimeout: The timeout of a single geosearch request.
type Config struct {
	Env          string          `yaml:"env"`           // Env is the current environment: local, development, production.
	Port         int             `yaml:"port"`          // Port is the HTTP server port.
	Provider     ProviderConfig  `yaml:"provider"`      // Provider holds the geosearch provider configuration.
	BearingMode  geo.BearingMode `yaml:"bearing.mode"`  // BearingMode selects the literal or corrected bearing.
	FetchTimeout time.Duration   `yaml:"fetch.timeout"` // FetchTimeout bounds a single geosearch request.
}

// ProviderConfig struct holds the configuration details for the geosearch provider.
type ProviderConfig struct {
	Type      string `yaml:"type"`             // Type is the provider name: wikipedia or google.
	APIKey    string `yaml:"key"`              // APIKey is required by the Google provider.
	RateLimit int    `yaml:"rate_limit"`       // RateLimit is the number of requests per second.
	Radius    int    `yaml:"geosearch.radius"` // Radius is the search radius in meters.
	Limit     int    `yaml:"geosearch.limit"`  // Limit is the maximum number of sights per search.
}

// MustLoad loads the configuration from defaults, an optional YAML file named by
// SIGHTS_CONFIG and SIGHTS_* environment variables, in increasing priority.
// It panics when a value cannot be parsed.
func MustLoad() *Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("port", "8080")
	v.SetDefault("provider.type", "wikipedia")
	v.SetDefault("provider.rate_limit", "5")
	v.SetDefault("geosearch.radius", "10000")
	v.SetDefault("geosearch.limit", "50")
	v.SetDefault("bearing.mode", string(geo.BearingLiteral))
	v.SetDefault("fetch.timeout", "10s")

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file: " + err.Error())
		}
	}

	timeout, err := time.ParseDuration(v.GetString("fetch.timeout"))
	if err != nil {
		panic("failed to parse fetch timeout from configuration")
	}

	bearingMode, err := geo.ParseBearingMode(v.GetString("bearing.mode"))
	if err != nil {
		panic("failed to parse bearing mode from configuration, must be literal or corrected")
	}

	return &Config{
		Env:  v.GetString("env"),
		Port: mustInt(v, "port", "failed to parse port from configuration"),
		Provider: ProviderConfig{
			Type:      v.GetString("provider.type"),
			APIKey:    v.GetString("provider.key"),
			RateLimit: mustInt(v, "provider.rate_limit", "failed to parse provider rate limit, must be an integer"),
			Radius:    mustInt(v, "geosearch.radius", "failed to parse geosearch radius, must be an integer"),
			Limit:     mustInt(v, "geosearch.limit", "failed to parse geosearch limit, must be an integer"),
		},
		BearingMode:  bearingMode,
		FetchTimeout: timeout,
	}
}

func mustInt(v *viper.Viper, key, msg string) int {
	value, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		panic(msg)
	}

	return value
}
