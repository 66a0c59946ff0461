package geosearch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geosearch provider.
type ProviderType string

const (
	// ProviderTypeWikipedia represents the MediaWiki geosearch API.
	ProviderTypeWikipedia ProviderType = "wikipedia"
	// ProviderTypeGoogle represents the Google Places nearby search.
	ProviderTypeGoogle ProviderType = "google"
)

// ProviderConfig holds configuration for creating a geosearch provider.
type ProviderConfig struct {
	Type      ProviderType  // Type of provider to create
	APIKey    string        // API key (used by Google provider)
	RateLimit int           // Rate limit for requests per second
	Radius    int           // Search radius in meters
	Limit     int           // Maximum number of sights per search
	Timeout   time.Duration // HTTP timeout (used by Wikipedia provider)
	Logger    *slog.Logger  // Logger for the provider
}

// NewProvider creates a geosearch provider based on the provided configuration.
//
// Supported provider types:
// - "wikipedia": MediaWiki geosearch (free, no API key required)
// - "google": Google Places nearby search (requires API key)
//
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeWikipedia:
		return newWikipediaProvider(config)
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// newWikipediaProvider creates a Wikipedia geosearch provider.
func newWikipediaProvider(config ProviderConfig) (Provider, error) {
	return NewWikipediaProvider(WikipediaOptions{
		Radius:    config.Radius,
		Limit:     config.Limit,
		RateLimit: config.RateLimit,
		Timeout:   config.Timeout,
	}, config.Logger), nil
}

// newGoogleProvider creates a Google Places provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}

	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Radius, config.Limit, config.Logger), nil
}
