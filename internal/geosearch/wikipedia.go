package geosearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/UnknownOlympus/sightspotter/internal/models"
	"golang.org/x/time/rate"
)

// WikipediaBaseURL -- MediaWiki API endpoint used for geosearch.
const WikipediaBaseURL = "https://en.wikipedia.org/w/api.php"

const (
	// DefaultRadius is the geosearch radius in meters.
	DefaultRadius = 10000
	// DefaultLimit is the maximum number of sights returned by one search.
	DefaultLimit = 50
)

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WikipediaProvider implements the Provider interface using the MediaWiki geosearch generator.
// Every article with coordinates near the user becomes a sight.
type WikipediaProvider struct {
	client    HTTPClient    // HTTP client for making requests
	baseURL   string        // Base URL for the MediaWiki API
	radius    int           // Search radius in meters
	limit     int           // Maximum number of pages per search
	log       *slog.Logger  // Logger for logging operations
	limiter   *rate.Limiter // Rate limiter
	userAgent string        // userAgent is required by the Wikimedia API etiquette
}

// ErrUnexpectedStatus is returned when the geosearch API answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("geosearch API returned unexpected status")

// wikipediaResponse represents the parts of the MediaWiki query response we use.
// The pages object is keyed by page id and carries no order.
type wikipediaResponse struct {
	Query *struct {
		Pages map[string]wikipediaPage `json:"pages"`
	} `json:"query"`
}

type wikipediaPage struct {
	PageID      int64  `json:"pageid"`
	Title       string `json:"title"`
	Coordinates []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coordinates"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	Terms *struct {
		Description []string `json:"description"`
	} `json:"terms"`
}

// WikipediaOptions tunes a WikipediaProvider. Zero values fall back to defaults.
type WikipediaOptions struct {
	Radius    int           // Search radius in meters
	Limit     int           // Maximum number of sights
	RateLimit int           // Requests per second, unlimited when zero
	Timeout   time.Duration // HTTP client timeout
}

// NewWikipediaProvider creates a new Wikipedia geosearch provider.
func NewWikipediaProvider(opts WikipediaOptions, log *slog.Logger) *WikipediaProvider {
	const defaultTimeout = 10 * time.Second

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return NewWikipediaProviderWithClient(&http.Client{Timeout: opts.Timeout}, opts, log)
}

// NewWikipediaProviderWithClient creates a Wikipedia provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewWikipediaProviderWithClient(client HTTPClient, opts WikipediaOptions, log *slog.Logger) *WikipediaProvider {
	if opts.Radius <= 0 {
		opts.Radius = DefaultRadius
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}

	return &WikipediaProvider{
		client:    client,
		baseURL:   WikipediaBaseURL,
		radius:    opts.Radius,
		limit:     opts.Limit,
		log:       log,
		limiter:   limiter,
		userAgent: "SightSpotter/1.0 (https://github.com/UnknownOlympus/sightspotter)",
	}
}

// NearbySights returns the Wikipedia articles geotagged within the search radius of location.
// Pages without coordinates are skipped and pages without a title are labelled "Unknown".
// The result is ordered by page id.
func (wp *WikipediaProvider) NearbySights(
	ctx context.Context,
	location models.GeoPoint,
) ([]models.SightRecord, error) {
	if err := validateLocation(location); err != nil {
		return nil, err
	}

	if err := wp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(wp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	reqURL.RawQuery = wp.buildQuery(location).Encode()

	wp.log.DebugContext(ctx, "Wikipedia geosearch request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", wp.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := wp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geosearch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		wp.log.ErrorContext(ctx, "Wikipedia API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result wikipediaResponse
	if err = json.Unmarshal(body, &result); err != nil {
		wp.log.ErrorContext(ctx, "Failed to parse Wikipedia response", "error", err)
		return nil, fmt.Errorf("failed to decode wikipedia response: %w", err)
	}

	if result.Query == nil || len(result.Query.Pages) == 0 {
		wp.log.InfoContext(ctx, "No sights found nearby", "lat", location.Latitude, "lon", location.Longitude)
		return []models.SightRecord{}, nil
	}

	sights := make([]models.SightRecord, 0, len(result.Query.Pages))
	for key, page := range result.Query.Pages {
		if len(page.Coordinates) == 0 {
			wp.log.DebugContext(ctx, "Skipping page without coordinates", "page", key, "title", page.Title)
			continue
		}
		sights = append(sights, page.toSight())
	}

	sort.Slice(sights, func(i, j int) bool { return sights[i].PageID < sights[j].PageID })

	wp.log.DebugContext(ctx, "Wikipedia found sights", "count", len(sights))

	return sights, nil
}

func (wp *WikipediaProvider) buildQuery(location models.GeoPoint) url.Values {
	limit := strconv.Itoa(wp.limit)
	coord := strconv.FormatFloat(location.Latitude, 'f', -1, 64) + "|" +
		strconv.FormatFloat(location.Longitude, 'f', -1, 64)

	query := url.Values{}
	query.Set("action", "query")
	query.Set("format", "json")
	query.Set("generator", "geosearch")
	query.Set("ggscoord", coord)
	query.Set("ggsradius", strconv.Itoa(wp.radius))
	query.Set("ggslimit", limit)
	query.Set("prop", "coordinates|pageimages|pageterms")
	query.Set("colimit", limit)
	query.Set("piprop", "thumbnail")
	query.Set("pithumbsize", "500")
	query.Set("pilimit", limit)
	query.Set("wbptterms", "description")

	return query
}

func (p wikipediaPage) toSight() models.SightRecord {
	sight := models.SightRecord{
		PageID: p.PageID,
		Title:  p.Title,
		Location: models.GeoPoint{
			Latitude:  p.Coordinates[0].Lat,
			Longitude: p.Coordinates[0].Lon,
		},
	}
	if sight.Title == "" {
		sight.Title = models.UnknownTitle
	}
	if p.Thumbnail != nil {
		sight.Thumbnail = p.Thumbnail.Source
	}
	if p.Terms != nil && len(p.Terms.Description) > 0 {
		sight.Description = p.Terms.Description[0]
	}

	return sight
}
