// Package catalog searches the IGDB game catalog on behalf of the API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	// MinQueryLength is the shortest query worth sending upstream.
	MinQueryLength = 2
	// MaxResults caps how many hits a search returns.
	MaxResults = 10

	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"
	DefaultAPIURL   = "https://api.igdb.com/v4"
)

var (
	ErrSearchFailed  = errors.New("search failed")
	ErrNotConfigured = fmt.Errorf("%w: igdb credentials not configured", ErrSearchFailed)
)

// Result is a catalog hit reshaped for the collection UI.
type Result struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	CoverURL         *string `json:"coverUrl"`
	FirstReleaseDate *int64  `json:"firstReleaseDate"`
	Summary          *string `json:"summary"`
}

type igdbGame struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Cover *struct {
		URL string `json:"url"`
	} `json:"cover"`
	FirstReleaseDate *int64  `json:"first_release_date"`
	Summary          *string `json:"summary"`
}

type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration
	// RequestsPerSecond bounds outbound calls; IGDB allows 4.
	RequestsPerSecond float64
	Cache             Cache
	CacheTTL          time.Duration
}

type Client struct {
	clientID   string
	apiURL     string
	httpClient *http.Client
	tokens     *TokenSource
	limiter    *rate.Limiter
	cache      Cache
	cacheTTL   time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var tokens *TokenSource
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		tokens = NewTokenSource(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, httpClient)
	}

	return &Client{
		clientID:   cfg.ClientID,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
	}
}

// Configured reports whether credentials were supplied.
func (c *Client) Configured() bool {
	return c.tokens != nil
}

// Search looks query up in the catalog. Queries shorter than MinQueryLength
// return no results without calling out. Every upstream failure is reported
// as ErrSearchFailed and is not retried.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []Result{}, nil
	}
	if c.tokens == nil {
		return nil, ErrNotConfigured
	}

	key := cacheKey(query)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	hits, err := c.search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	results := reshape(hits)
	if c.cache != nil {
		c.cache.Set(ctx, key, results, c.cacheTTL)
	}
	return results, nil
}

func (c *Client) search(ctx context.Context, query string) ([]igdbGame, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/games", strings.NewReader(searchBody(query)))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call igdb: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("igdb search rejected", "status", resp.StatusCode, "query", query)
		return nil, fmt.Errorf("igdb returned %s", resp.Status)
	}

	var hits []igdbGame
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode igdb response: %w", err)
	}
	return hits, nil
}

// searchBody builds the Apicalypse query. Version variants (remasters,
// editions) carry a version_parent and are left out.
func searchBody(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(query)
	return fmt.Sprintf(
		`search "%s"; fields name,cover.url,first_release_date,summary; where version_parent = null; limit %d;`,
		escaped, MaxResults,
	)
}

func reshape(hits []igdbGame) []Result {
	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		r := Result{
			ID:               h.ID,
			Name:             h.Name,
			FirstReleaseDate: h.FirstReleaseDate,
			Summary:          h.Summary,
		}
		if h.Cover != nil && h.Cover.URL != "" {
			cover := NormalizeCoverURL(h.Cover.URL)
			r.CoverURL = &cover
		}
		results = append(results, r)
	}
	return results
}

var imageSize = regexp.MustCompile(`/t_[a-z0-9_]+/`)

// NormalizeCoverURL turns an IGDB image reference into an absolute https URL
// for the cover_big size.
func NormalizeCoverURL(raw string) string {
	u := strings.TrimSpace(raw)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return imageSize.ReplaceAllString(u, "/t_cover_big/")
}
