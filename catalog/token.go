package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// expiryMargin is subtracted from the lifetime the provider reports so a
// token is never sent right as it lapses.
const expiryMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenSource hands out a client-credentials bearer token and caches it until
// it expires. Two callers that both see an expired token may both fetch a new
// one; the provider accepts that.
type TokenSource struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenSource(clientID, clientSecret, tokenURL string, httpClient *http.Client) *TokenSource {
	return &TokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

// Token returns the cached token while it is valid and fetches a new one
// otherwise.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	if ts.token != "" && ts.now().Before(ts.expiresAt) {
		token := ts.token
		ts.mu.Unlock()
		return token, nil
	}
	ts.mu.Unlock()

	resp, err := ts.fetch(ctx)
	if err != nil {
		return "", err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = resp.AccessToken
	ts.expiresAt = ts.now().Add(time.Duration(resp.ExpiresIn)*time.Second - expiryMargin)
	slog.Debug("igdb token refreshed", "expires_at", ts.expiresAt)
	return ts.token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token = ""
	ts.expiresAt = time.Time{}
	ts.mu.Unlock()
}

func (ts *TokenSource) fetch(ctx context.Context) (*tokenResponse, error) {
	endpoint, err := url.Parse(ts.tokenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid token url: %w", err)
	}
	q := endpoint.Query()
	q.Set("client_id", ts.clientID)
	q.Set("client_secret", ts.clientSecret)
	q.Set("grant_type", "client_credentials")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}
	return &tr, nil
}
