package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIGDB struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	searchCalls atomic.Int32
	searchCode  atomic.Int32
	hits        int
	lastBody    atomic.Value
	lastAuth    atomic.Value
}

func newFakeIGDB(t *testing.T, hits int) *fakeIGDB {
	f := &fakeIGDB{hits: hits}
	f.searchCode.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "id", r.URL.Query().Get("client_id"))
		assert.Equal(t, "secret", r.URL.Query().Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":3600,"token_type":"bearer"}`, n)
	})
	mux.HandleFunc("/v4/games", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.lastBody.Store(string(body))
		f.lastAuth.Store(r.Header.Get("Authorization"))
		assert.Equal(t, "id", r.Header.Get("Client-ID"))

		code := int(f.searchCode.Load())
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}

		hits := make([]map[string]any, 0, f.hits)
		for i := 1; i <= f.hits; i++ {
			hit := map[string]any{"id": i, "name": fmt.Sprintf("Game %d", i)}
			if i%2 == 1 {
				hit["cover"] = map[string]any{"url": fmt.Sprintf("//images.igdb.com/igdb/image/upload/t_thumb/co%d.jpg", i)}
				hit["first_release_date"] = 1488499200
				hit["summary"] = "Enter a world of adventure"
			}
			hits = append(hits, hit)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hits)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIGDB) client(cache Cache) *Client {
	return NewClient(Config{
		ClientID:          "id",
		ClientSecret:      "secret",
		TokenURL:          f.server.URL + "/oauth2/token",
		APIURL:            f.server.URL + "/v4",
		RequestsPerSecond: 100,
		Cache:             cache,
		CacheTTL:          time.Minute,
	})
}

func TestSearchShortQuerySkipsUpstream(t *testing.T) {
	f := newFakeIGDB(t, 3)
	c := f.client(nil)

	for _, q := range []string{"", " ", "z", " z "} {
		results, err := c.Search(context.Background(), q)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}

	assert.Zero(t, f.tokenCalls.Load())
	assert.Zero(t, f.searchCalls.Load())
}

func TestSearchReshapesAndCapsResults(t *testing.T) {
	f := newFakeIGDB(t, 15)
	c := f.client(nil)

	results, err := c.Search(context.Background(), "zelda")
	require.NoError(t, err)
	require.Len(t, results, MaxResults)

	first := results[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Game 1", first.Name)
	require.NotNil(t, first.CoverURL)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/co1.jpg", *first.CoverURL)
	require.NotNil(t, first.FirstReleaseDate)
	assert.Equal(t, int64(1488499200), *first.FirstReleaseDate)
	require.NotNil(t, first.Summary)

	second := results[1]
	assert.Nil(t, second.CoverURL)
	assert.Nil(t, second.FirstReleaseDate)
	assert.Nil(t, second.Summary)

	body := f.lastBody.Load().(string)
	assert.Contains(t, body, `search "zelda";`)
	assert.Contains(t, body, "where version_parent = null;")
	assert.Contains(t, body, fmt.Sprintf("limit %d;", MaxResults))
	assert.Equal(t, "Bearer token-1", f.lastAuth.Load())
}

func TestSearchReusesCachedToken(t *testing.T) {
	f := newFakeIGDB(t, 1)
	c := f.client(nil)

	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), "hades")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), f.tokenCalls.Load())
	assert.Equal(t, int32(3), f.searchCalls.Load())
}

func TestTokenRefetchedAfterExpiry(t *testing.T) {
	f := newFakeIGDB(t, 1)
	ts := NewTokenSource("id", "secret", f.server.URL+"/oauth2/token", http.DefaultClient)

	now := time.Now()
	ts.now = func() time.Time { return now }

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	now = now.Add(30 * time.Minute)
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	now = now.Add(31 * time.Minute)
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
	assert.Equal(t, int32(2), f.tokenCalls.Load())
}

func TestSearchUpstreamFailure(t *testing.T) {
	f := newFakeIGDB(t, 1)
	f.searchCode.Store(http.StatusInternalServerError)
	c := f.client(nil)

	_, err := c.Search(context.Background(), "celeste")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Equal(t, int32(1), f.searchCalls.Load(), "search must not be retried")
}

func TestSearchUnauthorizedDropsToken(t *testing.T) {
	f := newFakeIGDB(t, 1)
	c := f.client(nil)

	_, err := c.Search(context.Background(), "celeste")
	require.NoError(t, err)

	f.searchCode.Store(http.StatusUnauthorized)
	_, err = c.Search(context.Background(), "celeste")
	assert.ErrorIs(t, err, ErrSearchFailed)

	f.searchCode.Store(http.StatusOK)
	_, err = c.Search(context.Background(), "celeste")
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.tokenCalls.Load())
	assert.Equal(t, "Bearer token-2", f.lastAuth.Load())
}

func TestSearchTokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Config{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL, APIURL: srv.URL})
	_, err := c.Search(context.Background(), "celeste")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearchNotConfigured(t *testing.T) {
	c := NewClient(Config{})
	assert.False(t, c.Configured())

	_, err := c.Search(context.Background(), "celeste")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, err, ErrSearchFailed)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]Result
}

func (m *mapCache) Get(_ context.Context, key string) ([]Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	return r, ok
}

func (m *mapCache) Set(_ context.Context, key string, results []Result, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = results
}

func TestSearchUsesCache(t *testing.T) {
	f := newFakeIGDB(t, 2)
	cache := &mapCache{entries: map[string][]Result{}}
	c := f.client(cache)

	first, err := c.Search(context.Background(), "Metroid")
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "metroid")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.searchCalls.Load())
	assert.Contains(t, cache.entries, "gameshelf:igdb:search:metroid")
}

func TestNormalizeCoverURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			in:   "//images.igdb.com/igdb/image/upload/t_thumb/co1r7f.jpg",
			want: "https://images.igdb.com/igdb/image/upload/t_cover_big/co1r7f.jpg",
		},
		{
			in:   "https://images.igdb.com/igdb/image/upload/t_cover_small/a.png",
			want: "https://images.igdb.com/igdb/image/upload/t_cover_big/a.png",
		},
		{
			in:   "https://images.igdb.com/igdb/image/upload/t_cover_big/b.jpg",
			want: "https://images.igdb.com/igdb/image/upload/t_cover_big/b.jpg",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCoverURL(tt.in))
	}
}

func TestSearchBodyEscapesQuotes(t *testing.T) {
	body := searchBody(`say "hi" \o/`)
	assert.Contains(t, body, `search "say \"hi\" \\o/";`)
}
