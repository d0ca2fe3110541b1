package validation

import (
	"errors"
	"testing"
	"time"

	"gameshelf/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problemsOf(t *testing.T, err error) map[string]string {
	t.Helper()

	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %v", err)

	out := make(map[string]string, len(verr.Problems))
	for _, p := range verr.Problems {
		out[p.Field] = p.Message
	}
	return out
}

func TestParseMinimalGame(t *testing.T) {
	g, err := Parse([]byte(`{"name":"Elden Ring","platform":"PC","purchaseDate":"2023-11-01"}`))
	require.NoError(t, err)

	assert.Equal(t, "Elden Ring", g.Name)
	assert.Equal(t, game.PlatformPC, g.Platform)
	assert.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), g.PurchaseDate)
	assert.Nil(t, g.ReleaseDate)
	assert.Nil(t, g.CoverURL)
	assert.Nil(t, g.Description)
	assert.Nil(t, g.IGDBID)
}

func TestParseFullGame(t *testing.T) {
	body := `{
		"name": "  God of War Ragnarök ",
		"platform": "PlayStation 5",
		"purchaseDate": "2024-01-15T10:30:00Z",
		"releaseDate": "2022-11-09",
		"coverUrl": "https://images.igdb.com/igdb/image/upload/t_cover_big/co5s5v.jpg",
		"description": "<b>Action-adventure</b> based on Norse mythology",
		"igdbId": 112875
	}`

	g, err := Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "God of War Ragnarök", g.Name)
	assert.Equal(t, game.PlatformPS5, g.Platform)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), g.PurchaseDate.UTC())
	require.NotNil(t, g.ReleaseDate)
	assert.Equal(t, time.Date(2022, 11, 9, 0, 0, 0, 0, time.UTC), *g.ReleaseDate)
	require.NotNil(t, g.CoverURL)
	require.NotNil(t, g.Description)
	assert.Equal(t, "Action-adventure based on Norse mythology", *g.Description)
	require.NotNil(t, g.IGDBID)
	assert.Equal(t, int64(112875), *g.IGDBID)
}

func TestParseExplicitNulls(t *testing.T) {
	body := `{"name":"Hades","platform":"Nintendo Switch","purchaseDate":"2021-02-02",
		"releaseDate":null,"coverUrl":null,"description":null,"igdbId":null}`

	g, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Nil(t, g.ReleaseDate)
	assert.Nil(t, g.CoverURL)
	assert.Nil(t, g.Description)
	assert.Nil(t, g.IGDBID)
}

func TestParseKeepsAmpersands(t *testing.T) {
	g, err := Parse([]byte(`{"name":"Ratchet & Clank","platform":"PlayStation 4","purchaseDate":"2016-04-12"}`))
	require.NoError(t, err)
	assert.Equal(t, "Ratchet & Clank", g.Name)
}

func TestParseStripsEncodedMarkup(t *testing.T) {
	body := `{"name":"&lt;b&gt;Hades&lt;/b&gt;","platform":"PC","purchaseDate":"2020-10-01",
		"description":"&lt;script&gt;alert(1)&lt;/script&gt;Roguelike &amp;lt;3"}`

	g, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "Hades", g.Name)
	require.NotNil(t, g.Description)
	assert.NotContains(t, *g.Description, "<script")
	assert.NotContains(t, *g.Description, "alert")
	assert.Equal(t, "Roguelike <3", *g.Description)
}

func TestParseKeepsLargeIGDBIDExact(t *testing.T) {
	g, err := Parse([]byte(`{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","igdbId":9007199254740993}`))
	require.NoError(t, err)
	require.NotNil(t, g.IGDBID)
	assert.Equal(t, int64(9007199254740993), *g.IGDBID)

	g, err = Parse([]byte(`{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","igdbId":1.0}`))
	require.NoError(t, err)
	require.NotNil(t, g.IGDBID)
	assert.Equal(t, int64(1), *g.IGDBID)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty name", `{"name":"","platform":"PC","purchaseDate":"2023-11-01"}`, "name"},
		{"blank name", `{"name":"   ","platform":"PC","purchaseDate":"2023-11-01"}`, "name"},
		{"markup only name", `{"name":"<b></b>","platform":"PC","purchaseDate":"2023-11-01"}`, "name"},
		{"missing name", `{"platform":"PC","purchaseDate":"2023-11-01"}`, "name"},
		{"empty platform", `{"name":"Celeste","platform":"","purchaseDate":"2023-11-01"}`, "platform"},
		{"unknown platform", `{"name":"Celeste","platform":"Dreamcast","purchaseDate":"2023-11-01"}`, "platform"},
		{"missing purchase date", `{"name":"Celeste","platform":"PC"}`, "purchaseDate"},
		{"bad purchase date", `{"name":"Celeste","platform":"PC","purchaseDate":"yesterday"}`, "purchaseDate"},
		{"bad release date", `{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","releaseDate":"2018-13-45"}`, "releaseDate"},
		{"numeric cover", `{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","coverUrl":5}`, "coverUrl"},
		{"fractional igdb id", `{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","igdbId":1.5}`, "igdbId"},
		{"string igdb id", `{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","igdbId":"42"}`, "igdbId"},
		{"overflowing igdb id", `{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","igdbId":1e20}`, "igdbId"},
		{"igdb id past int64", `{"name":"Celeste","platform":"PC","purchaseDate":"2023-11-01","igdbId":9223372036854775808}`, "igdbId"},
		{"double encoded markup only name", `{"name":"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;","platform":"PC","purchaseDate":"2023-11-01"}`, "name"},
		{"encoded markup only name", `{"name":"&lt;img src=x onerror=alert(1)&gt;","platform":"PC","purchaseDate":"2023-11-01"}`, "name"},
		{"not an object", `["Celeste"]`, rootField},
		{"malformed json", `{"name":`, rootField},
		{"empty body", ``, rootField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			problems := problemsOf(t, err)
			assert.Contains(t, problems, tt.field)
		})
	}
}

func TestParseReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte(`{"name":"","platform":""}`))
	problems := problemsOf(t, err)

	assert.Contains(t, problems, "name")
	assert.Contains(t, problems, "platform")
	assert.Contains(t, problems, "purchaseDate")
	assert.Equal(t, "is required", problems["purchaseDate"])
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2017-03-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 3, 3, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2017-03-03T09:15:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, 9, d.Hour())

	_, err = ParseDate("03/03/2017")
	assert.Error(t, err)
}
