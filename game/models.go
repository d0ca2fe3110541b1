package game

import "time"

type Platform string

const (
	PlatformPC         Platform = "PC"
	PlatformPS5        Platform = "PlayStation 5"
	PlatformPS4        Platform = "PlayStation 4"
	PlatformXboxSeries Platform = "Xbox Series X/S"
	PlatformXboxOne    Platform = "Xbox One"
	PlatformSwitch     Platform = "Nintendo Switch"
)

// Platforms lists every accepted platform in display order.
var Platforms = []Platform{
	PlatformPC,
	PlatformPS5,
	PlatformPS4,
	PlatformXboxSeries,
	PlatformXboxOne,
	PlatformSwitch,
}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Game is a stored collection entry.
type Game struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Platform     Platform   `json:"platform"`
	PurchaseDate time.Time  `json:"purchaseDate"`
	ReleaseDate  *time.Time `json:"releaseDate"`
	CoverURL     *string    `json:"coverUrl"`
	Description  *string    `json:"description"`
	IGDBID       *int64     `json:"igdbId"`
}

// NewGame is a validated game that has not been assigned an id yet.
type NewGame struct {
	Name         string     `json:"name"`
	Platform     Platform   `json:"platform"`
	PurchaseDate time.Time  `json:"purchaseDate"`
	ReleaseDate  *time.Time `json:"releaseDate"`
	CoverURL     *string    `json:"coverUrl"`
	Description  *string    `json:"description"`
	IGDBID       *int64     `json:"igdbId"`
}

// WithID builds the stored form of g.
func (g NewGame) WithID(id int64) *Game {
	return &Game{
		ID:           id,
		Name:         g.Name,
		Platform:     g.Platform,
		PurchaseDate: g.PurchaseDate,
		ReleaseDate:  g.ReleaseDate,
		CoverURL:     g.CoverURL,
		Description:  g.Description,
		IGDBID:       g.IGDBID,
	}
}

const (
	EventGameAdded   = "game_added"
	EventGameRemoved = "game_removed"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type GameRemovedPayload struct {
	ID int64 `json:"id"`
}
