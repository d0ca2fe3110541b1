// Package validation turns raw create-game payloads into game.NewGame values,
// or into a list of field-level problems.
package validation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gameshelf/game"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed game.schema.json
var gameSchemaJSON []byte

const (
	dateFormat = "game-date"
	rootField  = "(root)"
)

var gameSchema = mustCompile()

var errIGDBIDRange = errors.New("must be a whole number between 1 and 9223372036854775807")

func mustCompile() *gojsonschema.Schema {
	gojsonschema.FormatCheckers.Add(dateFormat, dateChecker{})
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(gameSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("validation: invalid game schema: %v", err))
	}
	return schema
}

type dateChecker struct{}

func (dateChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	_, err := ParseDate(s)
	return err == nil
}

// ParseDate accepts YYYY-MM-DD (midnight UTC) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error reports every problem found in a payload.
type Error struct {
	Problems []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "invalid game: " + strings.Join(parts, "; ")
}

func (e *Error) add(field, message string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: message})
}

type payload struct {
	Name         string       `json:"name"`
	Platform     string       `json:"platform"`
	PurchaseDate string       `json:"purchaseDate"`
	ReleaseDate  *string      `json:"releaseDate"`
	CoverURL     *string      `json:"coverUrl"`
	Description  *string      `json:"description"`
	IGDBID       *json.Number `json:"igdbId"`
}

// Parse validates data against the game schema and returns the normalized
// game. Any failure is an *Error.
func Parse(data []byte) (game.NewGame, error) {
	verr := &Error{}

	if len(strings.TrimSpace(string(data))) == 0 {
		verr.add(rootField, "request body is required")
		return game.NewGame{}, verr
	}

	result, err := gameSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		verr.add(rootField, "body must be valid JSON")
		return game.NewGame{}, verr
	}
	if !result.Valid() {
		for _, re := range result.Errors() {
			verr.add(fieldOf(re), messageOf(re))
		}
		return game.NewGame{}, verr
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		verr.add(rootField, "body must be valid JSON")
		return game.NewGame{}, verr
	}

	return normalize(p, verr)
}

func normalize(p payload, verr *Error) (game.NewGame, error) {
	g := game.NewGame{
		Name:     game.SanitizeText(p.Name),
		Platform: game.Platform(p.Platform),
	}
	if g.Name == "" {
		verr.add("name", "must contain visible text")
	}

	purchased, err := ParseDate(p.PurchaseDate)
	if err != nil {
		verr.add("purchaseDate", err.Error())
	}
	g.PurchaseDate = purchased

	if p.ReleaseDate != nil {
		released, err := ParseDate(*p.ReleaseDate)
		if err != nil {
			verr.add("releaseDate", err.Error())
		} else {
			g.ReleaseDate = &released
		}
	}

	if p.CoverURL != nil {
		if cover := strings.TrimSpace(*p.CoverURL); cover != "" {
			g.CoverURL = &cover
		}
	}

	if p.Description != nil {
		if desc := game.SanitizeText(*p.Description); desc != "" {
			g.Description = &desc
		}
	}

	if p.IGDBID != nil {
		id, err := parseIGDBID(*p.IGDBID)
		if err != nil {
			verr.add("igdbId", err.Error())
		} else {
			g.IGDBID = &id
		}
	}

	if len(verr.Problems) > 0 {
		return game.NewGame{}, verr
	}
	return g, nil
}

// parseIGDBID reads the id exactly. The schema only guarantees a whole
// number, which may be written as 1.0 or 1e3 and may not fit in int64.
func parseIGDBID(n json.Number) (int64, error) {
	if id, err := strconv.ParseInt(n.String(), 10, 64); err == nil && id >= 1 {
		return id, nil
	}
	r, ok := new(big.Rat).SetString(n.String())
	if !ok || !r.IsInt() || !r.Num().IsInt64() || r.Num().Int64() < 1 {
		return 0, errIGDBIDRange
	}
	return r.Num().Int64(), nil
}

func fieldOf(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			return prop
		}
	}
	return re.Field()
}

func messageOf(re gojsonschema.ResultError) string {
	switch re.Type() {
	case "required":
		return "is required"
	case "pattern":
		return "must not be empty"
	case "format":
		return "must be a date (YYYY-MM-DD or RFC 3339)"
	case "enum":
		return "must be one of: " + platformList()
	}
	return re.Description()
}

func platformList() string {
	names := make([]string, len(game.Platforms))
	for i, p := range game.Platforms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
