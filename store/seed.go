package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gameshelf/game"
	"gameshelf/validation"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Games []map[string]interface{} `yaml:"games"`
}

// LoadSeed reads a YAML file of starter games. Every entry goes through the
// same validation as an API create.
func LoadSeed(path string) ([]game.NewGame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	games := make([]game.NewGame, 0, len(file.Games))
	for i, entry := range file.Games {
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		g, err := validation.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		games = append(games, g)
	}
	return games, nil
}

// Seed inserts games in order.
func Seed(ctx context.Context, s Store, games []game.NewGame) error {
	for _, g := range games {
		if _, err := s.Insert(ctx, g); err != nil {
			return fmt.Errorf("failed to seed %q: %w", g.Name, err)
		}
	}
	return nil
}
