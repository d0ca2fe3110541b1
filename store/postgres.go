package store

import (
	"context"
	"fmt"
	"time"

	"gameshelf/game"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// gameRow is the games table as seen by gorm.
type gameRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"not null"`
	Platform     string    `gorm:"not null;index"`
	PurchaseDate time.Time `gorm:"not null"`
	ReleaseDate  *time.Time
	CoverURL     *string
	Description  *string
	IGDBID       *int64 `gorm:"column:igdb_id;index"`
	CreatedAt    time.Time
}

func (gameRow) TableName() string { return "games" }

// toGame reports dates in UTC like the other backends, whatever the session
// time zone is.
func (r gameRow) toGame() *game.Game {
	var released *time.Time
	if r.ReleaseDate != nil {
		t := r.ReleaseDate.UTC()
		released = &t
	}
	return &game.Game{
		ID:           r.ID,
		Name:         r.Name,
		Platform:     game.Platform(r.Platform),
		PurchaseDate: r.PurchaseDate.UTC(),
		ReleaseDate:  released,
		CoverURL:     r.CoverURL,
		Description:  r.Description,
		IGDBID:       r.IGDBID,
	}
}

// PostgresStore persists games through gorm. Ids come from a sequence, so a
// deleted id is never handed out again.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&gameRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*game.Game, error) {
	var rows []gameRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	games := make([]*game.Game, 0, len(rows))
	for _, r := range rows {
		games = append(games, r.toGame())
	}
	return games, nil
}

func (s *PostgresStore) Insert(ctx context.Context, g game.NewGame) (*game.Game, error) {
	row := gameRow{
		Name:         g.Name,
		Platform:     string(g.Platform),
		PurchaseDate: g.PurchaseDate,
		ReleaseDate:  g.ReleaseDate,
		CoverURL:     g.CoverURL,
		Description:  g.Description,
		IGDBID:       g.IGDBID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to insert game: %w", err)
	}
	return row.toGame(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&gameRow{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete game: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
