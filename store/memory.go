package store

import (
	"context"
	"sync"

	"gameshelf/game"
)

// MemoryStore keeps games in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	games  []*game.Game
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) List(ctx context.Context) ([]*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*game.Game, len(s.games))
	for i, g := range s.games {
		c := *g
		out[i] = &c
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, g game.NewGame) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := g.WithID(s.nextID)
	s.nextID++
	s.games = append(s.games, stored)

	c := *stored
	return &c, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, g := range s.games {
		if g.ID == id {
			s.games = append(s.games[:i], s.games[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Close() error {
	return nil
}
