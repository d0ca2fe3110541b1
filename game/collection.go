package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidSortField = errors.New("sort must be one of purchaseDate, releaseDate, name")
	ErrInvalidSortOrder = errors.New("order must be asc or desc")
	ErrInvalidPlatform  = errors.New("unknown platform")
)

// Repository is the storage the collection is kept in.
type Repository interface {
	List(ctx context.Context) ([]*Game, error)
	Insert(ctx context.Context, g NewGame) (*Game, error)
	Delete(ctx context.Context, id int64) error
}

// Publisher receives collection change events.
type Publisher interface {
	Publish(event Event)
}

type SortField string

const (
	SortNone         SortField = ""
	SortPurchaseDate SortField = "purchaseDate"
	SortReleaseDate  SortField = "releaseDate"
	SortName         SortField = "name"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListOptions narrows and orders a listing. The zero value lists everything
// in insertion order.
type ListOptions struct {
	Platform Platform
	Sort     SortField
	Order    SortOrder
}

// ParseListOptions builds ListOptions from raw query values.
func ParseListOptions(platform, sortField, order string) (ListOptions, error) {
	opts := ListOptions{
		Platform: Platform(strings.TrimSpace(platform)),
		Sort:     SortField(strings.TrimSpace(sortField)),
		Order:    SortOrder(strings.ToLower(strings.TrimSpace(order))),
	}

	if opts.Platform != "" && !opts.Platform.Valid() {
		return ListOptions{}, fmt.Errorf("%w: %s", ErrInvalidPlatform, opts.Platform)
	}

	switch opts.Sort {
	case SortNone, SortPurchaseDate, SortReleaseDate, SortName:
	default:
		return ListOptions{}, ErrInvalidSortField
	}

	switch opts.Order {
	case "":
		if opts.Sort != SortNone {
			opts.Order = OrderDesc
		}
	case OrderAsc, OrderDesc:
	default:
		return ListOptions{}, ErrInvalidSortOrder
	}

	return opts, nil
}

type Collection struct {
	repo      Repository
	publisher Publisher
}

// NewCollection creates a collection over repo. publisher may be nil.
func NewCollection(repo Repository, publisher Publisher) *Collection {
	return &Collection{repo: repo, publisher: publisher}
}

func (c *Collection) List(ctx context.Context, opts ListOptions) ([]*Game, error) {
	games, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Game, 0, len(games))
	for _, g := range games {
		if opts.Platform != "" && g.Platform != opts.Platform {
			continue
		}
		result = append(result, g)
	}

	if opts.Sort != SortNone {
		sortGames(result, opts.Sort, opts.Order)
	}

	return result, nil
}

func (c *Collection) Add(ctx context.Context, g NewGame) (*Game, error) {
	created, err := c.repo.Insert(ctx, g)
	if err != nil {
		return nil, err
	}

	c.publish(Event{Type: EventGameAdded, Payload: created})
	return created, nil
}

func (c *Collection) Remove(ctx context.Context, id int64) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}

	c.publish(Event{Type: EventGameRemoved, Payload: GameRemovedPayload{ID: id}})
	return nil
}

func (c *Collection) publish(event Event) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(event)
}

// sortGames orders games in place. Entries without a release date always go
// last regardless of order.
func sortGames(games []*Game, field SortField, order SortOrder) {
	asc := order == OrderAsc

	sort.SliceStable(games, func(i, j int) bool {
		a, b := games[i], games[j]

		switch field {
		case SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if asc {
				return an < bn
			}
			return an > bn

		case SortReleaseDate:
			if a.ReleaseDate == nil || b.ReleaseDate == nil {
				return a.ReleaseDate != nil && b.ReleaseDate == nil
			}
			if asc {
				return a.ReleaseDate.Before(*b.ReleaseDate)
			}
			return a.ReleaseDate.After(*b.ReleaseDate)

		default:
			if asc {
				return a.PurchaseDate.Before(b.PurchaseDate)
			}
			return a.PurchaseDate.After(b.PurchaseDate)
		}
	})
}
