// Package paging serves the stored articles as numbered pages, oldest first.
package paging

import (
	"context"
	"errors"
	"fmt"
	"math"

	"newsbot/internal/models"
)

// ErrInvalidPage is returned for a page number or size below 1.
var ErrInvalidPage = errors.New("invalid page")

// Store returns a window of articles in publish order and the total article
// count, both taken from the same snapshot.
type Store interface {
	Page(ctx context.Context, offset, limit int) ([]models.Article, int, error)
}

type Page struct {
	Items      []models.Article
	Number     int
	Size       int
	Total      int
	TotalPages int
}

func (p Page) HasPrev() bool { return p.Number > 1 && p.TotalPages > 0 }

func (p Page) HasNext() bool { return p.Number < p.TotalPages }

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetPage returns page number (1-based) of the given size. A page past the
// end is empty but still carries the correct totals.
func (s *Service) GetPage(ctx context.Context, number, size int) (Page, error) {
	if number < 1 || size < 1 {
		return Page{}, fmt.Errorf("%w: page %d, size %d", ErrInvalidPage, number, size)
	}

	// A page whose offset does not fit in an int lies past any real store;
	// ask for the count only.
	offset, limit := 0, 0
	if number-1 <= math.MaxInt/size {
		offset, limit = (number-1)*size, size
	}
	items, total, err := s.store.Page(ctx, offset, limit)
	if err != nil {
		return Page{}, fmt.Errorf("get page %d: %w", number, err)
	}
	if items == nil {
		items = []models.Article{}
	}

	return Page{
		Items:      items,
		Number:     number,
		Size:       size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}, nil
}
