package cart

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu    sync.Mutex
	lines map[string]map[string]Line // guest -> line id -> line
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lines: make(map[string]map[string]Line),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) ListLines(_ context.Context, guestID string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, 0, len(s.lines[guestID]))
	for _, l := range s.lines[guestID] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) AddQuantity(_ context.Context, guestID, productID string, qty int) (Line, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	guest := s.lines[guestID]
	if guest == nil {
		guest = make(map[string]Line)
		s.lines[guestID] = guest
	}
	for id, l := range guest {
		if l.ProductID == productID {
			if l.Quantity > MaxLineQuantity-qty {
				return Line{}, false, ErrQuantityLimit
			}
			l.Quantity += qty
			l.UpdatedAt = now
			guest[id] = l
			return l, true, nil
		}
	}

	l := Line{
		ID:        uuid.NewString(),
		GuestID:   guestID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	guest[l.ID] = l
	return l, false, nil
}

func (s *MemoryStore) SetQuantity(_ context.Context, guestID, lineID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[guestID][lineID]
	if !ok {
		return ErrLineNotFound
	}
	l.Quantity = qty
	l.UpdatedAt = s.now()
	s.lines[guestID][lineID] = l
	return nil
}

func (s *MemoryStore) DeleteLine(_ context.Context, guestID, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lines[guestID][lineID]; !ok {
		return ErrLineNotFound
	}
	delete(s.lines[guestID], lineID)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, guestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, guestID)
	return nil
}
