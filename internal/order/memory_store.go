package order

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*Order)}
}

func (s *MemoryStore) Save(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ReceiptID]; ok {
		return ErrDuplicateReceipt
	}
	s.orders[o.ReceiptID] = o.Clone()
	return nil
}

func (s *MemoryStore) FindByReceiptID(_ context.Context, receiptID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[receiptID]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

// Len reports how many orders are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
