package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps orders in an embedded LSM, for single-node deployments
// that want durable receipts without Postgres.
type PebbleStore struct {
	mu sync.Mutex // serializes the exists-check and write in Save
	db *pebble.DB
}

func OpenPebbleStore(dir string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func orderKey(receiptID string) []byte {
	return []byte("order/" + receiptID)
}

func (s *PebbleStore) Save(_ context.Context, o *Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := orderKey(o.ReceiptID)
	_, closer, err := s.db.Get(key)
	switch {
	case err == nil:
		_ = closer.Close()
		return ErrDuplicateReceipt
	case !errors.Is(err, pebble.ErrNotFound):
		return fmt.Errorf("check receipt: %w", err)
	}

	if err := s.db.Set(key, body, pebble.Sync); err != nil {
		return fmt.Errorf("write order: %w", err)
	}
	return nil
}

func (s *PebbleStore) FindByReceiptID(_ context.Context, receiptID string) (*Order, error) {
	val, closer, err := s.db.Get(orderKey(receiptID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read order: %w", err)
	}
	defer closer.Close()

	var o Order
	if err := json.Unmarshal(val, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}
