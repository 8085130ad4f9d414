package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryCatalog is an in-process catalog, used by default and in tests.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

func NewMemoryCatalog(products ...Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// Put inserts or replaces a product.
func (c *MemoryCatalog) Put(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.products[p.ID] = p
}

// SetPrice changes a product's price. Returns ErrNotFound for unknown ids.
func (c *MemoryCatalog) SetPrice(id string, price decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Price = price
	c.products[id] = p
	return nil
}

// Delete removes a product; cart lines that referenced it become orphaned.
func (c *MemoryCatalog) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return
	}
	delete(c.products, id)
	for i, pid := range c.order {
		if pid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *MemoryCatalog) FindByID(_ context.Context, id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) ListDistinctCategories(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range c.products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (c *MemoryCatalog) List(_ context.Context, f Filter) ([]Product, error) {
	c.mu.RLock()
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		if p := c.products[id]; f.matches(p) {
			out = append(out, p)
		}
	}
	c.mu.RUnlock()
	sortProducts(out, f.Sort)
	return out, nil
}
