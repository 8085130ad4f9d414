// Package catalog resolves product ids to products.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("product not found")

// Lookup is the read-only catalog the cart and checkout depend on.
type Lookup interface {
	FindByID(ctx context.Context, id string) (Product, error)
	ListDistinctCategories(ctx context.Context) ([]string, error)
	List(ctx context.Context, f Filter) ([]Product, error)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortProducts(ps []Product, order string) {
	var less func(i, j int) bool
	switch order {
	case SortPriceAsc:
		less = func(i, j int) bool { return ps[i].Price.LessThan(ps[j].Price) }
	case SortPriceDesc:
		less = func(i, j int) bool { return ps[i].Price.GreaterThan(ps[j].Price) }
	case SortNameAsc:
		less = func(i, j int) bool { return ps[i].Name < ps[j].Name }
	case SortNameDesc:
		less = func(i, j int) bool { return ps[i].Name > ps[j].Name }
	case SortNewest:
		less = func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) }
	default:
		return
	}
	sort.SliceStable(ps, less)
}
