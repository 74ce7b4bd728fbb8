package catalog

import (
	"strings"

	"storefront-sync/internal/domain"
)

// PriceRange is an inclusive price window.
type PriceRange struct {
	Min float64
	Max float64
}

// DefaultPriceRange matches the storefront's initial slider position.
var DefaultPriceRange = PriceRange{Min: 0, Max: 1000}

// Criteria are the filter inputs. An empty Categories set matches every category.
type Criteria struct {
	Search     string
	Categories []string
	Price      PriceRange
}

// Filter returns the products whose title contains Search (case-insensitive),
// whose category is selected and whose price lies within Price. Order is kept.
func Filter(products []domain.Product, c Criteria) []domain.Product {
	needle := strings.ToLower(strings.TrimSpace(c.Search))
	selected := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		selected[cat] = struct{}{}
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if needle != "" && !strings.Contains(strings.ToLower(p.Title), needle) {
			continue
		}
		if len(selected) > 0 {
			if _, ok := selected[p.Category]; !ok {
				continue
			}
		}
		if p.Price < c.Price.Min || p.Price > c.Price.Max {
			continue
		}
		out = append(out, p)
	}
	return out
}
