package menu

import (
	"fmt"
	"sort"
	"sync"

	"github.com/imrishuroy/go-table-orders/internal/store"
)

// CollectionName is the store collection holding the catalog.
const CollectionName = "menu"

// Category is the station group a menu item is prepared at.
type Category string

const (
	CategoryPizzeria   Category = "pizzeria"
	CategoryPub        Category = "pub"
	CategoryPubEssen   Category = "pub-essen"
	CategoryPubTrinken Category = "pub-trinken"
)

// Categories is the closed set of known categories.
var Categories = []Category{
	CategoryPizzeria,
	CategoryPub,
	CategoryPubEssen,
	CategoryPubTrinken,
}

// ParseCategory returns the category named s, or false when s is not in the closed set.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Item is a catalog entry.
type Item struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
	Available   bool     `json:"available"`
}

// Catalog is a read-only view of the menu used when orders snapshot their items.
type Catalog struct {
	mu    sync.RWMutex
	items map[int]Item
}

// Load reads the catalog from l, seeding DefaultItems on first boot.
func Load(l store.Loader) (*Catalog, error) {
	var items []Item
	if err := l.Load(CollectionName, DefaultItems, &items); err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	return NewCatalog(items), nil
}

// NewCatalog builds a catalog from items; later entries win on duplicate ids.
func NewCatalog(items []Item) *Catalog {
	c := &Catalog{items: make(map[int]Item, len(items))}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

// Lookup returns the item with id.
func (c *Catalog) Lookup(id int) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// Available returns the items currently offered, ordered by id.
func (c *Catalog) Available() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if it.Available {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AvailableCategories counts distinct categories among available items.
func (c *Catalog) AvailableCategories() int {
	seen := map[Category]struct{}{}
	for _, it := range c.Available() {
		seen[it.Category] = struct{}{}
	}
	return len(seen)
}
