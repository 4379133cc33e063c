package validation

// Item represents a single order line item.
type Item struct {
	MenuItemID int      `json:"menuItemId" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	Price      *float64 `json:"price" validate:"required,gte=0"`     // price per unit, 0 allowed
	Quantity   int      `json:"quantity" validate:"required,min=1"`  // must be >= 1
	Category   string   `json:"category" validate:"required,category"`
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	TableNumber int    `json:"tableNumber" validate:"required,min=1"`
	Items       []Item `json:"items" validate:"required,min=1,dive"` // at least one item
}

// SectionStatusRequest is the payload for PUT /orders/:id/section-status
type SectionStatusRequest struct {
	Section string `json:"section" validate:"required,section"`
	Status  string `json:"status" validate:"required,oneof=ready delivered"`
}
