package events

import "time"

// Event types
const (
	TypeOrderCreated        = "order.created"
	TypeOrderSectionUpdated = "order.section_updated"
	TypeOrderArchived       = "order.archived"
	TypeOrderCanceled       = "order.canceled"
)

// Event describes a committed lifecycle change of one order.
type Event struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	OrderNumber   int       `json:"order_number"`
	TableNumber   int       `json:"table_number"`
	Section       string    `json:"section,omitempty"`
	SectionStatus string    `json:"section_status,omitempty"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier accepts events without blocking the caller.
type Notifier interface {
	Notify(ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(Event) {}
