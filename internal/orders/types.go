package orders

import (
	"time"

	"github.com/imrishuroy/go-table-orders/internal/menu"
)

// Section is a station that fulfils part of an order.
type Section string

const (
	SectionPub      Section = "pub"
	SectionPizzeria Section = "pizzeria"
)

// Sections lists every station in display order.
var Sections = []Section{SectionPub, SectionPizzeria}

// ParseSection returns the section named s.
func ParseSection(s string) (Section, bool) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// SectionFor maps a menu category to the station preparing it.
func SectionFor(c menu.Category) Section {
	if c == menu.CategoryPizzeria {
		return SectionPizzeria
	}
	return SectionPub
}

// SectionStatus is the fulfilment state of one section.
type SectionStatus string

const (
	SectionPending   SectionStatus = "pending"
	SectionReady     SectionStatus = "ready"
	SectionDelivered SectionStatus = "delivered"
)

// next returns the only status reachable from s.
func (s SectionStatus) next() (SectionStatus, bool) {
	switch s {
	case SectionPending:
		return SectionReady, true
	case SectionReady:
		return SectionDelivered, true
	}
	return "", false
}

// ParseSectionStatus returns the status named s.
func ParseSectionStatus(s string) (SectionStatus, bool) {
	switch st := SectionStatus(s); st {
	case SectionPending, SectionReady, SectionDelivered:
		return st, true
	}
	return "", false
}

// Status is the overall order state.
type Status string

// Order statuses. Archived records keep StatusCompleted and carry ArchivedAt.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// LineItem is a snapshot of a menu item at order time.
type LineItem struct {
	MenuItemID int           `json:"menuItemId"`
	Name       string        `json:"name"`
	Price      float64       `json:"price"`
	Quantity   int           `json:"quantity"`
	Category   menu.Category `json:"category"`
}

// Order is an active order, or a history record once ArchivedAt is set.
type Order struct {
	ID             string        `json:"id"`
	OrderNumber    int           `json:"orderNumber"`
	TableNumber    int           `json:"tableNumber"`
	Items          []LineItem    `json:"items"`
	CreatedAt      time.Time     `json:"createdAt"`
	PubStatus      SectionStatus `json:"pubStatus"`
	PizzeriaStatus SectionStatus `json:"pizzeriaStatus"`
	Status         Status        `json:"status"`
	DeliveredAt    *time.Time    `json:"deliveredAt,omitempty"`
	CanceledAt     *time.Time    `json:"canceledAt,omitempty"`
	ArchivedAt     *time.Time    `json:"archivedAt,omitempty"`
}

// UsesSection reports whether at least one item is prepared at sec.
func (o Order) UsesSection(sec Section) bool {
	for _, it := range o.Items {
		if SectionFor(it.Category) == sec {
			return true
		}
	}
	return false
}

// SectionStatus returns the status of sec.
func (o Order) SectionStatus(sec Section) SectionStatus {
	if sec == SectionPizzeria {
		return o.PizzeriaStatus
	}
	return o.PubStatus
}

func (o *Order) setSectionStatus(sec Section, st SectionStatus) {
	if sec == SectionPizzeria {
		o.PizzeriaStatus = st
		return
	}
	o.PubStatus = st
}

// FullyDelivered is true iff every section used by the order is delivered.
// Unused sections count as delivered.
func FullyDelivered(o Order) bool {
	for _, sec := range Sections {
		if o.UsesSection(sec) && o.SectionStatus(sec) != SectionDelivered {
			return false
		}
	}
	return true
}

func (o Order) clone() Order {
	c := o
	c.Items = append([]LineItem(nil), o.Items...)
	return c
}

func stamp(t time.Time) *time.Time { return &t }
