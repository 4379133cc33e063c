package orders

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-table-orders/internal/events"
)

// ArchivePolicy decides whether a fully delivered order leaves the active set on its own.
type ArchivePolicy string

const (
	ArchiveManual ArchivePolicy = "manual"
	ArchiveAuto   ArchivePolicy = "auto"
)

// ParseArchivePolicy accepts an empty string as ArchiveManual.
func ParseArchivePolicy(s string) (ArchivePolicy, error) {
	switch p := ArchivePolicy(s); p {
	case "", ArchiveManual:
		return ArchiveManual, nil
	case ArchiveAuto:
		return p, nil
	}
	return "", fmt.Errorf("unknown archive policy %q", s)
}

// Service drives orders through the section and overall state machines.
// Events are emitted only after a change has been committed.
type Service struct {
	repo   *Repository
	policy ArchivePolicy
	notify events.Notifier
	log    *zap.Logger
}

// NewService wires the lifecycle engine on top of repo.
func NewService(repo *Repository, policy ArchivePolicy, notify events.Notifier, log *zap.Logger) *Service {
	if notify == nil {
		notify = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if policy == "" {
		policy = ArchiveManual
	}
	return &Service{repo: repo, policy: policy, notify: notify, log: log}
}

// Create stores a new order and announces it.
func (s *Service) Create(tableNumber int, items []LineItem) (Order, error) {
	o, err := s.repo.Create(tableNumber, items)
	if err != nil {
		return Order{}, err
	}
	s.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.Int("order_number", o.OrderNumber),
		zap.Int("table_number", o.TableNumber))
	s.emit(events.TypeOrderCreated, o, "")
	return o, nil
}

// UpdateSectionStatus moves one section a single step forward.
func (s *Service) UpdateSectionStatus(id string, sec Section, target SectionStatus) (Order, error) {
	if _, ok := ParseSection(string(sec)); !ok {
		return Order{}, invalid("section", "unknown section %q", sec)
	}
	if _, ok := ParseSectionStatus(string(target)); !ok {
		return Order{}, invalid("status", "unknown status %q", target)
	}

	var (
		updated      Order
		autoArchived bool
	)
	err := s.repo.mutate(func(st *state, now time.Time) ([]string, error) {
		i, err := st.lookup(id)
		if err != nil {
			return nil, err
		}
		o := st.active[i]
		if !o.UsesSection(sec) {
			return nil, fmt.Errorf("%w: order %s has no %s items", ErrInvalidTransition, id, sec)
		}
		cur := o.SectionStatus(sec)
		if next, ok := cur.next(); !ok || next != target {
			return nil, fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, sec, cur, target)
		}
		o.setSectionStatus(sec, target)

		if s.policy == ArchiveAuto && FullyDelivered(o) {
			o = archived(o, now)
			st.moveToHistory(i, o)
			updated, autoArchived = o, true
			return []string{CollectionHistory, CollectionActive}, nil
		}
		st.active[i] = o
		updated = o
		return []string{CollectionActive}, nil
	})
	if err != nil {
		return Order{}, err
	}

	s.log.Info("section status updated",
		zap.String("order_id", id),
		zap.String("section", string(sec)),
		zap.String("status", string(target)))
	s.emit(events.TypeOrderSectionUpdated, updated, sec)
	if autoArchived {
		s.log.Info("order archived", zap.String("order_id", id))
		s.emit(events.TypeOrderArchived, updated, "")
	}
	return updated.clone(), nil
}

// Archive moves a fully delivered order into history.
func (s *Service) Archive(id string) (Order, error) {
	var moved Order
	err := s.repo.mutate(func(st *state, now time.Time) ([]string, error) {
		i, err := st.lookup(id)
		if err != nil {
			return nil, err
		}
		if !FullyDelivered(st.active[i]) {
			return nil, fmt.Errorf("%w: %s", ErrNotReady, id)
		}
		moved = archived(st.active[i], now)
		st.moveToHistory(i, moved)
		return []string{CollectionHistory, CollectionActive}, nil
	})
	if err != nil {
		return Order{}, err
	}

	s.log.Info("order archived", zap.String("order_id", id), zap.Int("order_number", moved.OrderNumber))
	s.emit(events.TypeOrderArchived, moved, "")
	return moved.clone(), nil
}

// ArchiveAllDelivered moves every fully delivered order in one commit and
// returns how many were moved.
func (s *Service) ArchiveAllDelivered() (int, error) {
	var moved []Order
	err := s.repo.mutate(func(st *state, now time.Time) ([]string, error) {
		kept := make([]Order, 0, len(st.active))
		for _, o := range st.active {
			if FullyDelivered(o) {
				moved = append(moved, archived(o, now))
				continue
			}
			kept = append(kept, o)
		}
		if len(moved) == 0 {
			return nil, nil
		}
		head := make([]Order, 0, len(moved)+len(st.history))
		for i := len(moved) - 1; i >= 0; i-- {
			head = append(head, moved[i])
		}
		st.history = append(head, st.history...)
		st.active = kept
		return []string{CollectionHistory, CollectionActive}, nil
	})
	if err != nil {
		return 0, err
	}

	if len(moved) > 0 {
		s.log.Info("archived delivered orders", zap.Int("count", len(moved)))
	}
	for _, o := range moved {
		s.emit(events.TypeOrderArchived, o, "")
	}
	return len(moved), nil
}

// Cancel closes an order that has not been fully delivered.
func (s *Service) Cancel(id string) (Order, error) {
	var canceled Order
	err := s.repo.mutate(func(st *state, now time.Time) ([]string, error) {
		i, err := st.lookup(id)
		if err != nil {
			return nil, err
		}
		o := st.active[i]
		if o.Status != StatusPending || FullyDelivered(o) {
			return nil, fmt.Errorf("%w: order %s is already delivered", ErrInvalidTransition, id)
		}
		o.Status = StatusCanceled
		o.CanceledAt = stamp(now)
		o.ArchivedAt = stamp(now)
		canceled = o
		st.moveToHistory(i, o)
		return []string{CollectionHistory, CollectionActive}, nil
	})
	if err != nil {
		return Order{}, err
	}

	s.log.Info("order canceled", zap.String("order_id", id), zap.Int("order_number", canceled.OrderNumber))
	s.emit(events.TypeOrderCanceled, canceled, "")
	return canceled.clone(), nil
}

// Repository exposes the read side.
func (s *Service) Repository() *Repository { return s.repo }

// Policy returns the configured archive policy.
func (s *Service) Policy() ArchivePolicy { return s.policy }

func (s *Service) emit(typ string, o Order, sec Section) {
	ev := events.Event{
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TableNumber: o.TableNumber,
		Status:      string(o.Status),
		OccurredAt:  s.repo.nowFunc().UTC(),
	}
	if sec != "" {
		ev.Section = string(sec)
		ev.SectionStatus = string(o.SectionStatus(sec))
	}
	s.notify.Notify(ev)
}

// archived returns o closed as completed at now.
func archived(o Order, now time.Time) Order {
	o.Status = StatusCompleted
	if o.DeliveredAt == nil {
		o.DeliveredAt = stamp(now)
	}
	o.ArchivedAt = stamp(now)
	return o
}
