package orders

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-table-orders/internal/menu"
	"github.com/imrishuroy/go-table-orders/internal/store"
)

// Collection names in the data directory.
const (
	CollectionActive  = "orders"
	CollectionHistory = "orderHistory"
	CollectionCounter = "orderCounter"
)

// writeOrder is the sequence in which a commit persists collections.
var writeOrder = []string{CollectionCounter, CollectionHistory, CollectionActive}

// TableLimiter supplies the highest valid table number.
type TableLimiter interface {
	MaxTables() int
}

// Catalog resolves menu item snapshots.
type Catalog interface {
	Lookup(id int) (menu.Item, bool)
}

type state struct {
	active  []Order
	history []Order // newest first
	counter Allocator
}

func (s state) clone() state {
	c := state{
		active:  make([]Order, len(s.active)),
		history: make([]Order, len(s.history)),
		counter: s.counter,
	}
	for i, o := range s.active {
		c.active[i] = o.clone()
	}
	for i, o := range s.history {
		c.history[i] = o.clone()
	}
	return c
}

func (s *state) doc(name string) any {
	switch name {
	case CollectionActive:
		return s.active
	case CollectionHistory:
		return s.history
	default:
		return s.counter.Last()
	}
}

func (s *state) indexActive(id string) int {
	for i, o := range s.active {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (s *state) inHistory(id string) bool {
	for _, o := range s.history {
		if o.ID == id {
			return true
		}
	}
	return false
}

// lookup returns the index of the active order id, or the error an operation on it must report.
func (s *state) lookup(id string) (int, error) {
	if i := s.indexActive(id); i >= 0 {
		return i, nil
	}
	if s.inHistory(id) {
		return -1, fmt.Errorf("%w: order %s is already closed", ErrInvalidTransition, id)
	}
	return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// moveToHistory removes active[i] and puts it at the head of history.
func (s *state) moveToHistory(i int, o Order) {
	s.active = append(s.active[:i:i], s.active[i+1:]...)
	s.history = append([]Order{o}, s.history...)
}

// Repository owns the active orders, the history and the ticket counter.
// Every mutation runs under one lock and is persisted before it becomes visible.
type Repository struct {
	mu      sync.RWMutex
	st      state
	version uint64
	epoch   string

	store   store.Persister
	tables  TableLimiter
	catalog Catalog
	log     *zap.Logger
	nowFunc func() time.Time
	newID   func() string
}

// OpenRepository loads the collections from p, seeding the counter on first
// boot and dropping active orders that already reached history.
func OpenRepository(p store.Persister, tables TableLimiter, catalog Catalog, log *zap.Logger) (*Repository, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Repository{
		store:   p,
		tables:  tables,
		catalog: catalog,
		log:     log,
		nowFunc: time.Now,
		newID:   uuid.NewString,
		epoch:   uuid.NewString(),
	}

	active := []Order{}
	if err := p.Load(CollectionActive, []Order{}, &active); err != nil {
		return nil, fmt.Errorf("load active orders: %w", err)
	}
	history := []Order{}
	if err := p.Load(CollectionHistory, []Order{}, &history); err != nil {
		return nil, fmt.Errorf("load order history: %w", err)
	}
	var last int
	if err := p.Load(CollectionCounter, seedCounter(active, history), &last); err != nil {
		return nil, fmt.Errorf("load order counter: %w", err)
	}
	r.st = state{active: active, history: history, counter: NewAllocator(last)}

	if err := r.reconcile(); err != nil {
		return nil, err
	}
	return r, nil
}

// reconcile repairs a crash between the history and active writes of a move.
func (r *Repository) reconcile() error {
	kept := r.st.active[:0:0]
	for _, o := range r.st.active {
		if r.st.inHistory(o.ID) {
			r.log.Warn("dropping active order already in history", zap.String("order_id", o.ID))
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == len(r.st.active) {
		return nil
	}
	if err := r.store.Save(CollectionActive, kept); err != nil {
		return fmt.Errorf("reconcile active orders: %w", err)
	}
	r.st.active = kept
	return nil
}

// mutate runs fn on a copy of the state and commits the copy once every
// collection fn reports as dirty has been written.
func (r *Repository) mutate(fn func(st *state, now time.Time) ([]string, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.st.clone()
	dirty, err := fn(&next, r.nowFunc())
	if err != nil {
		return err
	}
	if len(dirty) == 0 {
		return nil
	}
	if err := r.persist(&next, dirty); err != nil {
		return err
	}
	r.st = next
	r.version++
	return nil
}

func (r *Repository) persist(next *state, dirty []string) error {
	want := make(map[string]bool, len(dirty))
	for _, name := range dirty {
		want[name] = true
	}

	var written []string
	for _, name := range writeOrder {
		if !want[name] {
			continue
		}
		if err := r.store.Save(name, next.doc(name)); err != nil {
			r.log.Error("persist orders failed", zap.String("collection", name), zap.Error(err))
			r.restore(written)
			return fmt.Errorf("persist %s: %w", name, err)
		}
		written = append(written, name)
	}
	return nil
}

// restore rewrites the committed state of collections already overwritten by a failed commit.
func (r *Repository) restore(names []string) {
	for _, name := range names {
		if err := r.store.Save(name, r.st.doc(name)); err != nil {
			r.log.Error("restore after failed commit", zap.String("collection", name), zap.Error(err))
		}
	}
}

// Create validates and stores a new pending order.
func (r *Repository) Create(tableNumber int, items []LineItem) (Order, error) {
	if limit := r.tables.MaxTables(); tableNumber < 1 || tableNumber > limit {
		return Order{}, invalid("tableNumber", "must be between 1 and %d", limit)
	}
	if len(items) == 0 {
		return Order{}, invalid("items", "must not be empty")
	}
	snap := make([]LineItem, len(items))
	for i, it := range items {
		li, err := r.snapshot(i, it)
		if err != nil {
			return Order{}, err
		}
		snap[i] = li
	}

	var created Order
	err := r.mutate(func(st *state, now time.Time) ([]string, error) {
		created = Order{
			ID:             r.newID(),
			OrderNumber:    st.counter.Next(),
			TableNumber:    tableNumber,
			Items:          snap,
			CreatedAt:      now,
			PubStatus:      SectionPending,
			PizzeriaStatus: SectionPending,
			Status:         StatusPending,
		}
		st.active = append(st.active, created)
		return []string{CollectionCounter, CollectionActive}, nil
	})
	if err != nil {
		return Order{}, err
	}
	return created.clone(), nil
}

func (r *Repository) snapshot(i int, it LineItem) (LineItem, error) {
	field := fmt.Sprintf("items[%d]", i)
	if it.Quantity < 1 {
		return LineItem{}, invalid(field+".quantity", "must be at least 1")
	}
	if known, ok := r.lookupItem(it.MenuItemID); ok {
		it.Name = known.Name
		it.Price = known.Price
		it.Category = known.Category
	}
	if it.Price < 0 {
		return LineItem{}, invalid(field+".price", "must not be negative")
	}
	if _, ok := menu.ParseCategory(string(it.Category)); !ok {
		return LineItem{}, invalid(field+".category", "unknown category %q", it.Category)
	}
	return it, nil
}

func (r *Repository) lookupItem(id int) (menu.Item, bool) {
	if r.catalog == nil {
		return menu.Item{}, false
	}
	return r.catalog.Lookup(id)
}

// ListActive returns pending orders oldest first. A non-empty section keeps
// only orders with at least one item prepared there.
func (r *Repository) ListActive(section Section) []Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Order, 0, len(r.st.active))
	for _, o := range r.st.active {
		if o.Status != StatusPending {
			continue
		}
		if section != "" && !o.UsesSection(section) {
			continue
		}
		out = append(out, o.clone())
	}
	return out
}

// Get returns the active order id.
func (r *Repository) Get(id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.st.indexActive(id)
	if i < 0 {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.st.active[i].clone(), nil
}

// HistoryFilter selects history records.
type HistoryFilter string

const (
	FilterAll       HistoryFilter = "all"
	FilterToday     HistoryFilter = "today"
	FilterCompleted HistoryFilter = "completed"
	FilterCanceled  HistoryFilter = "canceled"
)

// ParseHistoryFilter accepts an empty string as FilterAll.
func ParseHistoryFilter(s string) (HistoryFilter, error) {
	switch f := HistoryFilter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterToday, FilterCompleted, FilterCanceled:
		return f, nil
	}
	return "", invalid("filter", "unknown filter %q", s)
}

// History returns the matching history records newest first by creation time.
func (r *Repository) History(f HistoryFilter) []Order {
	r.mu.RLock()
	now := r.nowFunc()
	out := make([]Order, 0, len(r.st.history))
	for _, o := range r.st.history {
		if matches(f, o, now) {
			out = append(out, o.clone())
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func matches(f HistoryFilter, o Order, now time.Time) bool {
	switch f {
	case FilterToday:
		y1, m1, d1 := o.CreatedAt.In(now.Location()).Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case FilterCompleted:
		return o.Status == StatusCompleted
	case FilterCanceled:
		return o.Status == StatusCanceled
	}
	return true
}

// ActiveSummary counts pending orders and the distinct tables they belong to.
func (r *Repository) ActiveSummary() (orders, tables int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[int]struct{}{}
	for _, o := range r.st.active {
		if o.Status != StatusPending {
			continue
		}
		orders++
		seen[o.TableNumber] = struct{}{}
	}
	return orders, len(seen)
}

// Version increases with every committed mutation.
func (r *Repository) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Epoch is unique per OpenRepository. Version restarts at zero on every
// open, so only the pair (Epoch, Version) names a committed state.
func (r *Repository) Epoch() string {
	return r.epoch
}

// LastOrderNumber returns the most recently allocated ticket number.
func (r *Repository) LastOrderNumber() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.counter.Last()
}
