package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// CollectionName is the store collection holding idempotency entries.
const CollectionName = "idempotency"

// DefaultTTL is how long a key is remembered.
const DefaultTTL = 48 * time.Hour

// DefaultLease is how long an IN_PROGRESS key blocks retries.
const DefaultLease = 2 * time.Minute

// Record is the persisted state of one Idempotency-Key.
type Record struct {
	Key            string    `json:"key"`
	Status         string    `json:"status"`
	OrderID        string    `json:"orderId,omitempty"`
	ResponseBody   string    `json:"responseBody,omitempty"`
	ResponseStatus int       `json:"responseStatus,omitempty"` // e.g., 201
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ExpiresAt      int64     `json:"expiresAt"` // epoch seconds
	Note           string    `json:"note,omitempty"`
}

func (r Record) expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// stale reports an IN_PROGRESS record whose owner stopped updating it,
// e.g. after a crash mid-request or a failed MarkDone.
func (r Record) stale(now time.Time, lease time.Duration) bool {
	return r.Status == StatusInProgress && now.Sub(r.UpdatedAt) >= lease
}
