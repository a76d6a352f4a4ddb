package domain

import "time"

// Entry is the unit of cache storage: one item plus its expiry and
// date-derivation metadata. At most one Entry exists per item id under a
// feed prefix.
type Entry struct {
	Item            Item       `json:"item"`
	ExpireAt        *time.Time `json:"expireAt,omitempty"`
	ApproximateDate bool       `json:"approximateDate"`
}

// ID returns the id of the entry's item.
func (e Entry) ID() string {
	return e.Item.ID()
}

// Expired reports whether the entry is logically dead at now.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpireAt != nil && !now.Before(*e.ExpireAt)
}

// TTL returns the time left until ExpireAt relative to now, or 0 when the
// entry never expires.
func (e Entry) TTL(now time.Time) time.Duration {
	if e.ExpireAt == nil {
		return 0
	}
	return e.ExpireAt.Sub(now)
}

// Submission is one item offered to the merge engine.
type Submission struct {
	Item            Item       `json:"item"`
	ExpireAt        *time.Time `json:"expireAt,omitempty"`
	ApproximateDate bool       `json:"approximateDate,omitempty"`
}
