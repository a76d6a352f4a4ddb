package feed

import (
	"fmt"
	"time"

	"github.com/oriys/feedcache/internal/domain"
)

// stampedDates returns the fields the engine may have written on a cached
// entry like e. date_modified is stamped on every change; date_published
// only on approximated items, which never carry caller dates.
func stampedDates(e domain.Entry) []string {
	if e.ApproximateDate {
		return []string{domain.FieldPublished, domain.FieldModified}
	}
	return []string{domain.FieldModified}
}

// merge applies one submission and returns its outcome. On error neither
// cached nor pending is touched.
func (e *Engine) merge(now time.Time, sub domain.Submission) (string, error) {
	if sub.Item == nil {
		return "", ErrMissingID
	}
	item, err := domain.NormalizeItem(sub.Item)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	id := item.ID()
	if id == "" {
		return "", ErrMissingID
	}
	if e.pending.has(id) {
		return "", ErrDuplicateSubmission
	}
	if sub.ExpireAt != nil && !sub.ExpireAt.After(now) {
		return "", ErrExpiredSubmission
	}
	if sub.ApproximateDate && item.HasDates() {
		return "", ErrConflictingDatePolicy
	}

	entry := domain.Entry{Item: item, ApproximateDate: sub.ApproximateDate}
	if sub.ExpireAt != nil {
		at := *sub.ExpireAt
		entry.ExpireAt = &at
	}
	stamp := domain.FormatTimestamp(now)

	existing, ok := e.cached.get(id)
	if !ok {
		if entry.ApproximateDate {
			item[domain.FieldPublished] = stamp
		}
		e.pending.put(entry)
		return OutcomeAccepted, nil
	}

	if existing.ApproximateDate != entry.ApproximateDate {
		return "", ErrApproximationMismatch
	}
	if domain.Equal(item, existing.Item) {
		return OutcomeUnchanged, nil
	}
	// A difference confined to the engine's own stamps is not a change.
	if domain.Equal(item, existing.Item, stampedDates(entry)...) {
		return OutcomeUnchanged, nil
	}

	if entry.ApproximateDate {
		if published, ok := existing.Item[domain.FieldPublished]; ok {
			item[domain.FieldPublished] = published
		}
	}
	item[domain.FieldModified] = stamp
	e.cached.remove(id)
	e.pending.put(entry)
	return OutcomeReplaced, nil
}
