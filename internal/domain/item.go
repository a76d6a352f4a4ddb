package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSON Feed 1.1 item keys the merge engine interprets. Everything else in an
// item is opaque content compared only for equality.
const (
	FieldID        = "id"
	FieldPublished = "date_published"
	FieldModified  = "date_modified"
)

// TimestampLayout renders engine-derived dates as UTC ISO-8601 with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Item is a single feed item as a decoded JSON object.
type Item map[string]any

// NormalizeItem converts v into an Item by round-tripping it through JSON, so
// submitted items and items decoded from the cache share one value domain
// (float64 numbers, map[string]any objects, []any arrays). The result never
// aliases v.
func NormalizeItem(v any) (Item, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("item must be a JSON object")
	}
	return item, nil
}

// ID returns the item's id, or "" when it is missing or not a string.
func (it Item) ID() string {
	id, _ := it[FieldID].(string)
	return id
}

// Published returns the item's date_published value if present.
func (it Item) Published() (string, bool) {
	return it.stringField(FieldPublished)
}

// Modified returns the item's date_modified value if present.
func (it Item) Modified() (string, bool) {
	return it.stringField(FieldModified)
}

// HasDates reports whether the item carries a published or modified date.
func (it Item) HasDates() bool {
	return it[FieldPublished] != nil || it[FieldModified] != nil
}

func (it Item) stringField(key string) (string, bool) {
	v, ok := it[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FormatTimestamp renders t the way derived item dates are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
