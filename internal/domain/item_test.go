package domain

import (
	"testing"
	"time"
)

func TestNormalizeItem(t *testing.T) {
	type payload struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}

	item, err := NormalizeItem(payload{ID: "1", Count: 3})
	if err != nil {
		t.Fatalf("NormalizeItem failed: %v", err)
	}
	if item.ID() != "1" {
		t.Fatalf("ID() = %q, want %q", item.ID(), "1")
	}
	if got, ok := item["count"].(float64); !ok || got != 3 {
		t.Fatalf("count = %#v, want float64(3)", item["count"])
	}

	if _, err := NormalizeItem([]string{"not", "an", "object"}); err == nil {
		t.Fatal("expected error for non-object item")
	}
	if _, err := NormalizeItem(nil); err == nil {
		t.Fatal("expected error for null item")
	}
}

func TestNormalizeItemDoesNotAlias(t *testing.T) {
	src := Item{"id": "1", "tags": []any{"a"}}
	item, err := NormalizeItem(src)
	if err != nil {
		t.Fatalf("NormalizeItem failed: %v", err)
	}
	item["id"] = "2"
	item["tags"].([]any)[0] = "b"
	if src.ID() != "1" || src["tags"].([]any)[0] != "a" {
		t.Fatalf("source item mutated: %#v", src)
	}
}

func TestItemDates(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"none", Item{"id": "1"}, false},
		{"published", Item{"id": "1", FieldPublished: "2024-01-01T00:00:00.000Z"}, true},
		{"modified", Item{"id": "1", FieldModified: "2024-01-01T00:00:00.000Z"}, true},
		{"explicit null", Item{"id": "1", FieldPublished: nil}, false},
	}

	for _, tt := range tests {
		if got := tt.item.HasDates(); got != tt.want {
			t.Fatalf("%s: HasDates() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 123456789, time.FixedZone("CET", 3600))
	if got, want := FormatTimestamp(ts), "2024-03-05T06:08:09.123Z"; got != want {
		t.Fatalf("FormatTimestamp = %q, want %q", got, want)
	}
}

func TestEqual(t *testing.T) {
	base := Item{
		"id":           "1",
		"url":          "https://x/1",
		"tags":         []any{"a", "b"},
		"author":       map[string]any{"name": "n"},
		FieldPublished: "2024-01-01T00:00:00.000Z",
	}

	tests := []struct {
		name   string
		other  Item
		masked []string
		want   bool
	}{
		{
			name:  "identical",
			other: Item{"id": "1", "url": "https://x/1", "tags": []any{"a", "b"}, "author": map[string]any{"name": "n"}, FieldPublished: "2024-01-01T00:00:00.000Z"},
			want:  true,
		},
		{
			name:  "nested difference",
			other: Item{"id": "1", "url": "https://x/1", "tags": []any{"a", "b"}, "author": map[string]any{"name": "m"}, FieldPublished: "2024-01-01T00:00:00.000Z"},
			want:  false,
		},
		{
			name:  "missing published",
			other: Item{"id": "1", "url": "https://x/1", "tags": []any{"a", "b"}, "author": map[string]any{"name": "n"}},
			want:  false,
		},
		{
			name:   "missing published masked",
			other:  Item{"id": "1", "url": "https://x/1", "tags": []any{"a", "b"}, "author": map[string]any{"name": "n"}},
			masked: []string{FieldPublished},
			want:   true,
		},
		{
			name:   "mask does not hide other fields",
			other:  Item{"id": "1", "url": "https://x/2", "tags": []any{"a", "b"}, "author": map[string]any{"name": "n"}},
			masked: []string{FieldPublished},
			want:   false,
		},
	}

	for _, tt := range tests {
		if got := Equal(base, tt.other, tt.masked...); got != tt.want {
			t.Fatalf("%s: Equal = %v, want %v", tt.name, got, tt.want)
		}
	}
	if _, ok := base[FieldPublished]; !ok {
		t.Fatal("masking must not mutate the compared item")
	}
}

func TestEntryExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := now.Add(time.Hour)

	e := Entry{Item: Item{"id": "1"}, ExpireAt: &at}
	if e.Expired(now) {
		t.Fatal("entry should be alive before expireAt")
	}
	if !e.Expired(at) {
		t.Fatal("entry should be dead exactly at expireAt")
	}
	if got := e.TTL(now); got != time.Hour {
		t.Fatalf("TTL = %v, want 1h", got)
	}

	forever := Entry{Item: Item{"id": "2"}}
	if forever.Expired(now.Add(1000 * time.Hour)) {
		t.Fatal("entry without expireAt never expires")
	}
	if forever.TTL(now) != 0 {
		t.Fatal("entry without expireAt has no TTL")
	}
}
