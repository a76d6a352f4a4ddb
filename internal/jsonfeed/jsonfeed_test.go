package jsonfeed

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/oriys/feedcache/internal/domain"
)

func TestRenderEnvelope(t *testing.T) {
	meta := Metadata{
		Title:       "Example",
		HomePageURL: "https://x/",
		FeedURL:     "https://x/feed.json",
	}
	items := []domain.Item{{"id": "2"}, {"id": "1", "url": "https://x/1"}}

	data, err := Render(meta, items)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"version":"https://jsonfeed.org/version/1.1","title":"Example"`) {
		t.Fatalf("unexpected document prefix: %s", data)
	}

	var doc struct {
		Version     string           `json:"version"`
		HomePageURL string           `json:"home_page_url"`
		Items       []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	if doc.HomePageURL != "https://x/" {
		t.Fatalf("home_page_url = %q", doc.HomePageURL)
	}
	if len(doc.Items) != 2 || doc.Items[0]["id"] != "2" || doc.Items[1]["id"] != "1" {
		t.Fatalf("items out of order: %+v", doc.Items)
	}
}

func TestRenderEmptyItems(t *testing.T) {
	data, err := Render(Metadata{Title: "Empty"}, nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasSuffix(string(data), `"items":[]}`) {
		t.Fatalf("expected empty items array, got %s", data)
	}
}

func TestRenderDeterministic(t *testing.T) {
	items := []domain.Item{{"id": "1", "b": 1.0, "a": "x", "c": map[string]any{"z": true, "y": nil}}}
	first, _ := Render(Metadata{Title: "T"}, items)
	second, _ := Render(Metadata{Title: "T"}, items)
	if string(first) != string(second) {
		t.Fatalf("render not deterministic:\n%s\n%s", first, second)
	}
}

func TestMetadataValidate(t *testing.T) {
	if err := (Metadata{}).Validate(); err == nil {
		t.Fatal("expected error for missing title")
	}
	if err := (Metadata{Title: "ok"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
