package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddReadsStdin(t *testing.T) {
	out, err := run(t, `[{"item": {"id": "a", "title": "A"}, "approximateDate": true}]`,
		"add", "news", "--title", "News")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	var doc struct {
		Title string           `json:"title"`
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if doc.Title != "News" || len(doc.Items) != 1 || doc.Items[0]["id"] != "a" {
		t.Fatalf("unexpected document: %s", out)
	}
	if _, ok := doc.Items[0]["date_published"]; !ok {
		t.Errorf("approximated item should carry date_published: %s", out)
	}
}

func TestAddReadsFileWithConfiguredFeed(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "feedcache.yaml")
	if err := os.WriteFile(cfgPath, []byte("feeds:\n  blog:\n    title: My Blog\n    feed_url: https://example.com/feed.json\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	subsPath := filepath.Join(dir, "subs.json")
	if err := os.WriteFile(subsPath, []byte(`[{"item": {"id": "p1"}}]`), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "--config", cfgPath, "add", "blog", subsPath, "--pretty")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, `"title": "My Blog"`) || !strings.Contains(out, `"feed_url": "https://example.com/feed.json"`) {
		t.Errorf("configured metadata missing:\n%s", out)
	}
}

func TestAddRejectsInvalidSubmission(t *testing.T) {
	_, err := run(t, `[{"item": {"title": "no id"}}]`, "add", "news")
	if err == nil || !strings.Contains(err.Error(), "id is required") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestAddReportsAppliedSubmissions(t *testing.T) {
	out, err := run(t, `[{"item": {"id": "a"}}, {"item": {"id": "b"}}, {"item": {"id": "a"}}]`, "add", "news")
	if err == nil {
		t.Fatal("expected duplicate submission error")
	}
	if !strings.Contains(err.Error(), "2 earlier submission(s) applied") {
		t.Errorf("error does not report applied submissions: %v", err)
	}
	if out != "" {
		t.Errorf("no document should be printed on error, got %s", out)
	}
}

func TestAddRejectsMalformedInput(t *testing.T) {
	if _, err := run(t, `{"not": "an array"}`, "add", "news"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRenderEmptyFeed(t *testing.T) {
	out, err := run(t, "", "render", "empty")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `"items":[]`) {
		t.Errorf("expected empty items array: %s", out)
	}
}

func TestSweepMemory(t *testing.T) {
	out, err := run(t, "", "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "Removed 0 expired entries") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestUnknownStoreFlag(t *testing.T) {
	if _, err := run(t, "", "--store", "etcd", "render", "x"); err == nil {
		t.Fatal("expected config validation error")
	}
}
