package feed

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/oriys/feedcache/internal/domain"
)

func entryIDs(s *entrySet) []string {
	var out []string
	for _, e := range s.entries() {
		out = append(out, e.ID())
	}
	return out
}

func TestEntrySet_OrderAndReplace(t *testing.T) {
	s := newEntrySet()
	for _, id := range []string{"a", "b", "c"} {
		s.put(domain.Entry{Item: domain.Item{"id": id}})
	}
	s.put(domain.Entry{Item: domain.Item{"id": "a", "v": 2.0}})

	if diff := cmp.Diff([]string{"b", "c", "a"}, entryIDs(s)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if e, _ := s.get("a"); e.Item["v"] != 2.0 {
		t.Fatalf("replacement not stored: %v", e.Item)
	}

	s.remove("c")
	s.remove("missing")
	if s.has("c") || s.len() != 2 {
		t.Fatalf("remove failed: %v", entryIDs(s))
	}
}

func TestEntrySet_PruneAndDrain(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	s := newEntrySet()
	s.put(domain.Entry{Item: domain.Item{"id": "dead"}, ExpireAt: &past})
	s.put(domain.Entry{Item: domain.Item{"id": "edge"}, ExpireAt: &now})
	s.put(domain.Entry{Item: domain.Item{"id": "alive"}, ExpireAt: &future})
	s.put(domain.Entry{Item: domain.Item{"id": "forever"}})

	if n := s.prune(now); n != 2 {
		t.Fatalf("expected 2 pruned entries, got %d", n)
	}

	dst := newEntrySet()
	dst.put(domain.Entry{Item: domain.Item{"id": "first"}})
	s.drainInto(dst)

	if s.len() != 0 || s.has("alive") {
		t.Fatal("drained set must be empty")
	}
	if diff := cmp.Diff([]string{"first", "alive", "forever"}, entryIDs(dst)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestChunk(t *testing.T) {
	got := chunk([]int{1, 2, 3, 4, 5}, 2)
	if diff := cmp.Diff([][]int{{1, 2}, {3, 4}, {5}}, got); diff != "" {
		t.Fatalf("chunk mismatch (-want +got):\n%s", diff)
	}
	if chunk([]int{}, 3) != nil {
		t.Fatal("chunking nothing yields no batches")
	}
	if got := chunk([]int{1, 2}, 2); len(got) != 1 {
		t.Fatalf("exact fit should be one batch, got %d", len(got))
	}
}
