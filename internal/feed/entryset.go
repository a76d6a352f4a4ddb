package feed

import (
	"container/list"
	"time"

	"github.com/oriys/feedcache/internal/domain"
)

// entrySet is an insertion-ordered set of entries keyed by item id.
type entrySet struct {
	order *list.List
	index map[string]*list.Element
}

func newEntrySet() *entrySet {
	return &entrySet{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

func (s *entrySet) get(id string) (domain.Entry, bool) {
	el, ok := s.index[id]
	if !ok {
		return domain.Entry{}, false
	}
	return el.Value.(domain.Entry), true
}

func (s *entrySet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// put appends entry, replacing any entry with the same id.
func (s *entrySet) put(entry domain.Entry) {
	s.remove(entry.ID())
	s.index[entry.ID()] = s.order.PushBack(entry)
}

func (s *entrySet) remove(id string) {
	if el, ok := s.index[id]; ok {
		s.order.Remove(el)
		delete(s.index, id)
	}
}

func (s *entrySet) len() int {
	return s.order.Len()
}

func (s *entrySet) entries() []domain.Entry {
	out := make([]domain.Entry, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(domain.Entry))
	}
	return out
}

// prune drops entries that are expired at now and returns how many it removed.
func (s *entrySet) prune(now time.Time) int {
	n := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(domain.Entry)
		if entry.Expired(now) {
			s.order.Remove(el)
			delete(s.index, entry.ID())
			n++
		}
		el = next
	}
	return n
}

// drainInto appends every entry to dst in order and empties s.
func (s *entrySet) drainInto(dst *entrySet) {
	for el := s.order.Front(); el != nil; el = el.Next() {
		dst.put(el.Value.(domain.Entry))
	}
	s.order.Init()
	s.index = make(map[string]*list.Element)
}
