package cache

import "context"

// Pair is one listed entry. Key is the encoded key without any backend
// namespace.
type Pair struct {
	Key   string
	Value []byte
}

// PageFunc returns up to limit pairs with keys strictly greater than after,
// in key order.
type PageFunc func(ctx context.Context, after string, limit int) ([]Pair, error)

// Iterator walks a listing page by page. Each page resumes from the last key
// seen, so paging restarts cleanly after a failed fetch.
type Iterator struct {
	fetch    PageFunc
	pageSize int

	page  []Pair
	pos   int
	after string
	done  bool
	cur   Pair
	err   error
}

// NewIterator returns an Iterator that calls fetch for each page. A page
// shorter than pageSize ends the listing.
func NewIterator(fetch PageFunc, pageSize int) *Iterator {
	if pageSize <= 0 || pageSize > MaxAtomicOps {
		pageSize = MaxAtomicOps
	}
	return &Iterator{fetch: fetch, pageSize: pageSize}
}

// Next advances to the next pair, fetching a new page when needed.
func (it *Iterator) Next(ctx context.Context) bool {
	for it.pos >= len(it.page) {
		if it.done || it.err != nil {
			return false
		}
		page, err := it.fetch(ctx, it.after, it.pageSize)
		if err != nil {
			it.err = err
			return false
		}
		if len(page) < it.pageSize {
			it.done = true
		}
		it.page, it.pos = page, 0
		if len(page) > 0 {
			it.after = page[len(page)-1].Key
		}
	}
	it.cur = it.page[it.pos]
	it.pos++
	return true
}

// Pair returns the pair Next moved to.
func (it *Iterator) Pair() Pair {
	return it.cur
}

// Err returns the first fetch error, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Collect drains the iterator.
func (it *Iterator) Collect(ctx context.Context) ([]Pair, error) {
	var out []Pair
	for it.Next(ctx) {
		out = append(out, it.Pair())
	}
	return out, it.Err()
}
