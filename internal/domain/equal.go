package domain

import (
	"github.com/google/go-cmp/cmp"
)

// Equal reports whether a and b hold the same content, comparing nested
// values recursively. Top-level keys named in masked are ignored on both
// sides; nested objects are always compared in full.
func Equal(a, b Item, masked ...string) bool {
	if len(masked) == 0 {
		return cmp.Equal(map[string]any(a), map[string]any(b))
	}
	return cmp.Equal(mask(a, masked), mask(b, masked))
}

func mask(it Item, keys []string) map[string]any {
	out := make(map[string]any, len(it))
	for k, v := range it {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
