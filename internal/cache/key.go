package cache

import "strings"

const keySeparator = ":"

// partEscaper percent-encodes the separator (and the escape character
// itself) inside a part, so no part can forge a boundary.
var partEscaper = strings.NewReplacer("%", "%25", keySeparator, "%3A")

// Key is a hierarchical key. The last part of an entry key is the item id;
// everything before it is the feed prefix.
type Key []string

// NewKey builds a Key from parts.
func NewKey(parts ...string) Key {
	return Key(parts)
}

// Append returns a new key with parts added. k is never modified.
func (k Key) Append(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

// String encodes the key as colon separated parts. Colons inside a part are
// escaped, so distinct keys never encode to the same string.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = partEscaper.Replace(p)
	}
	return strings.Join(parts, keySeparator)
}

// rangePrefix is the encoded string every key strictly under k starts with.
func (k Key) rangePrefix() string {
	if len(k) == 0 {
		return ""
	}
	return k.String() + keySeparator
}
