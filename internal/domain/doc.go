// Package domain holds the feed item and cache entry types shared by the
// merge engine, the cache backends and the HTTP surface.
package domain
