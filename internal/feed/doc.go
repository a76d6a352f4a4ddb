// Package feed reconciles submitted feed items against a persistent cache and
// renders the merged result as a JSON Feed.
//
// An Engine is one session over one cache prefix. The first Add or Render
// loads every live entry under the prefix; Add validates each submission and
// decides whether it replaces the cached entry, is a no-op, or is rejected;
// Render prunes expired entries, flushes accepted submissions to the cache in
// atomic batches and serializes cached items followed by items added in the
// session.
//
// A resubmission that differs from its cached entry replaces it and gets
// date_modified set to now; approximated items also keep the cached
// date_published. The no-op check ignores date_modified, and date_published
// for approximated items, so the engine's own stamps never cause a re-bump.
//
// Expired submissions are rejected with ErrExpiredSubmission. A multi-item
// Add is not atomic: submissions before a failing one stay applied, and the
// returned *SubmissionError says which one failed.
//
// An Engine is not safe for concurrent use. Engines in different processes
// sharing a prefix race with last-writer-wins semantics per key.
package feed
