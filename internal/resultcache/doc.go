// Package resultcache implements the bounded cache a RabbitMQ broker
// uses to hold reply-queue messages that do not belong to the job a
// particular runJobSync call is waiting for.
//
// A single reply queue is shared by every client-side call waiting on
// results for one function, so while one call drains the queue it may
// see a result meant for a different, still-outstanding call. That
// result is stashed here, keyed by its correlation id, so a later probe
// from the rightful waiter can claim it without re-consuming the queue.
//
// The cache is bounded by both entry count and total stored-body bytes,
// whichever binds first. Eviction is oldest-insertion-first: the entry
// that has been sitting in the cache the longest is the first to go,
// regardless of whether it has been probed for (the cache has no notion
// of "read" — a probe either claims and removes an entry, or it isn't
// there).
package resultcache
