// Package cache stores HTTP responses for the cache middleware.
//
// Entries are keyed by Key, a blake2b-256 digest of the request method,
// URL and selected headers. MemoryStore keeps entries in process;
// RedisStore keeps them in Redis as JSON and doubles as a lifecycle
// component.
package cache
