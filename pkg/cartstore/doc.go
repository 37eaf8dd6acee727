// Package cartstore provides the persistence side of the cart item
// lifecycle: stores implementing lifecycle.Store and lockers implementing
// lifecycle.Locker.
//
// MemoryStore and MemoryLocker keep everything in process and back the
// tests. PostgresStore keeps items in the cart_items table and commits with
// "UPDATE ... WHERE version = $n". RedisLocker grants leases as SET NX keys
// whose TTL is the stale threshold.
//
// Both stores can list items whose checkout lock has lapsed, which is what
// the sweeper works from.
package cartstore
