// Package inventory answers "is there enough stock?" before an item is
// purchased. It only reads stock levels; reserving or decrementing stock
// belongs to the order pipeline.
//
// Memory is an in-process map for tests and local runs, RedisChecker reads
// integer counters from Redis, and CheckerFunc adapts any function.
package inventory
