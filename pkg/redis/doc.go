// Package redis connects to Redis with go-redis/v9 for the cart services:
// exclusive leases (cartstore.RedisLocker), stock counters
// (inventory.RedisChecker) and event fan-out (events.RedisPublisher) all
// share the client returned by Connect.
//
// Config also carries the key and channel prefixes those components use.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
