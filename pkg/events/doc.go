// Package events publishes notifications about committed cart item changes.
//
// Every committed transition is announced on the topic for the state the
// item entered (TopicForState("locked") == "cart_item.locked"); quantity
// edits go to TopicQuantityUpdated. Payloads are JSON-encoded, normally an
// ItemChanged value.
//
// Two publishers are provided:
//
//   - MemoryPublisher delivers to in-process subscribers. A subscriber whose
//     buffer is full is dropped rather than blocking the publisher.
//   - RedisPublisher uses Redis pub/sub so other processes can listen.
//
// Basic usage:
//
//	pub := events.NewMemoryPublisher(16)
//	defer pub.Close()
//
//	sub := pub.Subscribe(ctx, events.TopicForState("purchased"))
//	defer sub.Close()
//
//	for msg := range sub.Receive() {
//	    var change events.ItemChanged
//	    _ = msg.Decode(&change)
//	}
//
// Publishing is fire-and-forget from the lifecycle package's point of view:
// errors are logged and never undo the change being announced.
package events
