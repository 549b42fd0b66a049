// Package broadcast provides type-safe in-process fan-out of messages to
// subscribers.
//
// Basic usage:
//
//	b := broadcast.NewMemoryBroadcaster[string](16)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	n, _ := b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//
//	for msg := range sub.Receive(ctx) {
//		fmt.Println(msg.Data)
//	}
//
// Broadcast never blocks: a subscriber whose buffer is full misses the
// message and the returned count excludes it. Subscribers are detached when
// their context ends, when they are closed, or when the broadcaster closes.
package broadcast
