// Package realtime pushes notification events to users' live connections.
//
// A Hub keeps one broadcaster per connected user. Producers call
// EmitToUser, which is best effort: nothing is stored, and a user without a
// connection simply misses the event. Callers should depend on the Emitter
// interface so the process-local hub can later be replaced by one backed by
// a shared pub/sub.
//
//	hub := realtime.NewHub(realtime.WithLogger(log))
//	defer hub.Close()
//
//	r.Handle("/ws", realtime.NewWebsocketHandler(hub))
//
//	hub.EmitToUser(ctx, "user-1", "notification:created", payload)
package realtime
