// Package notification exposes the consumer HTTP surface of notifykit:
// listing a user's notifications, read state and unread counts, the
// dead-letter view of the delivery queue and the realtime websocket.
//
// Authentication happens upstream. Requests under /notifications must carry
// the caller's id in the X-User-ID header and are rejected with 401
// otherwise. The /admin routes are mounted only together with
// RouterOptions.AdminMiddleware, typically RequireAdminToken.
package notification
