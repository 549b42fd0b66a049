// Package sender holds one Sender per notification channel and a Registry
// that routes deliveries to them.
//
//	registry := sender.NewRegistry(
//		sender.InApp{},
//		sender.NewEmail(mailer),
//		sender.NewPush(sender.WithPushLogger(log)),
//	)
//
// The registry is the Dispatcher of the delivery worker. Supporting a new
// channel means adding a notifications.Channel constant and registering a
// Sender for it; the worker needs no change.
package sender
