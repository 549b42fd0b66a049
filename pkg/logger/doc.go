// Package logger builds the service's *slog.Logger and keeps attribute names
// consistent across packages.
//
// New assembles a text or JSON handler from functional options. Records
// logged with a context also carry the attributes attached by ContextWith
// and those returned by ContextExtractor callbacks. NewFromConfig does the same from the APP_ENV,
// APP_NAME, LOG_LEVEL and LOG_FORMAT environment variables.
//
// # Usage
//
//	import "github.com/dmitrymomot/notifykit/pkg/logger"
//
//	func main() {
//	    log := logger.New(logger.WithDevelopment("notifyd"))
//	    logger.SetAsDefault(log)
//
//	    log.InfoContext(ctx, "delivery entry sent",
//	        logger.EntryID(entry.ID),
//	        logger.NotificationID(entry.NotificationID),
//	        logger.Channel(entry.Channel),
//	        logger.Attempts(entry.Attempts),
//	    )
//	}
//
// Error and Errors return an empty attribute for nil errors, so
//
//	log.Info("batch processed", logger.Error(err))
//
// needs no nil check.
package logger
