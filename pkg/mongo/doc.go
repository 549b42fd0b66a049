// Package mongo connects to MongoDB using environment-driven settings.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.ConnectDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store, err := notifications.NewMongoStorage(ctx, db)
//
// Healthcheck returns a readiness check function for httpserver.Check.
package mongo
