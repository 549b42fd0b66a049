package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/mongo"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

const (
	driverMongo    = "mongo"
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

var errUnknownDriver = errors.New("unknown storage driver")

// storage bundles the two stores of one backend.
type storage struct {
	notifications notifications.Storage
	queue         delivery.Storage
	ready         httpserver.Check
	close         func(context.Context) error
}

func openStorage(ctx context.Context, driver string, log *slog.Logger) (*storage, error) {
	switch driver {
	case driverMongo, "":
		return openMongo(ctx)
	case driverPostgres:
		return openPostgres(ctx, log)
	case driverMemory:
		log.WarnContext(ctx, "using in-memory storage, data is lost on restart")
		return &storage{
			notifications: notifications.NewMemoryStorage(),
			queue:         delivery.NewMemoryStorage(),
			ready:         httpserver.Check{Name: "memory", Fn: func(context.Context) error { return nil }},
			close:         func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, driver)
	}
}

func openMongo(ctx context.Context) (*storage, error) {
	var cfg mongo.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	db, err := mongo.ConnectDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	notifs, err := notifications.NewMongoStorage(ctx, db)
	if err != nil {
		return nil, errors.Join(err, db.Client().Disconnect(ctx))
	}
	queue, err := delivery.NewMongoStorage(ctx, db)
	if err != nil {
		return nil, errors.Join(err, db.Client().Disconnect(ctx))
	}

	return &storage{
		notifications: notifs,
		queue:         queue,
		ready:         httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(db)},
		close:         db.Client().Disconnect,
	}, nil
}

func openPostgres(ctx context.Context, log *slog.Logger) (*storage, error) {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		notifications: notifications.NewPostgresStorage(pool),
		queue:         delivery.NewPostgresStorage(pool),
		ready:         httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}
