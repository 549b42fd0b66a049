package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/modules/notification"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/handler"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/realtime"
	"github.com/dmitrymomot/notifykit/pkg/sender"
)

type appConfig struct {
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"mongo"`
	AdminToken    string `env:"ADMIN_TOKEN"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		logCfg      logger.Config
		appCfg      appConfig
		emailCfg    email.Config
		deliveryCfg delivery.Config
		httpCfg     httpserver.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&logCfg) },
		func() error { return config.Load(&appCfg) },
		func() error { return config.Load(&emailCfg) },
		func() error { return config.Load(&deliveryCfg) },
		func() error { return config.Load(&httpCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	log, err := logger.NewFromConfig(logCfg, logger.WithContextExtractors(requestID))
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	store, err := openStorage(ctx, appCfg.StorageDriver, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(context.Background()); err != nil {
			log.Error("failed to close storage", logger.Error(err))
		}
	}()

	mailer, err := email.NewFromConfig(emailCfg)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(realtime.WithLogger(log))

	registry := sender.NewRegistry(
		sender.InApp{},
		sender.NewEmail(mailer),
		sender.NewPush(sender.WithPushLogger(log)),
	)

	svc := notifications.NewService(store.notifications,
		notifications.WithEmitter(hub),
		notifications.WithEnqueuer(delivery.Enqueuer(store.queue)),
		notifications.WithLogger(log),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := delivery.NewPrometheusMetrics(reg)
	if err != nil {
		return err
	}

	worker, err := delivery.NewWorker(store.queue, store.notifications, registry,
		append(deliveryCfg.Options(),
			delivery.WithWorkerLogger(log),
			delivery.WithMetrics(metrics),
			delivery.WithEmitter(hub),
		)...,
	)
	if err != nil {
		return err
	}

	routerOpts := notification.RouterOptions{
		Service:      svc,
		DeadLetters:  store.queue,
		Websocket:    realtime.NewWebsocketHandler(hub, realtime.WithHandlerLogger(log)),
		ErrorHandler: handler.NewErrorHandler(log),
	}
	if appCfg.AdminToken != "" {
		routerOpts.AdminMiddleware = []func(http.Handler) http.Handler{
			notification.RequireAdminToken(appCfg.AdminToken),
		}
	} else {
		log.WarnContext(ctx, "admin routes disabled, ADMIN_TOKEN is not set")
	}

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithReadinessChecks(store.ready),
		httpserver.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		httpserver.WithMiddleware(middleware.RequestID, middleware.RealIP, middleware.Recoverer),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	g.Go(func() error { return srv.Run(ctx, notification.Router(routerOpts)) })
	g.Go(func() error {
		<-ctx.Done()
		return hub.Close()
	})

	log.InfoContext(ctx, "notifyd started",
		slog.String("storage", appCfg.StorageDriver),
		slog.String("email_provider", emailCfg.Provider))

	return g.Wait()
}

func requestID(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.RequestID(id), true
	}
	return slog.Attr{}, false
}
