package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/xenking/freshcart/internal/domain/order"
	"github.com/xenking/freshcart/internal/events"
	"github.com/xenking/freshcart/internal/guest"
	"github.com/xenking/freshcart/internal/handler"
	"github.com/xenking/freshcart/internal/merge"
	"github.com/xenking/freshcart/internal/routemisr"
	"github.com/xenking/freshcart/internal/state"
	"github.com/xenking/freshcart/pkg/health"
	"github.com/xenking/freshcart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application. The sdk's
// *app.Telemetry satisfies m.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("upstream", cfg.Upstream.URL),
		zap.String("guest_backend", cfg.Guest.Backend),
	)

	rules, err := cfg.Pricing.Rules()
	if err != nil {
		return errors.Wrap(err, "pricing rules")
	}

	// Guest storage.
	store, closeStore, err := OpenGuestStore(ctx, cfg.Guest)
	if err != nil {
		return errors.Wrap(err, "open guest store")
	}
	defer closeStore()
	if cfg.Guest.Backend != BackendRedis {
		go pruneGuests(ctx, store, cfg.Guest.TTL)
	}
	guests := guest.NewRepository(store)

	// Remote store API.
	client, err := routemisr.New(routemisr.Config{
		BaseURL:        cfg.Upstream.URL,
		Timeout:        cfg.Upstream.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create upstream client")
	}

	// Events.
	var publisher events.Publisher = events.Nop{}
	if len(cfg.Events.Brokers) > 0 {
		publisher = events.NewKafka(cfg.Events.Brokers, cfg.Events.Topic)
		lg.Info("Publishing events", zap.Strings("brokers", cfg.Events.Brokers), zap.String("topic", cfg.Events.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			lg.Warn("Close event publisher", zap.Error(err))
		}
	}()

	// Authenticated state mirror.
	mirror := state.New()
	mirror.StartCleanup(ctx, cfg.Mirror.IdleTTL)

	// Domain services.
	merger, err := merge.New(client, client, guests, merge.Options{
		Concurrency:   cfg.Merge.Concurrency,
		Mirror:        mirror,
		Publisher:     publisher,
		MeterProvider: m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create merger")
	}
	orderService := order.NewService(client, client, publisher, cfg.ReturnURL())

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("guest-store", 5*time.Second, health.PingCheck(store))
	healthSvc.AddReadinessCheck("upstream", 5*time.Second, health.PingCheck(client))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h := handler.New(handler.Config{
		Cookies: handler.CookieConfig{
			TokenName: cfg.Cookie.TokenName,
			GuestName: cfg.Cookie.GuestName,
			Domain:    cfg.Cookie.Domain,
			Secure:    cfg.Cookie.Secure,
			GuestTTL:  cfg.Guest.TTL,
		},
		Pricing: rules,
	}, handler.Deps{
		Auth:      client,
		Catalog:   client,
		Carts:     client,
		Wishlists: client,
		Orders:    orderService,
		Guests:    guests,
		Merger:    merger,
		Mirror:    mirror,
	})

	// Router: health endpoints + storefront API on one server.
	router := h.Routes()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	limiter.StartCleanup(ctx)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Upstream.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.TokenHeader, httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			limiter.Middleware(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("freshcart-storefront", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
			httpmiddleware.Gzip(pgzip.DefaultCompression),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
