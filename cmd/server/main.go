package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	notifyhandler "loannote/internal/notify/handler"
	notifymetrics "loannote/internal/notify/metrics"
	notifyservice "loannote/internal/notify/service"
	"loannote/internal/platform/config"
	"loannote/internal/platform/httpserver"
	"loannote/internal/platform/logger"
	"loannote/internal/platform/mailrelay"
	platformredis "loannote/internal/platform/redis"
	"loannote/internal/platform/staticfiles"
	rlmetrics "loannote/internal/ratelimit/metrics"
	rlmiddleware "loannote/internal/ratelimit/middleware"
	"loannote/internal/ratelimit/ports"
	rlservice "loannote/internal/ratelimit/service"
	"loannote/internal/ratelimit/store/window"
	httptransport "loannote/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	var store ports.WindowStore
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		store = window.NewRedisStore(redisClient.Client)
		log.Info("rate limit window store: redis")
	} else {
		store = window.NewMemoryStore()
		log.Info("rate limit window store: in-memory")
	}

	limiter, err := rlservice.New(store, cfg.RateLimitMax, cfg.RateLimitWindow,
		rlservice.WithLogger(log),
		rlservice.WithMetrics(rlmetrics.New()),
	)
	if err != nil {
		log.Error("rate limiter setup failed", "error", err)
		os.Exit(1)
	}

	relay := mailrelay.New(mailrelay.Config{
		BaseURL: cfg.RelayURL,
		APIKey:  cfg.RelayAPIKey,
		From:    cfg.MailFrom,
		Timeout: cfg.MailTimeout,
	})

	nMetrics := notifymetrics.New()
	dispatcher, err := notifyservice.New(relay, cfg.AdminEmail,
		notifyservice.WithLogger(log),
		notifyservice.WithMetrics(nMetrics),
	)
	if err != nil {
		log.Error("dispatcher setup failed", "error", err)
		os.Exit(1)
	}

	if cfg.AdminEmail == "" {
		// Deliberately not fatal: the widget still serves, and every
		// submission reports the missing recipient to its caller.
		log.Warn("ADMIN_EMAIL is not set; loan notifications will fail until it is configured")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Notify:    notifyhandler.New(dispatcher, log, nMetrics),
		RateLimit: rlmiddleware.New(limiter, log),
		Static:    staticfiles.New(cfg.StaticDir),
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("loannote listening", "addr", cfg.Addr, "static_dir", cfg.StaticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
