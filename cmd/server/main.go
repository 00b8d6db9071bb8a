package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/thebowwman/ordertrack/internals/api"
	"github.com/thebowwman/ordertrack/internals/config"
	"github.com/thebowwman/ordertrack/internals/engine"
	"github.com/thebowwman/ordertrack/internals/hub"
	"github.com/thebowwman/ordertrack/internals/route"
	"github.com/thebowwman/ordertrack/internals/session"
)

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	cfg := config.New()
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	registry := session.NewRegistry()
	routes := route.NewStore(registry)
	hubs := hub.NewHubs()
	eng := engine.New(engine.Config{
		DebounceWindow:    cfg.DebounceWindow,
		ArrivedThresholdM: cfg.ArrivedThresholdM,
		StaleThreshold:    cfg.StaleThreshold,
		DefaultSpeedMPS:   cfg.DefaultSpeedMPS,
	}, registry, routes, hubs, log)

	r := gin.Default()
	api.RegisterRoutes(r, api.NewHandlers(eng, hubs, cfg, log))

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
