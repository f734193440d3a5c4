package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mateusmacedo/go-busbooking/internal/booking"
	"github.com/mateusmacedo/go-busbooking/internal/booking/application"
	"github.com/mateusmacedo/go-busbooking/internal/config"
	zapAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/zaplogger/adapter"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	appLogger, err := zapAdapter.NewZapAppLogger(cfg.AppName, cfg.Debug)
	if err != nil {
		panic(err)
	}

	runtime, err := booking.NewRuntime(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, "error initializing runtime", map[string]interface{}{"error": err})
		panic(err)
	}
	defer func() {
		if err := runtime.Close(); err != nil {
			appLogger.Error(context.Background(), "error closing runtime", map[string]interface{}{"error": err})
		}
	}()

	sh := newShell(os.Stdin, os.Stdout)
	bookingSlice := booking.NewBookingSlice(
		booking.NewInProcessBuses(runtime.Notices, appLogger),
		booking.NewHTTPServices(cfg, runtime.Credentials, appLogger),
		runtime.Credentials,
		runtime.Receipts,
		application.NavigatorFunc(sh.toEntry),
		application.SessionConfig{ExpiredDelay: cfg.SessionExpiredDelay},
		appLogger,
	)
	bookingSlice.OnNotice(sh.renderNotice)
	sh.session = bookingSlice.Session()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			appLogger.Info(ctx, "signal received", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	appLogger.Info(ctx, "booking shell started", map[string]interface{}{
		"api":       cfg.APIBaseURL,
		"transport": cfg.EventTransport,
	})
	sh.run(ctx)
	appLogger.Info(context.Background(), "booking shell stopped", nil)
}
