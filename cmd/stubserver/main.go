package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mateusmacedo/go-busbooking/internal/config"
	"github.com/mateusmacedo/go-busbooking/internal/stub"
	zapAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/zaplogger/adapter"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	appLogger, err := zapAdapter.NewZapAppLogger(cfg.AppName+"-stub", cfg.Debug)
	if err != nil {
		panic(err)
	}

	stubServer := stub.NewServer(
		stub.NewAccounts(bcrypt.DefaultCost),
		stub.NewTokenIssuer(cfg.StubJWTSecret, cfg.StubTokenTTL),
		appLogger,
	)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		appLogger.Info(ctx, "signal received", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	server := &http.Server{
		Addr:              cfg.StubAddr,
		Handler:           stubServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		appLogger.Info(ctx, "stub server starting", map[string]interface{}{"addr": cfg.StubAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(ctx, "error starting server", map[string]interface{}{"error": err})
			cancel()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "shutting down stub server", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), "error shutting down server", map[string]interface{}{"error": err})
	}
	appLogger.Info(context.Background(), "stub server stopped", nil)
}
