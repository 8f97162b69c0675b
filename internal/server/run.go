package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// Serve runs handler on listener until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving dashboard",
			zap.String("op", "server.Serve"),
			zap.String("address", listener.Addr().String()),
		)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.String("op", "server.Serve"), zap.Error(err))
			return err
		}
		logger.Info("server stopped gracefully", zap.String("op", "server.Serve"))
		return nil
	})
	return g.Wait()
}

// ListenAndServe listens on address and calls Serve.
func ListenAndServe(ctx context.Context, address string, handler http.Handler, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return Serve(ctx, listener, handler, logger)
}
