package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitgrid/internal/config"
	"github.com/habitgrid/internal/handler"
	"github.com/habitgrid/internal/router"
	"github.com/habitgrid/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API on a loopback address",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, a, listenAddr)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides HABITGRID_LISTEN_ADDR)")
	return cmd
}

func serve(ctx context.Context, a *app, listenAddr string) error {
	addr := a.cfg.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}
	if err := config.ValidateListenAddr(addr); err != nil {
		return err
	}

	gin.SetMode(a.cfg.GinMode)
	notes := service.NewNoteDebouncer(a.repo.SaveNote, a.cfg.NoteDebounce, a.logger.Named("notes"))
	api := handler.NewAPI(handler.Deps{
		Repository: a.repo,
		Settings:   service.NewSettingService(a.store),
		Notes:      notes,
		Logger:     a.logger.Named("http"),
		Ping: func() error {
			sqlDB, err := a.store.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(api, a.logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = notes.Close(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server shutdown", zap.Error(err))
	}
	if err := notes.Close(shutdownCtx); err != nil {
		a.logger.Warn("flush pending notes", zap.Error(err))
	}
	return nil
}
