package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imlakshy/fileway-backend/internal/config"
	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/logging"
	"github.com/imlakshy/fileway-backend/internal/office"
	"github.com/imlakshy/fileway-backend/internal/render"
	"github.com/imlakshy/fileway-backend/internal/server"
)

const shutdownTimeout = 30 * time.Second

var (
	serveConfig string
	serveAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API. Settings come from built-in defaults, the optional
--config TOML file, a .env file in the working directory and FILEWAY_*
environment variables, in that order. PORT is honoured for hosted platforms.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfig, "config", "c", "", "TOML config file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfig)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	registry := encoder.NewRegistry()
	conv := office.NewConverter(cfg.Office.Soffice, cfg.Office.Timeout.Duration)
	log.Info("capabilities",
		zap.Stringer("encoders", registry),
		zap.Bool("render", render.Available()),
		zap.Bool("office", conv.Available()),
	)

	srv := server.New(server.Deps{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
		Office:   conv,
		Profiles: server.Profiles(cfg.Fit),
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.Int("workers", cfg.Workers))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
