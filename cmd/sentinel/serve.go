package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	appscans "github.com/bryanwahyu/sentinelai/internal/application/scans"
	"github.com/bryanwahyu/sentinelai/internal/config"
	"github.com/bryanwahyu/sentinelai/internal/infra/httpserver"
	"github.com/bryanwahyu/sentinelai/internal/middleware"
)

type serveOpts struct {
	Port int
}

func newServeCommand(root *rootOpts) *cobra.Command {
	opts := &serveOpts{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SentinelAI HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runServe(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "Port to listen on (overrides server.port)")
	return cmd
}

// avoids a typed-nil interface
func signerOrNil(a *app) httpserver.ReportSigner {
	if a.signer == nil {
		return nil
	}
	return a.signer
}

func runServe(parent context.Context, root *rootOpts, opts *serveOpts) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, root, true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}

	sessions := appscans.NewSessions(a.deps(), cfg.Server.SessionTTL)
	go sessions.Run(ctx, cfg.Server.SweepEvery)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillRate, cfg.Server.RateLimit.Interval)
	defer limiter.Close()

	// api keys and log level follow config edits without a restart
	keys := middleware.NewKeys(cfg.Server.APIKeys)
	err = config.Watch(ctx, root.ConfigPath, a.log, func(next *config.Config) {
		keys.Set(next.Server.APIKeys)
		if lvl, err := logrus.ParseLevel(next.Log.Level); err == nil && !root.Verbose {
			a.log.SetLevel(lvl)
		}
	})
	if err != nil {
		a.log.WithError(err).Warn("config watch disabled")
	}

	handler := httpserver.NewRouter(httpserver.Options{
		Sessions:    sessions,
		Advisor:     a.gateway,
		Archive:     a.archive,
		Reports:     a.reports,
		Signer:      signerOrNil(a),
		Checkers:    a.checkers,
		APIKeys:     keys,
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     limiter,
		Logger:      a.log,
	})
	if keys.Len() == 0 {
		a.log.Warn("server.apiKeys empty - API is unauthenticated")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down server...")
	// in-flight scans get the write timeout to finish
	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		a.log.WithError(err).Warn("shutdown error")
	}
	return nil
}
