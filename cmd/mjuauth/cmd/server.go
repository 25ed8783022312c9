package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/mjuauth/api"
)

var (
	port    int
	tlsCert string
	tlsKey  string
)

const sweepInterval = time.Minute

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			rt.cfg.Server.Port = port
			if err := rt.cfg.Validate(); err != nil {
				return err
			}
		}

		a := newAPI(rt)
		server := &http.Server{
			Addr:              rt.cfg.Addr(),
			Handler:           a.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// A fetch may chain several portal round trips.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		useTLS := tlsCert != "" && tlsKey != ""
		if useTLS {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go a.RunSweeper(ctx, sweepInterval)

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if useTLS {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(cmd.OutOrStdout())
		rt.logger.Info("starting server", "addr", server.Addr, "tls", useTLS, "workers", rt.cfg.Server.Workers)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			rt.logger.Info("shutting down", "signal", sig.String())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// newAPI wires the HTTP API from the runtime's config.
func newAPI(rt *runtime) *api.API {
	rl := rt.cfg.RateLimit
	return api.New(rt.orch, rt.registry,
		api.WithLogger(rt.logger),
		api.WithVersion(Version),
		api.WithWorkers(rt.cfg.Server.Workers),
		api.WithRateLimit(rl.MaxFailures, rl.Window.Std(), rl.Lockout.Std()),
		api.WithAlertFunc(func(e api.AlertEvent) {
			rt.logger.Warn("alert",
				"type", string(e.Type),
				"message", e.Message,
				"count", e.Count,
				"threshold", e.Threshold,
			)
		}),
	)
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8000, "Port to listen on (overrides the config file)")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
