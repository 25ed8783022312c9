package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-logr/logr"

	"github.com/jmcleod/mjuauth/auth"
	"github.com/jmcleod/mjuauth/cache"
	"github.com/jmcleod/mjuauth/config"
	"github.com/jmcleod/mjuauth/service"
	"github.com/jmcleod/mjuauth/sso"
	"github.com/jmcleod/mjuauth/student"
	"github.com/jmcleod/mjuauth/transport"
)

// runtime is everything a command needs, built from the config file and
// flags.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *service.Registry
	orch     *auth.Orchestrator
}

func newRuntime(stderr io.Writer) (*runtime, error) {
	cfg, err := config.Load(configFS, configPath)
	if err != nil {
		return nil, err
	}
	return buildRuntime(cfg, stderr)
}

func buildRuntime(cfg config.Config, stderr io.Writer) (*runtime, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))
	log := logr.FromSlogHandler(logger.Handler())

	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("build service registry: %w", err)
	}

	timeouts := cfg.TransportTimeouts()
	authn := sso.New(registry,
		sso.WithLogger(log.WithName("sso")),
		sso.WithMaxRedirects(cfg.Login.MaxRedirects),
		sso.WithSessionFactory(func() (*transport.Session, error) {
			return transport.NewSession(transport.WithTimeouts(timeouts))
		}),
	)
	fetcher := student.NewFetcher(cfg.MSI, student.WithLogger(log.WithName("student")))
	orch := auth.New(authn,
		cache.NewSessionCache(cfg.Cache.SessionTTL.Std()),
		cache.NewDataCache(cfg.Cache.DataTTL.Std()),
		auth.WithLogger(log.WithName("auth")),
		auth.WithFetcher(fetcher),
	)

	return &runtime{cfg: cfg, logger: logger, registry: registry, orch: orch}, nil
}
