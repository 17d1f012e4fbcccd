package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openmni/mnipipe/pkg/artifacts"
	"github.com/openmni/mnipipe/pkg/config"
	"github.com/openmni/mnipipe/pkg/journal"
	"github.com/openmni/mnipipe/pkg/runner"
	"github.com/openmni/mnipipe/pkg/scratch"
	"github.com/openmni/mnipipe/pkg/telemetry"
)

// environment wires the library components for one CLI invocation.
type environment struct {
	cfg        *config.Config
	runID      string
	store      *scratch.Store
	pipeline   *artifacts.Pipeline
	journal    *journal.Journal
	tel        *telemetry.Telemetry
	metricsSrv *http.Server
}

func newEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	telCfg := telemetry.DefaultConfig()
	telCfg.Logging = telemetry.LoggingConfig(cfg.Logging)
	telCfg.Tracing.Enabled = cfg.Tracing.Enabled
	telCfg.Tracing.Exporter = cfg.Tracing.Exporter
	telCfg.Tracing.Endpoint = cfg.Tracing.Endpoint
	telCfg.Tracing.SamplingRate = cfg.Tracing.SamplingRate
	telCfg.Metrics.Enabled = cfg.Metrics.Enabled
	tel, err := telemetry.New(telCfg)
	if err != nil {
		return nil, err
	}
	installLogger(tel.Logger)

	env := &environment{
		cfg:   cfg,
		runID: uuid.NewString(),
		tel:   tel,
	}

	store, err := scratch.New(cfg.ScratchDir, scratch.WithObserver(tel.Metrics))
	if err != nil {
		return nil, err
	}
	env.store = store

	opts := []runner.Option{
		runner.WithRunID(env.runID),
		runner.WithMetrics(tel.Metrics),
	}
	if cfg.Journal.Enabled {
		jnl, err := journal.New(journal.Config{Path: cfg.Journal.Path})
		if err != nil {
			store.ReleaseAll()
			return nil, err
		}
		if err := jnl.Init(ctx); err != nil {
			store.ReleaseAll()
			return nil, err
		}
		if err := jnl.Migrate(ctx); err != nil {
			_ = jnl.Close()
			store.ReleaseAll()
			return nil, err
		}
		env.journal = jnl
		opts = append(opts, runner.WithRecorder(jnl))
	}

	if cfg.Metrics.Enabled {
		srv, addr, err := startMetricsServer(tel.Metrics, cfg.Metrics.Listen)
		if err != nil {
			env.Close(ctx)
			return nil, err
		}
		env.metricsSrv = srv
		log.Info().Str("addr", addr).Msg("serving metrics")
	}

	env.pipeline = artifacts.New(runner.New(opts...), store)
	return env, nil
}

// Close sweeps the scratch directory and shuts down telemetry. Safe to
// defer immediately after newEnvironment succeeds.
func (e *environment) Close(ctx context.Context) {
	e.store.ReleaseAll()
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close journal")
		}
	}
	if e.metricsSrv != nil {
		if err := e.metricsSrv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to shut down metrics server")
		}
	}
	if err := e.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to shut down telemetry")
	}
}

// installLogger routes the global zerolog logger through the configured
// telemetry logger, so the logging.level, logging.format, and logging.output
// keys take effect in every package.
func installLogger(l *telemetry.Logger) {
	log.Logger = l.Zerolog()
}

// startMetricsServer serves the Prometheus registry on addr until shutdown.
// It returns the bound address so ":0" works for tests and ad hoc runs.
func startMetricsServer(m *telemetry.Metrics, addr string) (*http.Server, string, error) {
	handler := m.Handler()
	if handler == nil {
		return nil, "", fmt.Errorf("metrics are not enabled")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("metrics server stopped")
		}
	}()
	return srv, ln.Addr().String(), nil
}
