package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"satcore/internal/celestrak"
	"satcore/internal/config"
	"satcore/internal/core"
	"satcore/internal/geophys"
	"satcore/internal/httpclient"
	"satcore/internal/logging"
	"satcore/internal/oceancolor"
	"satcore/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// env is the configuration and logger every subcommand starts from.
type env struct {
	cfg    config.Config
	logger *slog.Logger
}

func loadEnv(opts *options, serve bool) (env, error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return env{}, err
	}
	validate := cfg.Validate
	if serve {
		validate = cfg.ValidateServe
	}
	if err := validate(); err != nil {
		return env{}, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return env{cfg: cfg, logger: logger}, nil
}

func celestrakClient(cfg config.Config) (*celestrak.Client, error) {
	hc, err := httpclient.New(httpclient.Config{Timeout: cfg.RequestTimeout, UserAgent: cfg.UserAgent})
	if err != nil {
		return nil, err
	}
	return celestrak.NewClient(hc, cfg.Celestrak.BaseURL, cfg.Celestrak.CacheTTL)
}

func migrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the entity-model schema to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(opts, false)
			if err != nil {
				return err
			}
			repos, err := core.OpenRepositories(cmd.Context(), e.cfg.Storage)
			if err != nil {
				return err
			}
			defer func() { _ = repos.Close() }()
			if repos.Driver == core.StorageMemory {
				e.logger.Warn("memory storage has no schema to migrate")
				return nil
			}
			e.logger.Info("schema applied", "driver", repos.Driver)
			return nil
		},
	}
}

func seedCommand(opts *options, stdout io.Writer) *cobra.Command {
	var fetchTLE bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision the default satellites, instruments and OceanColor mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(opts, false)
			if err != nil {
				return err
			}
			repos, err := core.OpenRepositories(cmd.Context(), e.cfg.Storage)
			if err != nil {
				return err
			}
			defer func() { _ = repos.Close() }()

			popts := core.ProvisionOptions{Logger: e.logger}
			if fetchTLE {
				source, err := celestrakClient(e.cfg)
				if err != nil {
					return err
				}
				popts.TLE = source
			}
			report, err := core.Provision(cmd.Context(), repos, popts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(stdout, "created %d satellites, %d instruments, %d satellite instruments, %d mappings\n",
				report.Satellites, report.Instruments, report.SatelliteInstruments, report.Mappings)
			return err
		},
	}
	cmd.Flags().BoolVar(&fetchTLE, "fetch-tle", false, "look up orbital elements on CelesTrak for new satellites")
	return cmd
}

func serveCommand(opts *options) *cobra.Command {
	var provision bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion and TLE refresh jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(opts, true)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), e, provision)
		},
	}
	cmd.Flags().BoolVar(&provision, "provision", true, "seed the default fleet before starting the jobs")
	return cmd
}

func serve(ctx context.Context, e env, provision bool) error {
	cfg, logger := e.cfg, e.logger

	repos, err := core.OpenRepositories(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = repos.Close() }()
	blobs, err := core.OpenBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	catalog, err := celestrakClient(cfg)
	if err != nil {
		return err
	}
	if provision {
		if _, err := core.Provision(ctx, repos, core.ProvisionOptions{TLE: catalog, Logger: logger}); err != nil {
			return fmt.Errorf("provision: %w", err)
		}
	}

	oceanHTTP, err := httpclient.New(httpclient.Config{
		Timeout:       cfg.RequestTimeout,
		UserAgent:     cfg.UserAgent,
		BearerToken:   cfg.OceanColor.Token,
		TrustedDomain: cfg.OceanColor.TrustedDomain,
		RatePerSecond: cfg.OceanColor.RateLimit,
	})
	if err != nil {
		return err
	}
	defer oceanHTTP.Close()
	provider, err := oceancolor.NewClient(oceanHTTP, cfg.OceanColor.BaseURL, "")
	if err != nil {
		return err
	}
	ingest, err := oceancolor.NewJob(oceancolor.JobConfig{
		Provider: provider,
		Decoder:  geophys.NetCDFDecoder{Group: cfg.OceanColor.Group, Variable: cfg.OceanColor.Variable},
		Mappings: repos.OceanColorMappings,
		Data:     repos.InstrumentData,
		Blobs:    blobs,
		Lookback: cfg.OceanColor.Lookback,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	refresh, err := celestrak.NewRefreshJob(repos.Satellites, catalog, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sched, err := scheduler.New(scheduler.Config{Logger: logger, MaxTickDuration: cfg.MaxTickDuration, Registerer: registry})
	if err != nil {
		return err
	}
	if _, err := scheduler.Register(sched, ingest, oceancolor.State{}, scheduler.Schedule{Interval: cfg.OceanColor.Interval, RunImmediately: true}); err != nil {
		return err
	}
	if _, err := scheduler.Register(sched, refresh, celestrak.RefreshState{}, scheduler.Schedule{Interval: cfg.Celestrak.Interval}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if err := sched.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		return sched.Stop()
	})
	logger.Info("satcored started", "storage", repos.Driver, "blob", blobs.Driver())
	err = g.Wait()
	logger.Info("satcored stopped")
	return err
}

func metricsMux(registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
