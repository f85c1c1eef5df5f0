// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-picker/internal/report"
	"github.com/pdiddy/paper-picker/internal/search"
	"github.com/pdiddy/paper-picker/internal/store"
	"github.com/pdiddy/paper-picker/internal/summarize"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run paper selection on a cron schedule",
	Long: `Schedule keeps running and starts a full run (the same as "paper-picker
run") at every tick of schedule.cron. A tick that fires while the previous
run is still going is skipped.

With --metrics-addr the run statistics are served in Prometheus format at
/metrics. SIGINT or SIGTERM stops the scheduler after the current run.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().String("cron", "", "cron expression (5 fields); overrides schedule.cron")
	scheduleCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090); overrides schedule.metrics_addr")
	scheduleCmd.Flags().Bool("run-now", false, "start one run immediately before waiting for the first tick")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := commandLogger(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("cron") {
		cfg.Schedule.Cron, _ = cmd.Flags().GetString("cron")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Schedule.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}
	runNow, _ := cmd.Flags().GetBool("run-now")

	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		return fmt.Errorf("invalid schedule.cron %q: %w", cfg.Schedule.Cron, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	backend, err := summarize.NewOpenAIBackend(cfg.Summary)
	if err != nil {
		return err
	}

	metrics := report.NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	r := &runner{
		cfg:     cfg,
		store:   st,
		fetcher: search.NewFetcher(cfg.Fetch, logger),
		backend: backend,
		metrics: metrics,
		logger:  logger,
		out:     cmd.OutOrStdout(),
	}
	job := func() {
		logger.Info("scheduled run starting")
		start := time.Now()
		if err := r.run(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err, "elapsed", time.Since(start))
			return
		}
		logger.Info("scheduled run completed", "elapsed", time.Since(start))
	}

	var srv *http.Server
	if cfg.Schedule.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", report.MetricsHandler(reg))
		srv = &http.Server{
			Addr:              cfg.Schedule.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
				stop()
			}
		}()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Schedule.Cron, job); err != nil {
		return fmt.Errorf("scheduling run: %w", err)
	}
	c.Start()
	logger.Info("scheduler started", "cron", cfg.Schedule.Cron, "keywords", len(cfg.Selection.Keywords))

	if runNow {
		go job()
	}

	<-ctx.Done()
	logger.Info("shutting down scheduler")

	// Stop returns a context that is done once running jobs finish.
	<-c.Stop().Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down metrics server: %w", err)
		}
	}
	return nil
}
