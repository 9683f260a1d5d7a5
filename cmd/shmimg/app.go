package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/internal/conv"
	"github.com/hupe1980/shmimg/prommetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every command needs once flags are parsed.
var app struct {
	v       *viper.Viper
	logger  *shmimg.Logger
	metrics *prommetrics.Metrics
	server  *http.Server
}

func setup(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app.v = v

	if app.logger, err = newLogger(v); err != nil {
		return err
	}

	if addr := v.GetString("metrics-addr"); addr != "" {
		startMetrics(cmd.Context(), addr)
	}
	return nil
}

func teardown(cmd *cobra.Command, _ []string) {
	if app.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.server.Shutdown(ctx)
}

func startMetrics(ctx context.Context, addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = prommetrics.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	app.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		app.logger.InfoContext(ctx, "serving metrics", "addr", addr)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.ErrorContext(ctx, "metrics server failed", "error", err)
		}
	}()
}

// storeOptions returns the options every command passes to a store attached
// to the named segment.
func storeOptions(name string) []shmimg.Option {
	opts := []shmimg.Option{
		shmimg.WithDir(app.v.GetString("dir")),
		shmimg.WithLogger(app.logger),
	}
	if app.metrics != nil {
		opts = append(opts, shmimg.WithMetricsCollector(app.metrics.Collector(name)))
	}
	return opts
}

// finalize calls fn and logs its error against the named segment.
func finalize(ctx context.Context, name string, fn func() error) {
	if err := fn(); err != nil {
		app.logger.WithSegment(name).LogFinalize(ctx, err)
	}
}

// ibytes formats a byte count for humans.
func ibytes(n int) string {
	u, err := conv.IntToUint64(n)
	if err != nil {
		return strconv.Itoa(n)
	}
	return humanize.IBytes(u)
}
