// cmd/kiln/serve.go
package main

import (
	"context"
	"fmt"
	"kiln/internal/builder"
	"kiln/internal/metrics"
	"kiln/internal/server"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServeCmd implements 'kiln serve'.
type ServeCmd struct {
	Port int `short:"p" help:"Port for the development server." default:"1313" env:"KILN_PORT"`
}

func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := root.SiteConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := builder.BuildOptions{Logger: slog.Default(), Recorder: metrics.NewPrometheusRecorder(reg)}

	build := func(_ context.Context, clean bool) error {
		c := cfg
		c.CleanDestination = clean
		report, err := builder.BuildSite(c, opts)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return server.Run(ctx, server.Options{
		Addr:       fmt.Sprintf(":%d", s.Port),
		OutputDir:  cfg.OutputDir,
		WatchPaths: []string{cfg.ContentDir, cfg.TemplateDir, cfg.StaticDir, cfg.SyntaxesDir, cfg.IndexTemplate, root.Config},
		Gatherer:   reg,
		Logger:     slog.Default(),
	}, build)
}
