package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hafen/htmlwidgets/manifest"
	"github.com/hafen/htmlwidgets/page"
	"github.com/hafen/htmlwidgets/server"
	"github.com/hafen/htmlwidgets/sparkline"
	"github.com/hafen/htmlwidgets/widget"
)

const demoElement = "demo-sparkline"

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		interval   time.Duration
		points     int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live demo widget page",
		Long:  `Serve hosts the demo sparkline widget on a live page: payload updates stream from a random-walk producer through the widget runtime and out to connected browsers over a websocket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg := defaultConfig()
			if configPath != "" {
				loaded, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("interval") {
				cfg.Interval = duration{interval}
			}
			if cmd.Flags().Changed("points") {
				cfg.Points = points
			}

			assets, err := loadManifests(cfg.Manifests)
			if err != nil {
				return err
			}

			reg := widget.NewRegistry()
			if err := sparkline.Register(reg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			updates := produce(ctx, demoElement, cfg.Points, cfg.Interval.Duration)
			host, err := server.NewHost(
				server.Config{
					Addr:   cfg.Addr,
					Title:  cfg.Title,
					Assets: assets,
				},
				reg,
				[]page.Embed{{
					Widget:    sparkline.Name,
					ElementID: demoElement,
					Payload:   sparkline.NewPayload(nil, "waiting for data"),
				}},
				updates,
				logger,
			)
			if err != nil {
				return err
			}

			logger.Info("starting live host", "addr", cfg.Addr, "interval", cfg.Interval.Duration)
			return host.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "producer update interval")
	cmd.Flags().IntVar(&points, "points", 60, "sliding window size of the demo series")

	return cmd
}

// loadManifests merges the configured dependency manifests; duplicate
// dependencies collapse to their highest version.
func loadManifests(paths []string) (*manifest.Manifest, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	merged := &manifest.Manifest{}
	for _, path := range paths {
		m, err := manifest.LoadFile(path)
		if err != nil {
			return nil, err
		}
		merged.Merge(m)
	}
	return merged, nil
}

// produce streams random-walk payloads for the demo element: a sliding
// window of values, each update a complete replacement snapshot.
func produce(ctx context.Context, element string, window int, interval time.Duration) <-chan server.Update {
	updates := make(chan server.Update)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		series := []float64{0}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			next := series[len(series)-1] + rand.Float64()*2 - 1
			series = append(series, next)
			if len(series) > window {
				series = series[len(series)-window:]
			}

			snapshot := make([]float64, len(series))
			copy(snapshot, series)
			update := server.Update{
				Element: element,
				Payload: sparkline.NewPayload(snapshot, fmt.Sprintf("%.2f", next)),
			}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates
}
