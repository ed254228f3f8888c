// FILE: lixenwraith/logpipe/cmd/logpipe-stress/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/logpipe"
	"github.com/lixenwraith/logpipe/metrics"
)

var (
	configPath  string
	overrides   []string
	metricsAddr string
	watchConfig bool
)

var rootCmd = &cobra.Command{
	Use:           "logpipe-stress",
	Short:         "Exercise the logpipe pipeline",
	Long:          `Drive a logpipe logger with concurrent producers, live reconfiguration, and heartbeat cycling.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML configuration file ([logpipe] table)")
	flags.StringArrayVarP(&overrides, "set", "s", nil, "configuration override key=value (repeatable)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.BoolVar(&watchConfig, "watch", false, "reload --config when it changes")
}

// harness owns the logger under test and its metrics endpoint
type harness struct {
	logger *logpipe.Logger
	server *http.Server
}

// newHarness configures and starts a logger from the persistent flags
func newHarness(ctx context.Context, defaults ...string) (*harness, error) {
	logger := logpipe.NewLogger()

	prom := metrics.NewPrometheus("")
	logger.SetObserver(prom)

	all := append(defaults, overrides...)
	var err error
	if configPath != "" {
		err = logger.LoadConfig(configPath, all...)
	} else {
		err = logger.ApplyConfigString(all...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}
	if err := logger.Start(); err != nil {
		return nil, fmt.Errorf("failed to start logger: %w", err)
	}

	h := &harness{logger: logger}

	if watchConfig && configPath != "" {
		if err := logger.WatchConfig(ctx, configPath); err != nil {
			_ = logger.Shutdown()
			return nil, err
		}
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		h.server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Status().Error("metrics", "metrics server failed", err)
			}
		}()
		fmt.Printf("Metrics served on http://%s/metrics\n", metricsAddr)
	}

	return h, nil
}

// close shuts the logger down and prints its final counters
func (h *harness) close(timeout time.Duration) error {
	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = h.server.Shutdown(ctx)
		cancel()
	}
	err := h.logger.Shutdown(timeout)
	printStats(h.logger.Stats())
	return err
}

func printStats(s logpipe.Stats) {
	fmt.Println("--- Pipeline counters ---")
	fmt.Printf("submitted=%d enqueued=%d direct=%d processed=%d\n", s.Submitted, s.Enqueued, s.DirectDelivered, s.Processed)
	fmt.Printf("discarded=%d dropped=%d filtered=%d lost=%d\n", s.Discarded, s.Dropped, s.Filtered, s.Lost)
	fmt.Printf("append_failures=%d stragglers=%d uptime=%v\n", s.AppendFailures, s.Stragglers, s.Uptime.Round(time.Millisecond))
}
