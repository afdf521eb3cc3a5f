package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve the Prometheus metrics endpoint",
	Long: `Serve the console's Prometheus metrics on metrics.addr until
interrupted. Requires metrics.enabled in the configuration.`,
	RunE: runServeMetrics,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeMetrics(cmd *cobra.Command, args []string) error {
	a, cfg, err := buildApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	handler := a.MetricsHandler()
	if handler == nil {
		return fmt.Errorf("metrics are disabled; set metrics.enabled in the config")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Printf("serving metrics on http://%s/metrics\n", cfg.Metrics.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
