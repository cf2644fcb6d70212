package main

import (
	"context"
	"net/http"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"golang.org/x/xerrors"
)

// serveMetrics exposes the registered views on addr until the returned
// stop function is called.
func serveMetrics(addr string) (func(), error) {
	exporter, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "proofs_bench",
	})
	if err != nil {
		return nil, xerrors.Errorf("creating prometheus exporter: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("failed to start http server", "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
