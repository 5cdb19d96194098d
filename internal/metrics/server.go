package metrics

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer creates the server exposing download metrics at /metrics for the
// duration of a run. Unset address or port fall back to the configured defaults.
func NewHTTPServer(cfg *config.Config) *http.Server {
	address, port := config.DefaultMetricsAddress, config.DefaultMetricsPort
	if cfg != nil {
		if cfg.Metrics.Address != "" {
			address = cfg.Metrics.Address
		}
		if cfg.Metrics.Port != 0 {
			port = cfg.Metrics.Port
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}),
	))
	return &http.Server{
		Addr:              net.JoinHostPort(address, strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
