package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Download pipeline metrics
var (
	VideoDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ondemand_video_downloads_total",
			Help: "Total number of video tasks by terminal state.",
		},
		[]string{"status"},
	)

	DownloadedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ondemand_downloaded_bytes_total",
			Help: "Total number of video bytes written to disk.",
		},
	)

	ManifestRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ondemand_manifest_requests_total",
			Help: "Total number of module manifest queries by outcome.",
		},
		[]string{"status"},
	)

	ActiveTransfers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ondemand_active_transfers",
			Help: "Number of video bodies currently streaming to disk.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		VideoDownloadsTotal,
		DownloadedBytesTotal,
		ManifestRequestsTotal,
		ActiveTransfers,
	)
}
