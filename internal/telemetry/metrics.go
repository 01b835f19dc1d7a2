package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsSubmitted      = prometheus.NewCounter(prometheus.CounterOpts{Name: "synthesis_jobs_submitted_total", Help: "Synthesis jobs accepted for background execution"})
	JobsCompleted      = prometheus.NewCounter(prometheus.CounterOpts{Name: "synthesis_jobs_completed_total", Help: "Synthesis jobs finished successfully"})
	JobsFailed         = prometheus.NewCounter(prometheus.CounterOpts{Name: "synthesis_jobs_failed_total", Help: "Synthesis jobs that ended in a terminal failure"})
	VideosDownloaded   = prometheus.NewCounter(prometheus.CounterOpts{Name: "videos_downloaded_total", Help: "Remote videos fetched into project folders"})
	VideosConcatenated = prometheus.NewCounter(prometheus.CounterOpts{Name: "videos_concatenated_total", Help: "Successful project concatenations"})
	VideosMerged       = prometheus.NewCounter(prometheus.CounterOpts{Name: "videos_merged_total", Help: "Successful video/audio merges"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsSubmitted,
			JobsCompleted,
			JobsFailed,
			VideosDownloaded,
			VideosConcatenated,
			VideosMerged,
		)
	})
	return promhttp.Handler()
}
