// Package metrics records Prometheus metrics for one downscaler run.
//
// A batch run has no scrape endpoint, so metrics live in a private registry
// and are written once at the end of the run in the node_exporter textfile
// format (see [Recorder.WriteTextfile]). All metrics are prefixed with
// "downscaler_".
//
// Metrics:
//   - downscaler_files_total{result}: files by outcome (encoded, skipped, failed)
//   - downscaler_input_bytes_total, downscaler_output_bytes_total: bytes of
//     successfully encoded files
//   - downscaler_encode_duration_seconds{scaled}: per-file encode time
//   - downscaler_last_run_timestamp_seconds, downscaler_last_run_duration_seconds
//   - downscaler_last_run_success: 1 when no file failed and no error occurred
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File outcomes used as the "result" label.
const (
	ResultEncoded = "encoded"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Recorder holds the metrics for a single run.
type Recorder struct {
	reg *prometheus.Registry

	files          *prometheus.CounterVec
	inputBytes     prometheus.Counter
	outputBytes    prometheus.Counter
	encodeDuration *prometheus.HistogramVec
	lastRunTime    prometheus.Gauge
	lastRunDur     prometheus.Gauge
	lastRunSuccess prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	r := &Recorder{
		reg: reg,
		files: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "downscaler_files_total",
				Help: "Files processed, by result",
			},
			[]string{"result"},
		),
		inputBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "downscaler_input_bytes_total",
			Help: "Total bytes of source files that were encoded",
		}),
		outputBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "downscaler_output_bytes_total",
			Help: "Total bytes of encoded output files",
		}),
		encodeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "downscaler_encode_duration_seconds",
				Help:    "Per-file encode duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400, 3600, 7200},
			},
			[]string{"scaled"},
		),
		lastRunTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "downscaler_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		lastRunDur: f.NewGauge(prometheus.GaugeOpts{
			Name: "downscaler_last_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
		lastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "downscaler_last_run_success",
			Help: "Whether the last run finished without failures (1 = success)",
		}),
	}
	for _, res := range []string{ResultEncoded, ResultSkipped, ResultFailed} {
		r.files.WithLabelValues(res)
	}
	return r
}

// FileEncoded records a successful encode.
func (r *Recorder) FileEncoded(inBytes, outBytes int64, scaled bool, d time.Duration) {
	r.files.WithLabelValues(ResultEncoded).Inc()
	r.inputBytes.Add(float64(max(inBytes, 0)))
	r.outputBytes.Add(float64(max(outBytes, 0)))
	r.encodeDuration.WithLabelValues(strconv.FormatBool(scaled)).Observe(d.Seconds())
}

// FileSkipped records a skipped file.
func (r *Recorder) FileSkipped() { r.files.WithLabelValues(ResultSkipped).Inc() }

// FileFailed records a failed file.
func (r *Recorder) FileFailed() { r.files.WithLabelValues(ResultFailed).Inc() }

// RunFinished records the end of the run.
func (r *Recorder) RunFinished(end time.Time, d time.Duration, success bool) {
	r.lastRunTime.Set(float64(end.Unix()))
	r.lastRunDur.Set(d.Seconds())
	if success {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
}

// WriteTextfile writes all metrics to path in the Prometheus text format,
// atomically replacing any previous file.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
