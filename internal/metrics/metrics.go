// Package metrics exposes Prometheus counters for weight loading and merging.
package metrics

import (
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	WeightsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paramtree_weights_updated_total",
		Help: "Total number of tensors replaced by weight merges",
	})

	WeightsUnknown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paramtree_weights_unknown_total",
		Help: "Total number of incoming tensors with no matching path in the module tree",
	})

	WeightsShapeMismatch = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paramtree_weights_shape_mismatch_total",
		Help: "Total number of incoming tensors rejected for a shape mismatch",
	})

	WeightFilesLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paramtree_weight_files_loaded_total",
		Help: "Total number of weight files parsed, by format",
	}, []string{"format"})

	WeightLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paramtree_weight_load_duration_seconds",
		Help:    "Time spent parsing and merging a weight file",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordMerge adds the per-key outcomes of one merge.
func RecordMerge(updated, unknown, mismatched int) {
	WeightsUpdated.Add(float64(updated))
	WeightsUnknown.Add(float64(unknown))
	WeightsShapeMismatch.Add(float64(mismatched))
}

// RecordLoad records one parsed weight file.
func RecordLoad(format string, d time.Duration) {
	WeightFilesLoaded.WithLabelValues(format).Inc()
	WeightLoadDuration.Observe(d.Seconds())
}

// WriteText writes the paramtree_* metric families from the default registry
// to w in the Prometheus text exposition format.
func WriteText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "paramtree_") {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
