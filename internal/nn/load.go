package nn

import (
	"fmt"
	"time"

	"github.com/born-ml/paramtree/internal/config"
	"github.com/born-ml/paramtree/internal/loader"
	"github.com/born-ml/paramtree/internal/logger"
	"github.com/born-ml/paramtree/internal/metrics"
)

// LoadOption configures LoadWeights.
type LoadOption func(*loadOptions)

type loadOptions struct {
	mapper     loader.NameMapper
	autoMapper bool
}

// WithNameMapper renames file tensors through mapper before merging.
func WithNameMapper(mapper loader.NameMapper) LoadOption {
	return func(o *loadOptions) {
		o.mapper = mapper
	}
}

// WithDetectedMapper picks the name mapper from the file itself (see
// loader.DetectMapper). An explicit WithNameMapper takes precedence.
func WithDetectedMapper() LoadOption {
	return func(o *loadOptions) {
		o.autoMapper = true
	}
}

// LoadWeights reads the weight file at path and merges it into the tree rooted
// at c. Tensors are placed on cfg.Device.
//
// The file format is checked before anything is read, so an unsupported path
// returns *loader.UnsupportedFormatError and leaves the tree untouched. Read or
// parse failures are also returned before any slot changes. Once parsing
// succeeds, merging follows Update: per-key problems go in the report, not the
// error.
func LoadWeights(c Component, path string, cfg config.Config, opts ...LoadOption) (*UpdateReport, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	format, err := loader.DetectFormat(path)
	if err != nil {
		return nil, err
	}

	mapper := o.mapper
	if mapper == nil && o.autoMapper {
		if mapper, err = loader.DetectMapper(path); err != nil {
			return nil, fmt.Errorf("detect name mapping: %w", err)
		}
	}

	start := time.Now()
	weights, err := loader.LoadMapped(path, cfg.Device, mapper)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}

	report, err := Update(c, weights)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if cfg.Metrics {
		metrics.RecordLoad(format.String(), elapsed)
		metrics.RecordMerge(len(report.Updated), len(report.Unknown), len(report.ShapeMismatches))
	}

	logger.Log.Info("loaded weights",
		"path", path,
		"format", format.String(),
		"device", cfg.Device.String(),
		"tensors", len(weights),
		"updated", len(report.Updated),
		"unknown", len(report.Unknown),
		"shape_mismatch", len(report.ShapeMismatches),
		"missing", len(report.Missing),
		"elapsed", elapsed)

	return report, nil
}
