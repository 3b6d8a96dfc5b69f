package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMerge(t *testing.T) {
	updated := testutil.ToFloat64(WeightsUpdated)
	unknown := testutil.ToFloat64(WeightsUnknown)
	mismatched := testutil.ToFloat64(WeightsShapeMismatch)

	RecordMerge(3, 1, 2)

	assert.Equal(t, updated+3, testutil.ToFloat64(WeightsUpdated))
	assert.Equal(t, unknown+1, testutil.ToFloat64(WeightsUnknown))
	assert.Equal(t, mismatched+2, testutil.ToFloat64(WeightsShapeMismatch))
}

func TestRecordLoad(t *testing.T) {
	before := testutil.ToFloat64(WeightFilesLoaded.WithLabelValues("GGUF"))
	RecordLoad("GGUF", 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(WeightFilesLoaded.WithLabelValues("GGUF")))
}

func TestWriteText(t *testing.T) {
	RecordLoad("SafeTensors", time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, `paramtree_weight_files_loaded_total{format="SafeTensors"}`)
	assert.Contains(t, out, "paramtree_weight_load_duration_seconds_bucket")
	assert.NotContains(t, out, "go_goroutines")
}
