package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.ObserveStage("load", 6, 150*time.Millisecond)
	r.ObserveStage("deduplicate", 5, time.Millisecond)
	r.SetCleaning(1, 2)
	r.MarkSuccess(time.Unix(1700000000, 0))

	assert.Equal(t, 6.0, testutil.ToFloat64(r.stageRows.WithLabelValues("load")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.stageRows.WithLabelValues("deduplicate")))
	assert.InDelta(t, 0.15, testutil.ToFloat64(r.stageDuration.WithLabelValues("load")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.duplicates))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.outliers))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastSuccess))
	assert.Equal(t, 2, testutil.CollectAndCount(r.stageRows))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("window", 3, time.Second)

	path := filepath.Join(t.TempDir(), "textfile", "brokerage.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `brokerage_stage_rows{stage="window"} 3`)
	assert.Contains(t, string(data), "# HELP brokerage_duplicates_removed")
}
