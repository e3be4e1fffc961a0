package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.runsTotal)
	assert.NotNil(t, collector.nodeExecutionsTotal)
	assert.NotNil(t, collector.snapshotOpsTotal)
}

func TestCollector_RecordRun(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordRun("completed", 2*time.Second, 3)
	collector.RecordRun("completed", time.Second, 2)
	collector.RecordRun("failed", 500*time.Millisecond, 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.runsTotal.WithLabelValues("failed")))
}

func TestCollector_RecordNodeExecution(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordNodeExecution("strategy", "success", 100*time.Millisecond)
	collector.RecordNodeExecution("strategy", "success", 150*time.Millisecond)
	collector.RecordNodeExecution("visual", "error", 50*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.nodeExecutionsTotal.WithLabelValues("strategy", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.nodeExecutionsTotal.WithLabelValues("visual", "error")))
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordHTTPRequest("POST", "/api/workflow/run", 200, 30*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/api/workflow/run", 409, 2*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/workflow/run", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/workflow/run", "4xx")))
}

func TestCollector_SetGraphSize(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.SetGraphSize(5, 4)
	assert.Equal(t, float64(5), testutil.ToFloat64(collector.graphNodes))
	assert.Equal(t, float64(4), testutil.ToFloat64(collector.graphEdges))

	collector.SetGraphSize(0, 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(collector.graphNodes))
}

func TestCollector_RecordSnapshotOperation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordSnapshotOperation("save", nil)
	collector.RecordSnapshotOperation("load", assert.AnError)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.snapshotOpsTotal.WithLabelValues("save", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.snapshotOpsTotal.WithLabelValues("load", "error")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(302))
	assert.Equal(t, "4xx", statusCode(409))
	assert.Equal(t, "5xx", statusCode(500))
	assert.Equal(t, "unknown", statusCode(0))
}
