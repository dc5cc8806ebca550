package worker

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/clinica/intranet-api/pkg/metrics"
)

type fakeSource struct {
	calls atomic.Int32
}

func (f *fakeSource) Stats() sql.DBStats {
	f.calls.Add(1)
	return sql.DBStats{OpenConnections: 4, InUse: 3}
}

func TestPoolStatsWorkerSamplesUntilCancelled(t *testing.T) {
	m := metrics.New("test")
	src := &fakeSource{}
	w := NewPoolStatsWorker(src, m, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, float64(4), testutil.ToFloat64(m.DatabaseConnectionsOpen))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DatabaseConnectionsInUse))
}

func TestPoolStatsWorkerWithoutMetrics(t *testing.T) {
	src := &fakeSource{}
	w := NewPoolStatsWorker(src, nil, 0)
	w.sample()
	assert.Equal(t, int32(0), src.calls.Load())
}
