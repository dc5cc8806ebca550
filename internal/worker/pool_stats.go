package worker

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinica/intranet-api/pkg/metrics"
)

// StatsSource is satisfied by database.Executor.
type StatsSource interface {
	Stats() sql.DBStats
}

// PoolStatsWorker samples connection pool statistics into the connection gauges.
type PoolStatsWorker struct {
	source   StatsSource
	metrics  *metrics.Metrics
	interval time.Duration
}

func NewPoolStatsWorker(source StatsSource, m *metrics.Metrics, interval time.Duration) *PoolStatsWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &PoolStatsWorker{
		source:   source,
		metrics:  m,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (w *PoolStatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sample()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("pool stats worker stopped")
			return
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *PoolStatsWorker) sample() {
	if w.metrics == nil {
		return
	}

	s := w.source.Stats()
	w.metrics.DatabaseConnectionsOpen.Set(float64(s.OpenConnections))
	w.metrics.DatabaseConnectionsInUse.Set(float64(s.InUse))

	if s.WaitCount > 0 {
		log.Debug().
			Int64("wait_count", s.WaitCount).
			Dur("wait_duration", s.WaitDuration).
			Msg("connection pool waits observed")
	}
}
