// Package stall watches open batches for inactivity. The monitor only ever
// observes and alerts; cancelling, completing, or touching a stalled batch
// is always an explicit external action.
package stall

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/repositories"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
	"github.com/quadica/batchplan/pkg/infrastructure/metrics"
)

// Monitor sweeps InProgress batches on an interval and emits escalating
// inactivity alerts: the first at the threshold, then one more each
// reminder interval.
type Monitor struct {
	batches          repositories.BatchRepository
	store            events.EventStore
	metrics          *metrics.Metrics
	logger           *zap.Logger
	threshold        time.Duration
	reminderInterval time.Duration
	sweepInterval    time.Duration

	// emitted tracks the highest escalation level already alerted per
	// batch, so a sweep never re-sends the same level.
	emitted map[string]int
	now     func() time.Time
}

// NewMonitor creates a stall monitor
func NewMonitor(
	batches repositories.BatchRepository,
	store events.EventStore,
	m *metrics.Metrics,
	logger *zap.Logger,
	threshold, reminderInterval, sweepInterval time.Duration,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		batches:          batches,
		store:            store,
		metrics:          m,
		logger:           logger,
		threshold:        threshold,
		reminderInterval: reminderInterval,
		sweepInterval:    sweepInterval,
		emitted:          make(map[string]int),
		now:              time.Now,
	}
}

// SetClock overrides the time source; tests use this for determinism
func (m *Monitor) SetClock(now func() time.Time) { m.now = now }

// Run sweeps until the context is cancelled
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	m.logger.Info("stall monitor started",
		zap.Duration("threshold", m.threshold),
		zap.Duration("reminder_interval", m.reminderInterval),
		zap.Duration("sweep_interval", m.sweepInterval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("stall monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := m.Sweep(m.now()); err != nil {
				m.logger.Warn("stall sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep examines every open batch once. Exported so the embedding process
// (and tests) can trigger an immediate pass.
func (m *Monitor) Sweep(now time.Time) error {
	open, err := m.batches.GetInProgressBatches()
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(open))
	for _, batch := range open {
		seen[batch.ID] = true
		idle := now.Sub(batch.LastActivity)
		if idle < m.threshold {
			// Touched since the last alert; start over next time.
			delete(m.emitted, batch.ID)
			continue
		}

		level := 1 + int((idle-m.threshold)/m.reminderInterval)
		if level <= m.emitted[batch.ID] {
			continue
		}
		m.emitted[batch.ID] = level

		m.alert(batch, idle, level)
	}

	// Batches that closed since the last sweep need no bookkeeping.
	for id := range m.emitted {
		if !seen[id] {
			delete(m.emitted, id)
		}
	}
	return nil
}

func (m *Monitor) alert(batch *entities.Batch, idle time.Duration, level int) {
	if m.metrics != nil {
		m.metrics.StallAlerts.Inc()
	}
	m.logger.Warn("batch stalled",
		zap.String("batch", batch.ID),
		zap.String("base_type", batch.BaseType),
		zap.Duration("idle", idle),
		zap.Int("escalation_level", level))

	if m.store == nil {
		return
	}
	payload := events.BatchStalled{
		BatchID:         batch.ID,
		BaseType:        batch.BaseType,
		IdleFor:         idle.Round(time.Minute).String(),
		EscalationLevel: level,
	}
	if err := m.store.AppendEvent(batch.ID, events.NewEvent(events.BatchStalledEvent, batch.ID, payload)); err != nil {
		m.logger.Warn("stall alert delivery failed", zap.String("batch", batch.ID), zap.Error(err))
	}
}
