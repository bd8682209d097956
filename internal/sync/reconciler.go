package sync

import (
	"context"
	"errors"
	"time"

	"github.com/sweettrack/backend/internal/db/models"
	"github.com/sweettrack/backend/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Backoff for connections whose sync fails for non-auth reasons: doubles from
// 5 minutes per consecutive failure, capped at 6 hours.
const (
	backoffBase = 5 * time.Minute
	backoffMax  = 6 * time.Hour
)

// Reconciler periodically re-syncs every active connection. Failures are per
// connection: one bad connection never aborts the batch, and the job itself
// never fails outward.
type Reconciler struct {
	db      *gorm.DB
	orch    *Orchestrator
	logger  *zap.Logger
	metrics *metrics.Metrics

	interval time.Duration
	now      func() time.Time
}

// NewReconciler builds a Reconciler running every interval.
func NewReconciler(db *gorm.DB, orch *Orchestrator, logger *zap.Logger, m *metrics.Metrics, interval time.Duration) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		db:       db,
		orch:     orch,
		logger:   logger,
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the reconciliation loop until ctx is canceled.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
	r.logger.Info("reconciliation job started", zap.Duration("interval", r.interval))
}

// RunOnce re-queries the current active connection set and syncs each one in
// turn. Connections inside their backoff window are deferred to a later run.
func (r *Reconciler) RunOnce(ctx context.Context) {
	var conns []models.Connection
	if err := r.db.Where("is_active = ?", true).Order("user_id").Find(&conns).Error; err != nil {
		r.logger.Error("load active connections", zap.Error(err))
		return
	}
	if r.metrics != nil {
		r.metrics.ActiveConnections.Set(float64(len(conns)))
	}

	now := r.now()
	for _, conn := range conns {
		if ctx.Err() != nil {
			return
		}
		if !conn.NextRetryAt.IsZero() && now.Before(conn.NextRetryAt) {
			if r.metrics != nil {
				r.metrics.SyncTotal.WithLabelValues(metrics.OutcomeDeferred).Inc()
			}
			continue
		}

		if _, err := r.orch.SyncUser(ctx, conn.UserID); err != nil {
			switch {
			case errors.Is(err, ErrRevoked):
				// Orchestrator already deactivated the connection.
				r.logger.Warn("connection revoked during reconciliation",
					zap.String("user_id", conn.UserID))
			case errors.Is(err, ErrNotConnected):
				// Disconnected between query and sync; nothing to do.
			default:
				r.deferConnection(conn, now)
				r.logger.Error("sync failed, backoff scheduled",
					zap.String("user_id", conn.UserID), zap.Error(err))
			}
		}
	}
}

// deferConnection records a consecutive failure and schedules the next retry
// with exponential backoff rather than silently failing every cycle.
func (r *Reconciler) deferConnection(conn models.Connection, now time.Time) {
	failures := conn.SyncFailures + 1
	backoff := backoffBase << (failures - 1)
	if backoff > backoffMax || backoff <= 0 {
		backoff = backoffMax
	}
	updates := map[string]any{
		"sync_failures": failures,
		"next_retry_at": now.Add(backoff),
	}
	if err := r.db.Model(&models.Connection{}).Where("id = ?", conn.ID).Updates(updates).Error; err != nil {
		r.logger.Warn("failed to record sync backoff",
			zap.String("user_id", conn.UserID), zap.Error(err))
	}
}
