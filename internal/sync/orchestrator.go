// Package sync runs the per-connection Google Fit sync workflow and the
// scheduled reconciliation job over all active connections.
package sync

import (
	"context"
	"errors"
	"fmt"
	"math"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/sweettrack/backend/internal/db/models"
	"github.com/sweettrack/backend/internal/googlefit"
	"github.com/sweettrack/backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Orchestrator terminal conditions.
var (
	// ErrNotConnected means the user has no active Google Fit connection.
	ErrNotConnected = errors.New("sync: google fit not connected")

	// ErrRevoked means the provider permanently rejected the connection's
	// credentials; the connection was marked inactive and the user must
	// re-authorize.
	ErrRevoked = errors.New("sync: google fit access revoked")
)

// Provider is the slice of googlefit.Client the orchestrator depends on.
type Provider interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*googlefit.TokenResponse, error)
	Steps(ctx context.Context, accessToken string, start, end time.Time) (int, error)
	Calories(ctx context.Context, accessToken string, start, end time.Time) (int, error)
	Sleep(ctx context.Context, accessToken string, start, end time.Time) (float64, error)
	HeartRate(ctx context.Context, accessToken string, start, end time.Time) ([]googlefit.HeartRateSample, error)
	BloodGlucose(ctx context.Context, accessToken string, start, end time.Time) (*int, error)
	BloodPressureAvg(ctx context.Context, accessToken string, start, end time.Time) (*googlefit.BloodPressure, error)
}

// Snapshot is the aggregated result of one sync pass, mirroring the persisted
// daily metric row.
type Snapshot struct {
	Steps         int                      `json:"steps"`
	Calories      int                      `json:"calories"`
	SleepHours    float64                  `json:"sleepHours"`
	HeartRateAvg  *int                     `json:"heartRateAvg"`
	BloodGlucose  *int                     `json:"bloodGlucose"`
	BloodPressure *googlefit.BloodPressure `json:"bloodPressure"`
	SyncedAt      time.Time                `json:"syncedAt"`
}

// Orchestrator drives the per-connection state machine: ensure fresh token,
// fetch all metrics concurrently, reduce, persist, update the connection.
type Orchestrator struct {
	db       *gorm.DB
	provider Provider
	logger   *zap.Logger
	metrics  *metrics.Metrics

	// userLocks serializes syncs per user so two overlapping syncs cannot race
	// on the same token refresh.
	userLocks stdsync.Map // userID -> *stdsync.Mutex

	now func() time.Time
}

// NewOrchestrator builds an Orchestrator.
func NewOrchestrator(db *gorm.DB, provider Provider, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		db:       db,
		provider: provider,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// SyncUser runs one full sync pass for the user's connection and returns the
// resulting snapshot. Individual fetcher failures degrade their field to the
// empty value; only a missing connection or a revoked grant fail the pass.
func (o *Orchestrator) SyncUser(ctx context.Context, userID string) (*Snapshot, error) {
	mu := o.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	start := o.now()
	snap, err := o.syncLocked(ctx, userID)
	if o.metrics != nil {
		o.metrics.SyncDuration.Observe(o.now().Sub(start).Seconds())
		switch {
		case err == nil:
			o.metrics.SyncTotal.WithLabelValues(metrics.OutcomeSynced).Inc()
		case errors.Is(err, ErrRevoked):
			o.metrics.SyncTotal.WithLabelValues(metrics.OutcomeRevoked).Inc()
		default:
			o.metrics.SyncTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		}
	}
	return snap, err
}

func (o *Orchestrator) syncLocked(ctx context.Context, userID string) (*Snapshot, error) {
	var conn models.Connection
	if err := o.db.Where("user_id = ? AND is_active = ?", userID, true).First(&conn).Error; err != nil {
		return nil, ErrNotConnected
	}

	accessToken, err := o.ensureFreshToken(ctx, &conn)
	if err != nil {
		return nil, err
	}

	now := o.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	snap, authErr := o.fetchAll(ctx, accessToken, dayStart, now)
	if authErr != nil {
		conn.IsActive = false
		if saveErr := o.db.Save(&conn).Error; saveErr != nil {
			o.logger.Warn("failed to deactivate connection",
				zap.String("user_id", conn.UserID), zap.Error(saveErr))
		}
		o.logger.Info("connection revoked mid-fetch, re-authorization required",
			zap.String("user_id", conn.UserID))
		return nil, fmt.Errorf("%w: %w", ErrRevoked, authErr)
	}
	snap.SyncedAt = now

	if err := o.persistSnapshot(userID, dayStart, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	conn.LastSync = now
	conn.SyncFailures = 0
	conn.NextRetryAt = time.Time{}
	if err := o.db.Save(&conn).Error; err != nil {
		return nil, fmt.Errorf("update connection: %w", err)
	}

	o.logger.Debug("sync complete",
		zap.String("user_id", userID),
		zap.Int("steps", snap.Steps),
		zap.Float64("sleep_hours", snap.SleepHours))
	return snap, nil
}

// ensureFreshToken refreshes the access token when it has expired. The new
// token and expiry are persisted before any fetch runs. Invalid grants mark
// the connection inactive and surface as ErrRevoked.
func (o *Orchestrator) ensureFreshToken(ctx context.Context, conn *models.Connection) (string, error) {
	if o.now().Before(conn.TokenExpiry) {
		return conn.AccessToken, nil
	}

	token, err := o.provider.RefreshAccessToken(ctx, conn.RefreshToken)
	if err != nil {
		if googlefit.IsAuthRevoked(err) {
			conn.IsActive = false
			if saveErr := o.db.Save(conn).Error; saveErr != nil {
				o.logger.Warn("failed to deactivate connection",
					zap.String("user_id", conn.UserID), zap.Error(saveErr))
			}
			o.logger.Info("connection revoked, re-authorization required",
				zap.String("user_id", conn.UserID))
			return "", fmt.Errorf("%w: %w", ErrRevoked, err)
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	conn.AccessToken = token.AccessToken
	conn.TokenExpiry = o.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	// Google rarely reissues a refresh token here; never clobber the stored
	// one with an empty value.
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}
	if err := o.db.Save(conn).Error; err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}
	return conn.AccessToken, nil
}

// fetchAll launches the six fetchers concurrently with settle-all semantics:
// every closure captures its own result and swallows its own error, so one
// failing fetcher never cancels the rest. The returned error is non-nil only
// when a fetcher saw a 401, meaning the access token stopped being accepted
// mid-pass and the connection must be deactivated.
func (o *Orchestrator) fetchAll(ctx context.Context, accessToken string, start, end time.Time) (*Snapshot, error) {
	snap := &Snapshot{}
	var hrSamples []googlefit.HeartRateSample

	var (
		authMu  stdsync.Mutex
		authErr error
	)
	degrade := func(field string, err error) {
		o.logger.Warn("fetch failed, field degraded",
			zap.String("field", field), zap.Error(err))
		if !googlefit.IsAuthRevoked(err) {
			return
		}
		authMu.Lock()
		if authErr == nil {
			authErr = err
		}
		authMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := o.provider.Steps(gctx, accessToken, start, end)
		if err != nil {
			degrade("steps", err)
			return nil
		}
		snap.Steps = v
		return nil
	})
	g.Go(func() error {
		v, err := o.provider.Calories(gctx, accessToken, start, end)
		if err != nil {
			degrade("calories", err)
			return nil
		}
		snap.Calories = v
		return nil
	})
	g.Go(func() error {
		v, err := o.provider.Sleep(gctx, accessToken, start, end)
		if err != nil {
			degrade("sleep", err)
			return nil
		}
		snap.SleepHours = v
		return nil
	})
	g.Go(func() error {
		v, err := o.provider.HeartRate(gctx, accessToken, start, end)
		if err != nil {
			degrade("heart_rate", err)
			return nil
		}
		hrSamples = v
		return nil
	})
	g.Go(func() error {
		v, err := o.provider.BloodGlucose(gctx, accessToken, start, end)
		if err != nil {
			degrade("blood_glucose", err)
			return nil
		}
		snap.BloodGlucose = v
		return nil
	})
	g.Go(func() error {
		v, err := o.provider.BloodPressureAvg(gctx, accessToken, start, end)
		if err != nil {
			degrade("blood_pressure", err)
			return nil
		}
		snap.BloodPressure = v
		return nil
	})

	_ = g.Wait() // closures never return errors

	snap.HeartRateAvg = meanHeartRate(hrSamples)
	return snap, authErr
}

// persistSnapshot upserts the daily metric row for (userID, day). Manual
// fields like water intake are preserved on update.
func (o *Orchestrator) persistSnapshot(userID string, day time.Time, snap *Snapshot) error {
	dayKey := models.DayKey(day)

	var metric models.DailyMetric
	err := o.db.Where("user_id = ? AND day = ?", userID, dayKey).First(&metric).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metric = models.DailyMetric{
			ID:     uuid.New().String(),
			UserID: userID,
			Day:    dayKey,
		}
	} else if err != nil {
		return err
	}

	metric.Source = models.SourceGoogleFit
	metric.Steps = snap.Steps
	metric.Calories = snap.Calories
	metric.SleepHours = snap.SleepHours
	metric.HeartRateAvg = snap.HeartRateAvg
	metric.BloodGlucose = snap.BloodGlucose
	if snap.BloodPressure != nil {
		metric.Systolic = &snap.BloodPressure.Systolic
		metric.Diastolic = &snap.BloodPressure.Diastolic
	} else {
		metric.Systolic = nil
		metric.Diastolic = nil
	}
	metric.SyncedAt = snap.SyncedAt

	return o.db.Save(&metric).Error
}

func (o *Orchestrator) lockFor(userID string) *stdsync.Mutex {
	mu, _ := o.userLocks.LoadOrStore(userID, &stdsync.Mutex{})
	return mu.(*stdsync.Mutex)
}

// meanHeartRate reduces raw samples to a rounded mean, nil when empty.
func meanHeartRate(samples []googlefit.HeartRateSample) *int {
	if len(samples) == 0 {
		return nil
	}
	var sum float64
	for _, s := range samples {
		sum += s.BPM
	}
	avg := int(math.Round(sum / float64(len(samples))))
	return &avg
}
