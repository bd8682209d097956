package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sweettrack/backend/internal/db/models"
	"github.com/sweettrack/backend/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Progress is today's tracked totals for one user.
type Progress struct {
	Steps      int     `json:"steps"`
	Calories   int     `json:"calories"`
	SleepHours float64 `json:"sleepHours"`
	Water      int     `json:"water"`
}

// ProgressMessages builds the reminder lines for unmet goals.
func ProgressMessages(current Progress, goals models.Goals) []string {
	var messages []string
	if current.Steps < goals.Steps {
		messages = append(messages, fmt.Sprintf("You still have %d steps to go", goals.Steps-current.Steps))
	}
	if current.Calories < goals.Calories {
		messages = append(messages, fmt.Sprintf("You can still consume %d kcal today", goals.Calories-current.Calories))
	}
	if current.SleepHours < goals.Sleep {
		messages = append(messages, fmt.Sprintf("You need %.1f more hours of sleep", goals.Sleep-current.SleepHours))
	}
	if current.Water < goals.Water {
		messages = append(messages, "You haven't completed your water goal")
	}
	return messages
}

// TodayProgress loads the user's metric row for today, zero-valued when none.
func TodayProgress(db *gorm.DB, userID string, now time.Time) Progress {
	var metric models.DailyMetric
	err := db.Where("user_id = ? AND day = ?", userID, models.DayKey(now)).First(&metric).Error
	if err != nil {
		return Progress{}
	}
	return Progress{
		Steps:      metric.Steps,
		Calories:   metric.Calories,
		SleepHours: metric.SleepHours,
		Water:      metric.Water,
	}
}

// Evaluator periodically checks every user's goal progress and pushes
// reminders for unmet goals. Fire-and-forget: failures are logged per user
// and never abort the run.
type Evaluator struct {
	db      *gorm.DB
	sender  Sender
	logger  *zap.Logger
	metrics *metrics.Metrics

	interval time.Duration
	now      func() time.Time
}

// NewEvaluator builds an Evaluator running every interval.
func NewEvaluator(db *gorm.DB, sender Sender, logger *zap.Logger, m *metrics.Metrics, interval time.Duration) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		db:       db,
		sender:   sender,
		logger:   logger,
		metrics:  m,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the evaluation loop until ctx is canceled.
func (e *Evaluator) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.RunOnce(ctx)
			}
		}
	}()
	e.logger.Info("goal evaluation job started", zap.Duration("interval", e.interval))
}

// RunOnce evaluates all users with goals and sends reminders for unmet ones.
func (e *Evaluator) RunOnce(ctx context.Context) {
	var allGoals []models.Goals
	if err := e.db.Find(&allGoals).Error; err != nil {
		e.logger.Error("load goals", zap.Error(err))
		return
	}

	now := e.now()
	for _, goals := range allGoals {
		if ctx.Err() != nil {
			return
		}
		if !goals.PushEnabled {
			continue
		}

		var settings models.Settings
		if err := e.db.Where("user_id = ?", goals.UserID).First(&settings).Error; err == nil {
			if !settings.NotificationsEnabled || !settings.GoalAlerts {
				continue
			}
		}

		messages := ProgressMessages(TodayProgress(e.db, goals.UserID, now), goals)
		if len(messages) == 0 {
			continue
		}

		var tokens []models.PushToken
		if err := e.db.Where("user_id = ?", goals.UserID).Find(&tokens).Error; err != nil || len(tokens) == 0 {
			continue
		}

		batch := make([]Message, 0, len(tokens))
		for _, t := range tokens {
			batch = append(batch, Message{
				To:    t.Token,
				Sound: "default",
				Title: "Goal Update",
				Body:  messages[0],
				Data:  map[string]any{"messages": messages},
			})
		}

		if err := e.sender.Send(ctx, batch); err != nil {
			e.logger.Warn("goal push delivery failed",
				zap.String("user_id", goals.UserID), zap.Error(err))
			continue
		}
		if e.metrics != nil {
			e.metrics.NotificationsSent.Add(float64(len(batch)))
		}

		e.db.Model(&models.Goals{}).Where("id = ?", goals.ID).
			Update("last_evaluated_at", now)
	}
}
