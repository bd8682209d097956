package googlefit

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
)

// Google Fit data type names.
const (
	dataTypeSteps         = "com.google.step_count.delta"
	dataTypeCalories      = "com.google.calories.expended"
	dataTypeSleep         = "com.google.sleep.segment"
	dataTypeHeartRate     = "com.google.heart_rate.bpm"
	dataTypeBloodGlucose  = "com.google.blood_glucose"
	dataTypeBloodPressure = "com.google.blood_pressure"
)

// mmol/L to mg/dL conversion factor for blood glucose.
const glucoseMgPerMmol = 18

// HeartRateSample is one heart-rate observation.
type HeartRateSample struct {
	BPM       float64 `json:"bpm"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// BloodPressure is a paired systolic/diastolic reading in mmHg.
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

func dayBucketRequest(dataType, sourceID string, start, end time.Time) aggregateRequest {
	return aggregateRequest{
		AggregateBy:     []aggregateBy{{DataTypeName: dataType, DataSourceID: sourceID}},
		BucketByTime:    bucketByTime{DurationMillis: dayMillis},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	}
}

// Steps returns the total step count in the window. Known data sources are
// tried in priority order and the first non-zero total wins; an unscoped
// query is the final fallback. Steps never fails: any provider error on the
// last attempt degrades to zero.
func (c *Client) Steps(ctx context.Context, accessToken string, start, end time.Time) (int, error) {
	for _, sourceID := range sources.StepSources {
		resp, err := c.aggregate(ctx, accessToken, dayBucketRequest(dataTypeSteps, sourceID, start, end), dataTypeSteps)
		if err != nil {
			continue
		}
		if total := sumIntValues(resp); total > 0 {
			return total, nil
		}
	}

	// All named sources empty or failing: unscoped query.
	resp, err := c.aggregate(ctx, accessToken, dayBucketRequest(dataTypeSteps, "", start, end), dataTypeSteps)
	if err != nil {
		c.logger.Debug("step data unavailable", zap.Error(err))
		return 0, nil
	}
	return sumIntValues(resp), nil
}

// Calories returns the total expended calories in the window, rounded to the
// nearest kcal. A 403 degrades to zero.
func (c *Client) Calories(ctx context.Context, accessToken string, start, end time.Time) (int, error) {
	resp, err := c.aggregate(ctx, accessToken,
		dayBucketRequest(dataTypeCalories, sources.CalorieSource, start, end), dataTypeCalories)
	if err != nil {
		if errors.Is(err, errPermissionUnavailable) {
			return 0, nil
		}
		return 0, err
	}

	var total float64
	forEachPoint(resp, func(p aggPoint) {
		if len(p.Value) > 0 {
			total += p.Value[0].FpVal
		}
	})
	return int(math.Round(total)), nil
}

// Sleep returns the total slept hours in the window, summing segment
// durations at nanosecond precision. A 403 degrades to zero.
func (c *Client) Sleep(ctx context.Context, accessToken string, start, end time.Time) (float64, error) {
	resp, err := c.aggregate(ctx, accessToken, dayBucketRequest(dataTypeSleep, "", start, end), dataTypeSleep)
	if err != nil {
		if errors.Is(err, errPermissionUnavailable) {
			return 0, nil
		}
		return 0, err
	}

	var totalNanos int64
	forEachPoint(resp, func(p aggPoint) {
		if len(p.Value) > 0 {
			totalNanos += int64(p.EndTimeNanos) - int64(p.StartTimeNanos)
		}
	})
	return float64(totalNanos) / float64(time.Hour.Nanoseconds()), nil
}

// HeartRate returns the raw bpm sample sequence in the window, bucketed
// hourly. The caller reduces to a mean. A 403 degrades to no samples.
func (c *Client) HeartRate(ctx context.Context, accessToken string, start, end time.Time) ([]HeartRateSample, error) {
	req := aggregateRequest{
		AggregateBy:     []aggregateBy{{DataTypeName: dataTypeHeartRate}},
		BucketByTime:    bucketByTime{DurationMillis: hourMillis},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	}
	resp, err := c.aggregate(ctx, accessToken, req, dataTypeHeartRate)
	if err != nil {
		if errors.Is(err, errPermissionUnavailable) {
			return nil, nil
		}
		return nil, err
	}

	var samples []HeartRateSample
	forEachPoint(resp, func(p aggPoint) {
		if len(p.Value) > 0 {
			samples = append(samples, HeartRateSample{
				BPM:       p.Value[0].FpVal,
				Timestamp: int64(p.StartTimeNanos) / int64(time.Millisecond),
			})
		}
	})
	return samples, nil
}

// BloodGlucose returns the most recent reading in the window converted from
// mmol/L to mg/dL, or nil when no samples exist. Requires an elevated grant;
// a 403 degrades to nil.
func (c *Client) BloodGlucose(ctx context.Context, accessToken string, start, end time.Time) (*int, error) {
	resp, err := c.aggregate(ctx, accessToken, dayBucketRequest(dataTypeBloodGlucose, "", start, end), dataTypeBloodGlucose)
	if err != nil {
		if errors.Is(err, errPermissionUnavailable) {
			return nil, nil
		}
		return nil, err
	}

	// Last point wins, not an average.
	var latest *float64
	forEachPoint(resp, func(p aggPoint) {
		if len(p.Value) > 0 && p.Value[0].FpVal != 0 {
			v := p.Value[0].FpVal
			latest = &v
		}
	})
	if latest == nil {
		return nil, nil
	}
	mgdl := int(math.Round(*latest * glucoseMgPerMmol))
	return &mgdl, nil
}

// BloodPressureAvg returns the mean systolic and diastolic across all paired
// samples in the window, or nil when none exist. A 403 degrades to nil.
func (c *Client) BloodPressureAvg(ctx context.Context, accessToken string, start, end time.Time) (*BloodPressure, error) {
	resp, err := c.aggregate(ctx, accessToken, dayBucketRequest(dataTypeBloodPressure, "", start, end), dataTypeBloodPressure)
	if err != nil {
		if errors.Is(err, errPermissionUnavailable) {
			return nil, nil
		}
		return nil, err
	}

	var sysTotal, diaTotal float64
	var count int
	forEachPoint(resp, func(p aggPoint) {
		if len(p.Value) >= 2 && p.Value[0].FpVal != 0 && p.Value[1].FpVal != 0 {
			sysTotal += p.Value[0].FpVal
			diaTotal += p.Value[1].FpVal
			count++
		}
	})
	if count == 0 {
		return nil, nil
	}
	return &BloodPressure{
		Systolic:  int(math.Round(sysTotal / float64(count))),
		Diastolic: int(math.Round(diaTotal / float64(count))),
	}, nil
}

func sumIntValues(resp *aggregateResponse) int {
	var total int64
	forEachPoint(resp, func(p aggPoint) {
		if len(p.Value) > 0 {
			total += p.Value[0].IntVal
		}
	})
	return int(total)
}

func forEachPoint(resp *aggregateResponse, fn func(aggPoint)) {
	for _, b := range resp.Bucket {
		for _, ds := range b.Dataset {
			for _, p := range ds.Point {
				fn(p)
			}
		}
	}
}
