package googlefit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// aggregateServer answers dataset:aggregate calls via respond, which picks a
// response based on the requested data source ID.
func aggregateServer(t *testing.T, respond func(req aggregateRequest) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/dataset:aggregate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		var req aggregateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode aggregate request: %v", err)
		}
		status, body := respond(req)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func pointsBody(points string) string {
	return fmt.Sprintf(`{"bucket":[{"dataset":[{"point":[%s]}]}]}`, points)
}

const emptyBody = `{"bucket":[{"dataset":[{"point":[]}]}]}`

func day(n int) time.Time { return time.Unix(int64(n)*86_400, 0).UTC() }

func TestSteps_FirstNonZeroSourceWins(t *testing.T) {
	var queried []string
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		source := req.AggregateBy[0].DataSourceID
		queried = append(queried, source)
		if source == sources.StepSources[1] {
			return 200, pointsBody(`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"intVal":4200}]}`)
		}
		return 200, emptyBody
	})
	defer srv.Close()

	steps, err := newTestClient(srv).Steps(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if steps != 4200 {
		t.Fatalf("steps = %d, want 4200", steps)
	}
	// First source was empty, second source answered; the rest never ran.
	if len(queried) != 2 {
		t.Fatalf("queried %d sources, want 2: %v", len(queried), queried)
	}
}

func TestSteps_UnscopedFallback(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		if req.AggregateBy[0].DataSourceID != "" {
			return 500, `{}`
		}
		return 200, pointsBody(`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"intVal":777}]}`)
	})
	defer srv.Close()

	steps, err := newTestClient(srv).Steps(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if steps != 777 {
		t.Fatalf("steps = %d, want 777", steps)
	}
}

func TestSteps_NeverFails(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 500, `{}`
	})
	defer srv.Close()

	steps, err := newTestClient(srv).Steps(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("Steps must degrade to zero, got error %v", err)
	}
	if steps != 0 {
		t.Fatalf("steps = %d, want 0", steps)
	}
}

func TestCalories_SumsAndRounds(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 200, pointsBody(`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"fpVal":1200.3}]},` +
			`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"fpVal":650.4}]}`)
	})
	defer srv.Close()

	kcal, err := newTestClient(srv).Calories(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("Calories: %v", err)
	}
	if kcal != 1851 {
		t.Fatalf("calories = %d, want 1851", kcal)
	}
}

func TestSleep_SumsSegmentDurations(t *testing.T) {
	// Two segments: 6h and 1h, expressed in nanoseconds.
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 200, pointsBody(
			`{"startTimeNanos":"0","endTimeNanos":"21600000000000","value":[{"intVal":2}]},` +
				`{"startTimeNanos":"21600000000000","endTimeNanos":"25200000000000","value":[{"intVal":2}]}`)
	})
	defer srv.Close()

	hours, err := newTestClient(srv).Sleep(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if hours != 7 {
		t.Fatalf("sleep hours = %v, want 7", hours)
	}
}

func TestHeartRate_ReturnsSamples(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		if req.BucketByTime.DurationMillis != hourMillis {
			t.Errorf("heart rate bucket = %d, want hourly", req.BucketByTime.DurationMillis)
		}
		return 200, pointsBody(
			`{"startTimeNanos":"3600000000000","endTimeNanos":"7200000000000","value":[{"fpVal":62}]},` +
				`{"startTimeNanos":"7200000000000","endTimeNanos":"10800000000000","value":[{"fpVal":78}]}`)
	})
	defer srv.Close()

	samples, err := newTestClient(srv).HeartRate(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("HeartRate: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].BPM != 62 || samples[1].BPM != 78 {
		t.Fatalf("unexpected samples: %+v", samples)
	}
	if samples[0].Timestamp != 3_600_000 {
		t.Fatalf("timestamp = %d, want millis", samples[0].Timestamp)
	}
}

func TestBloodGlucose_LastReadingWinsConverted(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 200, pointsBody(
			`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"fpVal":5.0}]},` +
				`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"fpVal":6.1}]}`)
	})
	defer srv.Close()

	mgdl, err := newTestClient(srv).BloodGlucose(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("BloodGlucose: %v", err)
	}
	if mgdl == nil {
		t.Fatal("expected a reading")
	}
	// 6.1 mmol/L * 18 = 109.8 -> 110 mg/dL.
	if *mgdl != 110 {
		t.Fatalf("glucose = %d, want 110", *mgdl)
	}
}

func TestBloodGlucose_NoSamples(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 200, emptyBody
	})
	defer srv.Close()

	mgdl, err := newTestClient(srv).BloodGlucose(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("BloodGlucose: %v", err)
	}
	if mgdl != nil {
		t.Fatalf("glucose = %v, want nil", *mgdl)
	}
}

func TestBloodPressureAvg_MeansPairedReadings(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 200, pointsBody(
			`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"fpVal":120},{"fpVal":80}]},` +
				`{"startTimeNanos":"0","endTimeNanos":"0","value":[{"fpVal":130},{"fpVal":86}]}`)
	})
	defer srv.Close()

	bp, err := newTestClient(srv).BloodPressureAvg(context.Background(), "test-token", day(0), day(1))
	if err != nil {
		t.Fatalf("BloodPressureAvg: %v", err)
	}
	if bp == nil {
		t.Fatal("expected a reading")
	}
	if bp.Systolic != 125 || bp.Diastolic != 83 {
		t.Fatalf("bp = %+v, want 125/83", bp)
	}
}

func TestFetchers_PermissionDeniedDegrades(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 403, `{"error":{"code":403,"message":"insufficient permissions"}}`
	})
	defer srv.Close()
	c := newTestClient(srv)
	ctx := context.Background()

	if kcal, err := c.Calories(ctx, "test-token", day(0), day(1)); err != nil || kcal != 0 {
		t.Errorf("Calories under 403 = (%d, %v), want (0, nil)", kcal, err)
	}
	if hours, err := c.Sleep(ctx, "test-token", day(0), day(1)); err != nil || hours != 0 {
		t.Errorf("Sleep under 403 = (%v, %v), want (0, nil)", hours, err)
	}
	if samples, err := c.HeartRate(ctx, "test-token", day(0), day(1)); err != nil || samples != nil {
		t.Errorf("HeartRate under 403 = (%v, %v), want (nil, nil)", samples, err)
	}
	if mgdl, err := c.BloodGlucose(ctx, "test-token", day(0), day(1)); err != nil || mgdl != nil {
		t.Errorf("BloodGlucose under 403 = (%v, %v), want (nil, nil)", mgdl, err)
	}
	if bp, err := c.BloodPressureAvg(ctx, "test-token", day(0), day(1)); err != nil || bp != nil {
		t.Errorf("BloodPressureAvg under 403 = (%v, %v), want (nil, nil)", bp, err)
	}
}

func TestFetchError_SurfacesNon403Failures(t *testing.T) {
	srv := aggregateServer(t, func(req aggregateRequest) (int, string) {
		return 401, `{}`
	})
	defer srv.Close()

	_, err := newTestClient(srv).Calories(context.Background(), "test-token", day(0), day(1))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsAuthRevoked(err) {
		t.Fatalf("401 on a data call should read as revoked, got %v", err)
	}
}

func TestNanosDecoding(t *testing.T) {
	tests := []struct {
		in   string
		want nanos
	}{
		{in: `"1700000000000000000"`, want: 1_700_000_000_000_000_000},
		{in: `1700000000000000000`, want: 1_700_000_000_000_000_000},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
	}
	for _, tc := range tests {
		var n nanos
		if err := json.Unmarshal([]byte(tc.in), &n); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if n != tc.want {
			t.Fatalf("nanos(%s) = %d, want %d", tc.in, n, tc.want)
		}
	}
}
