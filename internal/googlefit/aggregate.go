package googlefit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Bucket durations for dataset:aggregate requests.
const (
	dayMillis  = 86_400_000
	hourMillis = 3_600_000
)

type aggregateRequest struct {
	AggregateBy     []aggregateBy `json:"aggregateBy"`
	BucketByTime    bucketByTime  `json:"bucketByTime"`
	StartTimeMillis int64         `json:"startTimeMillis"`
	EndTimeMillis   int64         `json:"endTimeMillis"`
}

type aggregateBy struct {
	DataTypeName string `json:"dataTypeName"`
	DataSourceID string `json:"dataSourceId,omitempty"`
}

type bucketByTime struct {
	DurationMillis int64 `json:"durationMillis"`
}

type aggregateResponse struct {
	Bucket []aggBucket `json:"bucket"`
}

type aggBucket struct {
	Dataset []aggDataset `json:"dataset"`
}

type aggDataset struct {
	Point []aggPoint `json:"point"`
}

type aggPoint struct {
	StartTimeNanos nanos      `json:"startTimeNanos"`
	EndTimeNanos   nanos      `json:"endTimeNanos"`
	Value          []aggValue `json:"value"`
}

type aggValue struct {
	IntVal int64   `json:"intVal"`
	FpVal  float64 `json:"fpVal"`
}

// nanos decodes Google Fit nanosecond timestamps, which arrive as JSON
// strings on the REST surface but as numbers from some mirrors.
type nanos int64

func (n *nanos) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse nanos %q: %w", s, err)
	}
	*n = nanos(v)
	return nil
}

// aggregate posts one dataset:aggregate request. A 403 means the data type is
// not covered by the current grant; that is an expected steady-state outcome
// surfaced as errPermissionUnavailable, logged at debug only.
func (c *Client) aggregate(ctx context.Context, accessToken string, reqBody aggregateRequest, dataType string) (*aggregateResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode aggregate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/users/me/dataset:aggregate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build aggregate request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{DataType: dataType, Status: 0}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &FetchError{DataType: dataType, Status: resp.StatusCode}
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		c.logger.Debug("data type unavailable under current grant",
			zap.String("data_type", dataType))
		return nil, errPermissionUnavailable
	case resp.StatusCode >= 300:
		return nil, &FetchError{DataType: dataType, Status: resp.StatusCode}
	}

	var out aggregateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode aggregate response: %w", err)
	}
	return &out, nil
}
