// Package notify evaluates daily goal progress and delivers push
// notifications through a pluggable sender.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is one push notification addressed to a device token.
type Message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Sender delivers a batch of push messages. Implementations chunk and retry
// as they see fit; delivery is best effort.
type Sender interface {
	Send(ctx context.Context, messages []Message) error
}

// Expo caps receipts at 100 messages per request.
const expoChunkSize = 100

// ExpoSender posts messages to an Expo-compatible push endpoint in chunks.
type ExpoSender struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewExpoSender builds a sender for the given push endpoint URL.
func NewExpoSender(url string, logger *zap.Logger) *ExpoSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpoSender{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Send posts the batch in chunks. A failed chunk is logged and skipped; the
// first error is returned after all chunks were attempted.
func (s *ExpoSender) Send(ctx context.Context, messages []Message) error {
	var firstErr error
	for start := 0; start < len(messages); start += expoChunkSize {
		end := start + expoChunkSize
		if end > len(messages) {
			end = len(messages)
		}
		if err := s.sendChunk(ctx, messages[start:end]); err != nil {
			s.logger.Warn("push chunk delivery failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *ExpoSender) sendChunk(ctx context.Context, chunk []Message) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encode push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
