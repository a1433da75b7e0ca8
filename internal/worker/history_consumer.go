package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"tabrecall/backend/features/history"
	"tabrecall/backend/internal/middleware"
)

// Recorder is the slice of the history service the consumer needs.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// HistoryConsumer turns tab activity events into history entries.
type HistoryConsumer struct {
	recorder Recorder
}

func NewHistoryConsumer(recorder Recorder) *HistoryConsumer {
	return &HistoryConsumer{recorder: recorder}
}

func (c *HistoryConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload TabActivityPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		slog.Error("invalid tab activity message", "error", err)
		return nil // don't retry malformed messages
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	_, err := c.recorder.Record(ctx, history.Entry{
		TabID:     payload.TabID,
		URL:       payload.URL,
		Title:     payload.Title,
		Action:    payload.Action,
		Timestamp: payload.Timestamp,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to record tab activity", "error", err, "action", payload.Action)
		return err
	}
	return nil
}
