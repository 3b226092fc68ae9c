package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ezasdf/users-api/types"
)

const (
	attrEventType   = "event_type"
	attrContentType = "content_type"
	contentTypeJSON = "application/json"
)

// Events publishes and consumes account events on one channel.
type Events struct {
	mq      *MQ
	channel string
	logger  *slog.Logger
}

func NewEvents(m *MQ, channel string, logger *slog.Logger) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{mq: m, channel: channel, logger: logger}
}

// Publish encodes event as JSON and sends it to the events channel.
func (e *Events) Publish(ctx context.Context, event types.AccountEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	attrs := map[string]string{
		attrEventType:   string(event.Type),
		attrContentType: contentTypeJSON,
	}
	if _, err := e.mq.Publish(ctx, e.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Tail delivers each decoded event to fn until ctx is done. Payloads that
// do not decode are logged and acknowledged so they are not redelivered.
func (e *Events) Tail(ctx context.Context, fn func(ctx context.Context, event types.AccountEvent) error) error {
	return e.mq.Subscribe(ctx, e.channel, func(ctx context.Context, msg Message) error {
		var event types.AccountEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			e.logger.Warn("dropping undecodable account event",
				slog.String("message_id", msg.ID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fn(ctx, event)
	})
}
