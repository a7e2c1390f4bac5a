package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/tko-aly/usersvc/types"
)

// UserEvents publishes and consumes user change events on one channel.
type UserEvents struct {
	mq      *MQ
	channel string
}

func NewUserEvents(m *MQ, channel string) *UserEvents {
	return &UserEvents{mq: m, channel: channel}
}

// Channel returns the channel events are published to.
func (e *UserEvents) Channel() string {
	return e.channel
}

// PublishUserEvent encodes the event as JSON and publishes it.
func (e *UserEvents) PublishUserEvent(ctx context.Context, event types.UserEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode user event: %w", err)
	}
	attrs := map[string]string{
		"type":          event.Type,
		AttrContentType: "application/json",
	}
	if _, err := e.mq.Publish(ctx, e.channel, data, attrs); err != nil {
		return fmt.Errorf("publish user event: %w", err)
	}
	return nil
}

// Tail delivers decoded events to fn until ctx is done. Undecodable messages
// are logged and acknowledged so they are not redelivered.
func (e *UserEvents) Tail(ctx context.Context, fn func(context.Context, types.UserEvent) error) error {
	return e.mq.Subscribe(ctx, e.channel, func(ctx context.Context, msg Message) error {
		var event types.UserEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("drop undecodable message %s on %s: %v", msg.ID, e.channel, err)
			return nil
		}
		return fn(ctx, event)
	})
}
