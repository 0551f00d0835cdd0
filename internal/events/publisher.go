package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel room lifecycle events go out on.
const Channel = "room_events"

// Event types published for other services (history, analytics) to consume.
const (
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventRoomClosed        = "room_closed"
)

// RoomEvent is the payload published for every room lifecycle change.
type RoomEvent struct {
	Type         string `json:"type"`
	SessionCode  string `json:"sessionCode"`
	UserID       string `json:"userId,omitempty"`
	Participants int    `json:"participants"`
	At           string `json:"at"`
}

// Publisher fans room lifecycle events out over Redis pub/sub. With no Redis
// address configured it is a no-op, so single-process deployments need no
// broker.
type Publisher struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewPublisher(redisAddr string, log *zap.Logger) *Publisher {
	p := &Publisher{log: log}
	if redisAddr != "" {
		p.rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
	}
	return p
}

// Enabled reports whether a broker is configured.
func (p *Publisher) Enabled() bool { return p.rdb != nil }

// Publish sends one event. Failures are logged and swallowed; lifecycle
// events are advisory and must never affect the collaboration path.
func (p *Publisher) Publish(ctx context.Context, evt RoomEvent) {
	if p.rdb == nil {
		return
	}
	if evt.At == "" {
		evt.At = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Error("marshal room event failed", zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		p.log.Error("publish room event failed",
			zap.String("type", evt.Type),
			zap.String("sessionCode", evt.SessionCode),
			zap.Error(err))
	}
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
