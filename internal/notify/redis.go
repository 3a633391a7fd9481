package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	publishTimeout = 2 * time.Second

	// publishBuffer bounds the events waiting to be published. Events are
	// refetch hints, so dropping one while a burst is queued loses nothing.
	publishBuffer = 64
)

type wireEvent struct {
	Table  string `json:"table"`
	Origin string `json:"origin"`
}

// RedisBridge fans change events out to other instances through a Redis
// pub/sub channel and relays theirs into the local Hub.
type RedisBridge struct {
	rc      *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  *log.Logger
	pending chan string

	// reconnectDelay is the pause before resubscribing after the pubsub channel closes.
	reconnectDelay time.Duration
}

// NewRedisBridge creates a bridge publishing on channel. Events are always
// delivered to hub first.
func NewRedisBridge(rc *redis.Client, channel string, hub *Hub, logger *log.Logger) *RedisBridge {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisBridge{
		rc:             rc,
		channel:        channel,
		origin:         uuid.New().String(),
		hub:            hub,
		logger:         logger,
		pending:        make(chan string, publishBuffer),
		reconnectDelay: time.Second,
	}
}

// Notify delivers the event locally and queues it for other instances.
// It never waits on Redis; Run does the publishing.
func (b *RedisBridge) Notify(table string) {
	b.hub.Notify(table)

	select {
	case b.pending <- table:
	default:
		b.logger.WithField("table", table).Debug("publish queue full, dropping change event")
	}
}

func (b *RedisBridge) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case table := <-b.pending:
			b.publish(ctx, table)
		}
	}
}

func (b *RedisBridge) publish(ctx context.Context, table string) {
	data, err := json.Marshal(wireEvent{Table: table, Origin: b.origin})
	if err != nil {
		b.logger.WithError(err).Error("marshal change event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.rc.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.WithError(err).WithField("table", table).Warn("publish change event")
	}
}

// Run publishes queued local events and relays events published by other
// instances until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) {
	published := make(chan struct{})
	go func() {
		defer close(published)
		b.publishLoop(ctx)
	}()
	defer func() { <-published }()

	for {
		sub := b.rc.Subscribe(ctx, b.channel)
		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var ev wireEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.WithError(err).Error("unable to parse change event")
					continue
				}
				if ev.Origin == b.origin || ev.Table == "" {
					continue
				}
				b.logger.WithField("table", ev.Table).Debug("remote change")
				b.hub.Notify(ev.Table)
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.reconnectDelay):
		}
	}
}
