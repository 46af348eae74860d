package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Bus fans every event out three ways: in-process subscribers (the websocket
// hub), a Redis channel (hubs on other instances), and a Kafka topic
// (external consumers). Origin tagging keeps an instance from re-delivering
// its own events when they come back over Redis.
type Bus struct {
	id      string
	writer  *kafka.Writer
	rdb     *redis.Client
	channel string
	log     *zap.SugaredLogger

	mu   sync.RWMutex
	subs []func(Event)
}

func NewBus(brokers []string, topic string, rdb *redis.Client, channel string, log *zap.SugaredLogger) *Bus {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
	}
	return &Bus{
		id:      uuid.NewString(),
		writer:  writer,
		rdb:     rdb,
		channel: channel,
		log:     log,
	}
}

// Subscribe registers an in-process listener. Listeners must not block.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

func (b *Bus) Publish(ev Event) {
	ev.Origin = b.id
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.deliver(ev)

	data, err := json.Marshal(ev)
	if err != nil {
		b.log.Errorw("marshal event", "type", ev.Type, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		b.log.Warnw("redis publish", "type", ev.Type, "err", err)
	}
	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ConversationID),
		Value: data,
	}); err != nil {
		b.log.Warnw("kafka publish", "type", ev.Type, "err", err)
	}
}

// Run consumes the Redis channel and delivers events published by other
// instances until the context is cancelled.
func (b *Bus) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warnw("decode event", "err", err)
				continue
			}
			if ev.Origin == b.id {
				continue // already delivered locally
			}
			b.deliver(ev)
		}
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (b *Bus) Close() error {
	return b.writer.Close()
}
