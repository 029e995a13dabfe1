package api

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
	Subscribe(runID string) chan RunEvent
	Unsubscribe(runID string, ch chan RunEvent)
	Publish(runID string, evt RunEvent)
}

// RedisBroker implements EventBroker over Redis Pub/Sub so run events
// reach subscribers on other replicas. Events published by this replica
// are also retained locally and replayed to late subscribers; a
// subscriber racing a publish may therefore see an event twice, which
// progress notifications tolerate.
type RedisBroker struct {
	rdb *redis.Client

	mu     sync.Mutex
	subs   map[chan RunEvent]*redis.PubSub
	replay map[string][]RunEvent
}

func NewRedisBroker() (*RedisBroker, error) {
	opt, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		return nil, err
	}
	return &RedisBroker{
		rdb:    redis.NewClient(opt),
		subs:   map[chan RunEvent]*redis.PubSub{},
		replay: map[string][]RunEvent{},
	}, nil
}

func (b *RedisBroker) Subscribe(runID string) chan RunEvent {
	ch := make(chan RunEvent, replayLimit+16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(runID))
	_, _ = ps.Receive(ctx) // confirm subscription before returning

	b.mu.Lock()
	for _, evt := range b.replay[runID] {
		ch <- evt
	}
	b.subs[ch] = ps
	b.mu.Unlock()

	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

func (b *RedisBroker) Unsubscribe(runID string, ch chan RunEvent) {
	b.mu.Lock()
	ps := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close() // closes ps.Channel, which ends the fan-out goroutine
	}
}

func (b *RedisBroker) Publish(runID string, evt RunEvent) {
	b.mu.Lock()
	evts := append(b.replay[runID], evt)
	if len(evts) > replayLimit {
		evts = evts[len(evts)-replayLimit:]
	}
	b.replay[runID] = evts
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = b.rdb.Publish(ctx, b.chanName(runID), data).Err()
}

func (b *RedisBroker) chanName(runID string) string { return "fairshare:run:" + runID }
