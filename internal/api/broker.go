package api

import (
	"sync"
)

// RunEvent is one progress notification for an allocation run, fanned
// out to SSE and websocket subscribers.
type RunEvent struct {
	Type string
	Data map[string]any
}

// replayLimit caps the events retained per run for late subscribers.
// Run IDs are minted during the synchronous allocate call, so every
// subscriber is late by construction; without replay the stream would
// always be empty.
const replayLimit = 64

type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[chan RunEvent]struct{} // runId -> set of channels
	replay map[string][]RunEvent
}

func NewBroker() *Broker {
	return &Broker{
		subs:   map[string]map[chan RunEvent]struct{}{},
		replay: map[string][]RunEvent{},
	}
}

func (b *Broker) Subscribe(runID string) chan RunEvent {
	ch := make(chan RunEvent, replayLimit+8)
	b.mu.Lock()
	for _, evt := range b.replay[runID] {
		ch <- evt
	}
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan RunEvent]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan RunEvent) {
	b.mu.Lock()
	if m := b.subs[runID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, runID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(runID string, evt RunEvent) {
	b.mu.Lock()
	evts := append(b.replay[runID], evt)
	if len(evts) > replayLimit {
		evts = evts[len(evts)-replayLimit:]
	}
	b.replay[runID] = evts
	for ch := range b.subs[runID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
