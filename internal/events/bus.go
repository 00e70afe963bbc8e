// Package events fans submission and account events out to WebSocket
// subscribers.
package events

import (
	"strings"
	"sync"
)

const (
	TypeSubmissionState = "submission_state"
	TypeAccountSnapshot = "account_snapshot"
)

const subscriberBuffer = 100

type Event struct {
	Type string `json:"type"`
	// Account scopes the event; it is not sent on the wire.
	Account string `json:"-"`
	Data    any    `json:"data"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]string
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]string)}
}

// Subscribe returns a channel receiving events for account. An empty account
// receives every event. Slow subscribers drop events rather than block
// publishers.
func (b *Bus) Subscribe(account string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = strings.ToLower(strings.TrimSpace(account))
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evt Event) {
	account := strings.ToLower(strings.TrimSpace(evt.Account))
	b.mu.RLock()
	for ch, filter := range b.subs {
		if filter != "" && filter != account {
			continue
		}
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
