package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/service"
)

// DefaultBuffer is the number of pending messages kept per subscriber.
const DefaultBuffer = 32

// Feed fans committed exam mutations out to connected admin clients. It is a
// service.MutationListener and never blocks the mutation path: a subscriber
// whose buffer is full is marked lagged and its message dropped.
type Feed struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	log    zerolog.Logger
	now    func() time.Time
}

// Subscription receives feed messages on C until it is closed.
type Subscription struct {
	C      chan MutationMessage
	examID int64
	lagged bool
}

// NewFeed creates a feed with the given per-subscriber buffer.
func NewFeed(buffer int, log zerolog.Logger) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    log.With().Str("component", "ws_feed").Logger(),
		now:    time.Now,
	}
}

// Subscribe registers a subscriber. examID 0 receives events of every exam.
func (f *Feed) Subscribe(examID int64) *Subscription {
	sub := &Subscription{C: make(chan MutationMessage, f.buffer), examID: examID}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is safe.
func (f *Feed) Unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	close(sub.C)
}

// Close drops every subscriber, which ends their streams.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		delete(f.subs, sub)
		close(sub.C)
	}
}

// Len returns the number of active subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// TakeLagged reports whether messages were dropped for sub since the last call.
func (f *Feed) TakeLagged(sub *Subscription) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	lagged := sub.lagged
	sub.lagged = false
	return lagged
}

// MutationCompleted implements service.MutationListener.
func (f *Feed) MutationCompleted(_ context.Context, ev service.MutationEvent) {
	msg := MutationMessage{
		Event:  EventMutation,
		ExamID: ev.ExamID,
		Kind:   string(ev.Kind),
		At:     f.now().UTC(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		if sub.examID != 0 && sub.examID != ev.ExamID {
			continue
		}
		select {
		case sub.C <- msg:
		default:
			if !sub.lagged {
				f.log.Warn().Int64("exam_id", ev.ExamID).Msg("Subscriber buffer full, dropping events")
			}
			sub.lagged = true
		}
	}
}
