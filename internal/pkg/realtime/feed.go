package realtime

import (
	"context"
	"sync"
)

const defaultFeedWindow = 512

// Feed drops deliveries whose id was already seen by this subscriber. The same
// message can arrive twice when a client loads history and then subscribes, or
// when the Kafka bridge echoes a message back.
type Feed struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	order  []string
	window int
}

// NewFeed remembers up to window ids; older ids are forgotten first
func NewFeed(window int) *Feed {
	if window <= 0 {
		window = defaultFeedWindow
	}
	return &Feed{seen: make(map[string]struct{}, window), window: window}
}

// Mark records id and reports whether it was new
func (f *Feed) Mark(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = struct{}{}
	f.order = append(f.order, id)
	if len(f.order) > f.window {
		delete(f.seen, f.order[0])
		f.order = f.order[1:]
	}
	return true
}

// Stream forwards deliveries from in, skipping duplicates
func (f *Feed) Stream(ctx context.Context, in <-chan Delivery) <-chan Delivery {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for d := range in {
			if !f.Mark(d.ID) {
				continue
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
