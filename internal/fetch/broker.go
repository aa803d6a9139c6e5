package fetch

import "sync"

// Broker fans resolution events out to per-resolution subscribers. It is a
// Reporter, so it can sit next to the reconciler channel in a MultiReporter.
type Broker struct {
	mu   sync.Mutex
	subs map[string][]chan Event
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]chan Event)}
}

// Report delivers the event to every subscriber of its resolution. Slow
// subscribers lose progress updates rather than blocking the resolution
// pipeline, but a terminal event evicts the oldest buffered event so the
// stream always learns that the resolution settled.
func (b *Broker) Report(e Event) {
	b.mu.Lock()
	chans := make([]chan Event, len(b.subs[e.ResolutionID]))
	copy(chans, b.subs[e.ResolutionID])
	b.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- e:
			continue
		default:
		}
		if !e.Type.Terminal() {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a channel of events for one resolution and a cancel
// function that unregisters and closes it.
func (b *Broker) Subscribe(resolutionID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[resolutionID] = append(b.subs[resolutionID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		chans := b.subs[resolutionID]
		for i, c := range chans {
			if c == ch {
				b.subs[resolutionID] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(b.subs[resolutionID]) == 0 {
			delete(b.subs, resolutionID)
		}
		b.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}
