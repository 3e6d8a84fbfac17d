// Package event implements the observer fan-out of spec §9: server and
// client emit typed events (player joined, state changed, garbage dropped,
// field stepped) that must never be allowed to mutate the emitter's state
// re-entrantly. Bus is built on channerics' channel combinators, the same
// ones the teacher fans a single source channel out to several independent
// view builders with.
package event

import (
	channerics "github.com/niceyeti/channerics/channels"
)

// Kind tags the events a server or client instance can emit.
type Kind int

const (
	KindPlayerJoined Kind = iota
	KindPlayerStateChanged
	KindServerStateChanged
	KindGarbageAdded
	KindGarbageDropped
	KindFieldStepped
	KindPlayerRanked
)

// Event is one observer notification. Payload is the event-specific data
// (e.g. a garbage.Garbage, a plid, a StepInfo); consumers type-assert it.
type Event struct {
	Kind    Kind
	Payload any
}

// Bus is a single-producer, multi-consumer typed event channel. Handlers
// registered via Subscribe run in their own goroutine reading from the
// returned channel; they must not call back into whatever emitted the event
// from the same call stack (spec §9: "must not be allowed to mutate the
// emitter's state re-entrantly").
type Bus struct {
	done   chan struct{}
	source chan Event
}

// NewBus returns a Bus whose subscriber channels close when done fires.
func NewBus(done <-chan struct{}) *Bus {
	b := &Bus{
		done:   make(chan struct{}),
		source: make(chan Event, 64),
	}
	go func() {
		<-done
		close(b.done)
	}()
	return b
}

// Emit publishes one event toward every subscriber. It must be called from
// the owning goroutine only (spec §5: single-threaded cooperative model, no
// shared mutable state between threads). Events are advisory: when no
// subscriber is draining and the buffer is full, the event is dropped
// rather than stalling the emitter.
func (b *Bus) Emit(kind Kind, payload any) {
	select {
	case b.source <- Event{Kind: kind, Payload: payload}:
	case <-b.done:
	default:
	}
}

// Subscribe returns n channels, each receiving every event this subscription
// reads from the bus; every item is repeated to every output channel,
// serially one channel at a time. Events still buffered from before the call
// are delivered too, and separate Subscribe calls compete for events from the
// same source rather than each receiving all of them.
func (b *Bus) Subscribe(n int) []<-chan Event {
	outChans := make([]chan Event, n)
	outputs := make([]<-chan Event, n)
	for i := 0; i < n; i++ {
		outChans[i] = make(chan Event)
		outputs[i] = outChans[i]
	}

	go func() {
		defer func() {
			for _, ch := range outChans {
				close(ch)
			}
		}()
		for ev := range channerics.OrDone[Event](b.done, b.source) {
			for _, ch := range outChans {
				select {
				case ch <- ev:
				case <-b.done:
					return
				}
			}
		}
	}()

	return outputs
}

// Merge combines several Bus output channels (e.g. from different Subscribe
// calls, or from per-connection sub-buses) into one, via channerics.Merge.
func Merge(done <-chan struct{}, chans ...<-chan Event) <-chan Event {
	return channerics.Merge(done, chans...)
}
