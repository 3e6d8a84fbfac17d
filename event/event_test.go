package event

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBusFanOut(t *testing.T) {
	Convey("Given a bus with two subscribers", t, func() {
		done := make(chan struct{})
		defer close(done)
		bus := NewBus(done)
		subs := bus.Subscribe(2)
		So(len(subs), ShouldEqual, 2)

		Convey("Every subscriber receives every event in order", func() {
			go func() {
				bus.Emit(KindPlayerJoined, uint32(1))
				bus.Emit(KindPlayerRanked, uint32(1))
			}()

			for _, sub := range subs {
				first := <-sub
				So(first.Kind, ShouldEqual, KindPlayerJoined)
				So(first.Payload, ShouldEqual, uint32(1))
			}
			for _, sub := range subs {
				second := <-sub
				So(second.Kind, ShouldEqual, KindPlayerRanked)
			}
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Merge combines several event channels into one", t, func() {
		done := make(chan struct{})
		defer close(done)

		a := make(chan Event)
		b := make(chan Event)
		merged := Merge(done, a, b)

		go func() {
			a <- Event{Kind: KindGarbageDropped}
			b <- Event{Kind: KindFieldStepped}
			close(a)
			close(b)
		}()

		kinds := map[Kind]bool{}
		for i := 0; i < 2; i++ {
			ev := <-merged
			kinds[ev.Kind] = true
		}
		So(kinds[KindGarbageDropped], ShouldBeTrue)
		So(kinds[KindFieldStepped], ShouldBeTrue)
	})
}
