package match

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"cascadenet/field"
	"cascadenet/garbage"
)

func testConf() *field.Conf {
	return &field.Conf{
		SwapTicks:        4,
		ManualRaiseSpeed: 8000,
		RaiseSpeeds:      []int{0},
		StopCombo0:       10,
		StopComboK:       2,
		StopChain0:       20,
		StopChainK:       5,
		GbHangTicks:      30,
		FlashTicks:       8,
		LevitateTicks:    2,
		PopTicks:         3,
		Pop0Ticks:        2,
		TransformTicks:   6,
		ColorCount:       6,
		LostTicks:        10,
	}
}

func stepN(f *field.Field, n int) {
	for i := 0; i < n; i++ {
		f.Step(0)
	}
}

func TestMatchTick(t *testing.T) {
	Convey("Given a match with two fields", t, func() {
		m := New()
		a := m.AddField(testConf(), 1)
		b := m.AddField(testConf(), 1)
		So(a.FldID(), ShouldEqual, 1)
		So(b.FldID(), ShouldEqual, 2)

		Convey("The match tick is the slowest non-lost field's tick", func() {
			stepN(a, 3)
			stepN(b, 5)
			m.UpdateTick()
			So(m.Tick(), ShouldEqual, uint64(3))

			Convey("A lost field no longer holds the tick back", func() {
				a.Abort()
				m.UpdateTick()
				So(m.Tick(), ShouldEqual, uint64(5))
			})

			Convey("With every field lost, the highest tick wins so draws resolve", func() {
				a.Abort()
				b.Abort()
				m.UpdateTick()
				So(m.Tick(), ShouldEqual, uint64(5))
			})
		})
	})
}

func TestRanking(t *testing.T) {
	Convey("Given three fields where two lose on the same tick", t, func() {
		m := New()
		a := m.AddField(testConf(), 1)
		b := m.AddField(testConf(), 1)
		c := m.AddField(testConf(), 1)

		stepN(a, 2)
		a.Abort()
		stepN(b, 2)
		b.Abort()
		stepN(c, 5)
		m.UpdateTick()

		Convey("The tied losers share a rank and the survivor ends the match first", func() {
			ranked, ended := m.UpdateRanks()
			So(ended, ShouldBeTrue)
			So(len(ranked), ShouldEqual, 3)
			So(a.Rank(), ShouldEqual, 2)
			So(b.Rank(), ShouldEqual, 2)
			So(c.Rank(), ShouldEqual, 1)
		})
	})

	Convey("A field is not ranked before the match tick reaches its loss", t, func() {
		m := New()
		a := m.AddField(testConf(), 1)
		b := m.AddField(testConf(), 1)

		stepN(b, 8)
		b.Abort()
		m.UpdateTick() // still 0: a has not advanced
		So(m.Tick(), ShouldEqual, uint64(0))

		ranked, ended := m.UpdateRanks()
		So(len(ranked), ShouldEqual, 0)
		So(ended, ShouldBeFalse)

		Convey("Once the survivor catches up, the loss is ranked", func() {
			stepN(a, 8)
			m.UpdateTick()
			ranked, ended := m.UpdateRanks()
			So(ended, ShouldBeTrue)
			So(len(ranked), ShouldEqual, 2)
			So(b.Rank(), ShouldEqual, 2)
			So(a.Rank(), ShouldEqual, 1)
		})
	})
}

func TestGarbageRegistries(t *testing.T) {
	Convey("Given a garbage added to a field's hanging queue", t, func() {
		m := New()
		m.AddField(testConf(), 1)
		b := m.AddField(testConf(), 1)

		g := garbage.Garbage{GbID: 5, FromField: 1, ToField: 2, Type: garbage.Combo, Size: garbage.Size{X: 4, Y: 1}}
		m.AddGarbage(g, 0)

		So(len(b.Hanging()), ShouldEqual, 1)
		idx, ok := m.HangingField(5)
		So(ok, ShouldBeTrue)
		So(idx, ShouldEqual, 1)

		Convey("WaitGarbageDrop moves it from hanging to waiting", func() {
			moved, ok := m.WaitGarbageDrop(5)
			So(ok, ShouldBeTrue)
			So(moved.GbID, ShouldEqual, garbage.ID(5))
			So(len(b.Hanging()), ShouldEqual, 0)
			So(len(b.Waiting()), ShouldEqual, 1)
			_, stillHanging := m.HangingField(5)
			So(stillHanging, ShouldBeFalse)
			idx, ok := m.WaitingField(5)
			So(ok, ShouldBeTrue)
			So(idx, ShouldEqual, 1)

			Convey("AckGarbageDrop queues it, and the next step materialises it", func() {
				So(m.AckGarbageDrop(5), ShouldBeTrue)
				So(len(b.Waiting()), ShouldEqual, 0)

				b.Step(0)
				So(len(b.OnField()), ShouldEqual, 1)
				So(b.OnField()[0].GbID, ShouldEqual, garbage.ID(5))
			})

			Convey("Acknowledging twice is refused", func() {
				So(m.AckGarbageDrop(5), ShouldBeTrue)
				So(m.AckGarbageDrop(5), ShouldBeFalse)
			})
		})

		Convey("RemoveHanging discards it from both registries", func() {
			m.RemoveHanging(5)
			So(len(b.Hanging()), ShouldEqual, 0)
			_, ok := m.HangingField(5)
			So(ok, ShouldBeFalse)
		})

		Convey("Clear resets fields and registries", func() {
			m.Clear()
			So(len(m.Fields), ShouldEqual, 0)
			_, ok := m.HangingField(5)
			So(ok, ShouldBeFalse)
		})
	})
}
