package distribute

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"cascadenet/field"
	"cascadenet/garbage"
	"cascadenet/match"
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

func newMatch(players int) *match.Match {
	m := match.New()
	for i := 0; i < players; i++ {
		m.AddField(testConf(), 1)
	}
	return m
}

func comboSizes(events []Event) (sizes []int) {
	for _, ev := range events {
		if ev.Kind == EventNewGarbage {
			sizes = append(sizes, ev.Garbage.Size.X)
		}
	}
	return
}

func TestComboGarbageSizing(t *testing.T) {
	Convey("Given a two-player match", t, func() {
		m := newMatch(2)
		d := New(m)

		cases := []struct {
			combo int
			sizes []int
		}{
			{4, []int{3}},
			{7, []int{6}},
			{8, []int{3, 4}},
			{9, []int{4, 4}},
			{12, []int{6, 6}},
			{13, []int{6, 6, 6}},
			{19, []int{6, 6, 6, 6}},
			{26, []int{6, 6, 6, 6, 6, 6}},
			{27, []int{6, 6, 6, 6, 6, 6, 6, 6}},
		}
		for _, tc := range cases {
			m = newMatch(2)
			d = New(m)
			d.UpdateGarbages(0, field.StepInfo{Combo: tc.combo})
			So(comboSizes(d.Events()), ShouldResemble, tc.sizes)
		}

		Convey("A combo of three or fewer sends nothing", func() {
			d.Reset()
			d.UpdateGarbages(0, field.StepInfo{Combo: 3})
			So(len(d.Events()), ShouldEqual, 0)
		})
	})
}

func TestComboTargetRoundRobin(t *testing.T) {
	Convey("Given a three-player match", t, func() {
		m := newMatch(3)
		d := New(m)

		Convey("Successive combos from one attacker alternate targets", func() {
			d.UpdateGarbages(0, field.StepInfo{Combo: 4})
			d.UpdateGarbages(0, field.StepInfo{Combo: 4})
			d.UpdateGarbages(0, field.StepInfo{Combo: 4})
			So(len(m.Fields[1].Hanging()), ShouldEqual, 2)
			So(len(m.Fields[2].Hanging()), ShouldEqual, 1)
		})

		Convey("Both blocks of a split combo land on the same target", func() {
			d.UpdateGarbages(0, field.StepInfo{Combo: 9})
			one := len(m.Fields[1].Hanging())
			two := len(m.Fields[2].Hanging())
			So(one+two, ShouldEqual, 2)
			So(one == 2 || two == 2, ShouldBeTrue)
		})

		Convey("Garbage identifiers never collide", func() {
			for i := 0; i < 8; i++ {
				d.UpdateGarbages(0, field.StepInfo{Combo: 9})
			}
			seen := map[garbage.ID]bool{}
			for _, f := range m.Fields {
				for _, g := range f.Hanging() {
					So(seen[g.GbID], ShouldBeFalse)
					seen[g.GbID] = true
				}
			}
		})
	})
}

// prepareChainField lays out a two-stage cascade on the attacker: the A-row
// match drops a B onto a waiting pair, and that match drops two Cs onto the
// freshly cleared cells beside a waiting C, giving chain values 2 then 3
// without any input.
func prepareChainField(f *field.Field) {
	blk := func(c int) field.Block {
		return field.Block{Kind: field.KindColor, Color: field.ColorRest, ColorIdx: c}
	}
	for x := 0; x < field.Width; x++ {
		f.Grid().Set(x, field.PreviewRow, blk(5))
	}
	for x := 0; x < 3; x++ {
		f.Grid().Set(x, field.BottomRow, blk(0))
	}
	f.Grid().Set(3, field.BottomRow, blk(1))
	f.Grid().Set(4, field.BottomRow, blk(1))
	f.Grid().Set(5, field.BottomRow, blk(2))
	f.Grid().Set(2, 2, blk(1))
	f.Grid().Set(3, 2, blk(2))
	f.Grid().Set(4, 2, blk(2))
}

func TestChainGarbageLifecycle(t *testing.T) {
	Convey("Given an attacker with a prepared two-step cascade", t, func() {
		m := newMatch(2)
		d := New(m)
		a, b := m.Fields[0], m.Fields[1]
		prepareChainField(a)
		for x := 0; x < field.Width; x++ {
			b.Grid().Set(x, field.PreviewRow, field.Block{Kind: field.KindColor, Color: field.ColorRest, ColorIdx: 5})
		}

		var events []Event
		for t := 0; t < 100; t++ {
			info := a.Step(0)
			d.UpdateGarbages(0, info)
			events = append(events, d.Events()...)
		}

		Convey("The first chain step creates a height-1 chain garbage", func() {
			var created []Event
			for _, ev := range events {
				if ev.Kind == EventNewGarbage {
					created = append(created, ev)
				}
			}
			So(len(created), ShouldEqual, 1)
			So(created[0].Garbage.Type, ShouldEqual, garbage.Chain)
			So(created[0].Garbage.Size, ShouldResemble, garbage.Size{X: field.Width, Y: 1})
			So(created[0].Garbage.ToField, ShouldEqual, 2)

			Convey("And the next chain step grows it instead of creating another", func() {
				var updates []Event
				for _, ev := range events {
					if ev.Kind == EventUpdateGarbage {
						updates = append(updates, ev)
					}
				}
				So(len(updates), ShouldEqual, 1)
				So(updates[0].Garbage.Size.Y, ShouldEqual, 2)
				So(len(b.Hanging()), ShouldEqual, 1)
				So(b.Hanging()[0].Size.Y, ShouldEqual, 2)
			})

			Convey("Once the chain ends and the hang delay passes, the garbage waits", func() {
				var waiting []Event
				for t := 0; t < 120; t++ {
					b.Step(0)
					d.UpdateGarbages(1, field.StepInfo{})
					waiting = append(waiting, d.Events()...)
				}
				So(len(waiting), ShouldEqual, 1)
				So(waiting[0].Kind, ShouldEqual, EventWaiting)
				So(len(b.Hanging()), ShouldEqual, 0)
				So(len(b.Waiting()), ShouldEqual, 1)

				Convey("Acknowledging drops it onto the field where it settles", func() {
					id := b.Waiting()[0].GbID
					So(m.AckGarbageDrop(id), ShouldBeTrue)
					for t := 0; t < 20; t++ {
						b.Step(0)
					}
					So(len(b.OnField()), ShouldEqual, 1)
					got := b.OnField()[0]
					So(got.Size, ShouldResemble, garbage.Size{X: field.Width, Y: 2})
					So(got.Pos.Y, ShouldEqual, field.BottomRow)
					for x := 0; x < field.Width; x++ {
						for y := got.Pos.Y; y < got.Pos.Y+got.Size.Y; y++ {
							cell := b.Grid().At(x, y)
							So(cell.IsGarbage(), ShouldBeTrue)
							So(cell.GbID, ShouldEqual, id)
						}
					}
				})
			})
		})
	})
}
