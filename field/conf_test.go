package field

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConfValidate(t *testing.T) {
	Convey("Given a valid configuration", t, func() {
		conf := testConf()
		So(conf.Validate(), ShouldBeNil)

		Convey("A speed curve needs one more speed than change points", func() {
			conf.RaiseSpeeds = []int{100, 200}
			So(conf.Validate(), ShouldEqual, ErrRaiseSpeedsLengthMismatch)

			conf.RaiseSpeedChanges = []uint64{500}
			So(conf.Validate(), ShouldBeNil)
		})

		Convey("Change points must strictly increase", func() {
			conf.RaiseSpeeds = []int{100, 200, 300}
			conf.RaiseSpeedChanges = []uint64{500, 500}
			So(conf.Validate(), ShouldEqual, ErrRaiseSpeedChangesNotIncreasing)

			conf.RaiseSpeedChanges = []uint64{500, 900}
			So(conf.Validate(), ShouldBeNil)
		})

		Convey("Every tick-duration field must be positive", func() {
			conf.FlashTicks = 0
			So(conf.Validate(), ShouldEqual, ErrNonPositiveTickField)
		})

		Convey("The colour count is bounded", func() {
			conf.ColorCount = 3
			So(conf.Validate(), ShouldEqual, ErrColorCountOutOfRange)
			conf.ColorCount = 16
			So(conf.Validate(), ShouldEqual, ErrColorCountOutOfRange)
			conf.ColorCount = 15
			So(conf.Validate(), ShouldBeNil)
		})
	})
}

func TestRNGSequence(t *testing.T) {
	Convey("The generator is a plain LCG over the given seed", t, func() {
		r := NewRNG(1)
		// seed' = 1103515245*1 + 12345; out = (seed'/65536) % 32768
		So(r.Next(), ShouldEqual, int((uint64(1103515245)+12345)/65536%32768))

		Convey("Identical seeds give identical sequences", func() {
			a, b := NewRNG(99), NewRNG(99)
			for i := 0; i < 1000; i++ {
				So(a.Next(), ShouldEqual, b.Next())
			}
		})
	})
}
