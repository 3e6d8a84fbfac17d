package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"cascadenet/field"
)

const sampleYAML = `
server:
  maxPlayers: 2
  tickMicroseconds: 16667
  maxLagTicks: 20
  startCountdownTicks: 60
  fieldConfs: [default]
fieldConfs:
  default:
    swapTicks: 4
    manualRaiseSpeed: 8000
    raiseSpeeds: [600, 800]
    raiseSpeedChanges: [3600]
    stopCombo0: 10
    stopComboK: 2
    stopChain0: 20
    stopChainK: 5
    gbHangTicks: 90
    flashTicks: 36
    levitateTicks: 6
    popTicks: 5
    pop0Ticks: 10
    transformTicks: 12
    colorCount: 6
    raiseAdjacent: alternate
    lostTicks: 30
`

func writeConf(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a well-formed configuration file", t, func() {
		sc, presets, err := Load(writeConf(t, sampleYAML))
		So(err, ShouldBeNil)

		Convey("The server section decodes", func() {
			So(sc.MaxPlayers, ShouldEqual, 2)
			So(sc.TickMicroseconds, ShouldEqual, uint64(16667))
			So(sc.MaxLagTicks, ShouldEqual, uint64(20))
			So(sc.StartCountdownTicks, ShouldEqual, uint64(60))
			So(sc.FieldConfs, ShouldResemble, []string{"default"})
		})

		Convey("The named preset decodes and validates", func() {
			fc, ok := presets["default"]
			So(ok, ShouldBeTrue)
			So(fc.SwapTicks, ShouldEqual, uint64(4))
			So(fc.RaiseSpeeds, ShouldResemble, []int{600, 800})
			So(fc.RaiseSpeedChanges, ShouldResemble, []uint64{3600})
			So(fc.GbHangTicks, ShouldEqual, uint64(90))
			So(fc.ColorCount, ShouldEqual, 6)
			So(fc.RaiseAdjacent, ShouldEqual, field.RaiseAdjacentAlternate)
			So(fc.Validate(), ShouldBeNil)
		})
	})

	Convey("A lag window at or above gb_hang_ticks is rejected", t, func() {
		doc := `
server:
  maxPlayers: 2
  tickMicroseconds: 16667
  maxLagTicks: 90
  fieldConfs: [default]
fieldConfs:
  default:
    swapTicks: 4
    manualRaiseSpeed: 8000
    raiseSpeeds: [600]
    gbHangTicks: 90
    flashTicks: 36
    levitateTicks: 6
    popTicks: 5
    pop0Ticks: 10
    transformTicks: 12
    colorCount: 6
    lostTicks: 30
`
		_, _, err := Load(writeConf(t, doc))
		So(err, ShouldEqual, ErrLagWindowTooWide)
	})

	Convey("An unknown raiseAdjacent mode fails the preset decode", t, func() {
		doc := `
server:
  maxPlayers: 2
  tickMicroseconds: 16667
  maxLagTicks: 20
  fieldConfs: [default]
fieldConfs:
  default:
    swapTicks: 4
    manualRaiseSpeed: 8000
    raiseSpeeds: [600]
    raiseAdjacent: sideways
    gbHangTicks: 90
    flashTicks: 36
    levitateTicks: 6
    popTicks: 5
    pop0Ticks: 10
    transformTicks: 12
    colorCount: 6
    lostTicks: 30
`
		_, _, err := Load(writeConf(t, doc))
		So(err, ShouldNotBeNil)
	})

	Convey("An invalid preset fails FieldConf validation", t, func() {
		doc := `
server:
  maxPlayers: 2
  tickMicroseconds: 16667
  maxLagTicks: 20
  fieldConfs: [default]
fieldConfs:
  default:
    swapTicks: 0
    manualRaiseSpeed: 8000
    raiseSpeeds: [600]
    gbHangTicks: 90
    flashTicks: 36
    levitateTicks: 6
    popTicks: 5
    pop0Ticks: 10
    transformTicks: 12
    colorCount: 6
    lostTicks: 30
`
		_, _, err := Load(writeConf(t, doc))
		So(err, ShouldNotBeNil)
	})
}
