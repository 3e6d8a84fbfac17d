package field

import "errors"

// Conf bundles the immutable per-match tuning values of spec §3 FieldConf.
// Instances are treated as given inputs: the match coordinator hands one to
// every Field it creates and never mutates it afterward.
type Conf struct {
	SwapTicks         uint64
	ManualRaiseSpeed  int
	RaiseSpeeds       []int
	RaiseSpeedChanges []uint64
	StopCombo0        uint64
	StopComboK        uint64
	StopChain0        uint64
	StopChainK        uint64
	GbHangTicks       uint64
	FlashTicks        uint64
	LevitateTicks     uint64
	PopTicks          uint64
	Pop0Ticks         uint64
	TransformTicks    uint64
	ColorCount        int
	RaiseAdjacent     RaiseAdjacent
	LostTicks         uint64
}

var (
	ErrRaiseSpeedChangesNotIncreasing = errors.New("field: raise_speed_changes must be strictly increasing")
	ErrRaiseSpeedsLengthMismatch      = errors.New("field: raise_speeds length must equal raise_speed_changes length + 1")
	ErrNonPositiveTickField           = errors.New("field: all tick-duration fields must be positive")
	ErrColorCountOutOfRange           = errors.New("field: color_count must be in [4, 15]")
)

// Validate implements the FieldConf::is_valid predicate of spec §3 exactly.
func (c *Conf) Validate() error {
	if len(c.RaiseSpeeds) != len(c.RaiseSpeedChanges)+1 {
		return ErrRaiseSpeedsLengthMismatch
	}
	for i := 1; i < len(c.RaiseSpeedChanges); i++ {
		if c.RaiseSpeedChanges[i] <= c.RaiseSpeedChanges[i-1] {
			return ErrRaiseSpeedChangesNotIncreasing
		}
	}
	positiveTickFields := []uint64{
		c.SwapTicks, c.GbHangTicks, c.FlashTicks, c.LevitateTicks,
		c.PopTicks, c.Pop0Ticks, c.TransformTicks, c.LostTicks,
	}
	for _, v := range positiveTickFields {
		if v == 0 {
			return ErrNonPositiveTickField
		}
	}
	if c.ColorCount < 4 || c.ColorCount > 15 {
		return ErrColorCountOutOfRange
	}
	return nil
}
