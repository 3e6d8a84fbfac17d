package field

// assignPopTicks implements spec §4.1.1 step 9: blocks that entered Mutate
// this tick receive their pop ticks from a single running counter starting
// at tick+pop0_ticks -- colour blocks first, top-left to bottom-right, then
// garbage blocks bottom-right to top-left. GroupPos counts down to zero
// within each pool so the group's simultaneous return to None (or
// Transformed) can be computed per cell.
func (f *Field) assignPopTicks() {
	if f.colorPop == 0 && f.garbagePop == 0 {
		return
	}

	tickPop := f.tick + f.conf.Pop0Ticks
	colorPos := f.colorPop
	for y := TopRow; y >= BottomRow; y-- {
		for x := 0; x < Width; x++ {
			b := f.grid.At(x, y)
			if !b.IsColor() || b.Color != ColorMutate || b.Ntick != 0 {
				continue
			}
			colorPos--
			b.Ntick = tickPop
			b.GroupPos = colorPos
			f.grid.Set(x, y, b)
			tickPop += f.conf.PopTicks
		}
	}

	garbagePos := f.garbagePop
	for y := BottomRow; y <= TopRow; y++ {
		for x := Width - 1; x >= 0; x-- {
			b := f.grid.At(x, y)
			if !b.IsGarbage() || b.GbState != GarbageMutate || b.Ntick != 0 {
				continue
			}
			garbagePos--
			b.Ntick = tickPop
			b.GroupPos = garbagePos
			f.grid.Set(x, y, b)
			tickPop += f.conf.PopTicks
		}
	}

	f.colorPop = 0
	f.garbagePop = 0
}