package field

// evolveBlocks runs sub-phase 3 of Step: it walks every cell bottom-to-top,
// left-to-right, advancing each block's private state machine. A flashing
// block freezes both the stop-timer decrement and raising; any other
// non-resting block freezes raising only. Swapped blocks still affect those
// flags but do not evolve this tick (spec §4.1.1 step 3).
func (f *Field) evolveBlocks(raise, stopDec bool) (bool, bool) {
	for y := BottomRow; y <= TopRow; y++ {
		for x := 0; x < Width; x++ {
			b := f.grid.At(x, y)
			if b.IsNone() {
				continue
			}

			if stopDec {
				flash := (b.IsColor() && b.Color == ColorFlash) ||
					(b.IsGarbage() && b.GbState == GarbageFlash)
				resting := (b.IsColor() && b.Color == ColorRest) ||
					(b.IsGarbage() && b.GbState == GarbageRest)
				if flash {
					raise, stopDec = false, false
				} else if raise && !resting {
					raise = false
				}
			}

			if b.Swapped {
				continue
			}
			if b.IsColor() {
				f.evolveColor(x, y, b)
			} else {
				x, y = f.evolveGarbage(x, y, b)
			}
		}
	}
	return raise, stopDec
}

// below returns the supporting block under (x, y); y increases upward, so
// this is (x, y-1).
func (f *Field) below(x, y int) Block {
	return f.grid.At(x, y-1)
}

func (f *Field) evolveColor(x, y int, b Block) {
	switch b.Color {
	case ColorRest:
		below := f.below(x, y)
		switch {
		case below.Swapped:
			// frozen under a swap in progress
		case below.IsNone():
			b.Color = ColorLevitate
			b.Chaining = false
			b.Ntick = f.tick + f.conf.LevitateTicks
			f.grid.Set(x, y, b)
		case below.IsColor() && below.Color == ColorLevitate:
			b.Color = ColorLevitate
			b.Chaining = below.Chaining
			b.Ntick = below.Ntick
			f.grid.Set(x, y, b)
		case b.Chaining:
			// chain flag kept through the laid state dies at rest
			b.Chaining = false
			f.grid.Set(x, y, b)
		}

	case ColorLevitate:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			below := f.below(x, y)
			if below.IsNone() {
				f.grid.Set(x, y-1, Block{
					Kind: KindColor, Color: ColorFall, ColorIdx: b.ColorIdx,
					Chaining: b.Chaining,
				})
				f.grid.Set(x, y, Block{})
			} else {
				b.Color = ColorLaid
				b.Ntick = 0
				f.grid.Set(x, y, b)
				f.stepInfo.Blocks.LaidCount++
			}
		} else if below := f.below(x, y); below.IsColor() && below.Color == ColorLevitate {
			// swapping blocks below a chaining falling block must not
			// cancel the chain
			b.Chaining = b.Chaining || below.Chaining
			b.Ntick = below.Ntick
			f.grid.Set(x, y, b)
		}

	case ColorFall:
		below := f.below(x, y)
		switch {
		case below.IsNone():
			f.grid.Set(x, y-1, b)
			f.grid.Set(x, y, Block{})
		case below.IsColor() && below.Color == ColorLevitate:
			b.Color = ColorLevitate
			b.Ntick = below.Ntick
			f.grid.Set(x, y, b)
		default:
			b.Color = ColorLaid
			b.Ntick = 0
			f.grid.Set(x, y, b)
			f.stepInfo.Blocks.LaidCount++
		}

	case ColorLaid:
		below := f.below(x, y)
		switch {
		case below.IsNone():
			b.Color = ColorLevitate
			b.Ntick = f.tick + f.conf.LevitateTicks
			f.grid.Set(x, y, b)
		case below.IsColor() && below.Color == ColorLevitate:
			b.Color = ColorLevitate
			b.Chaining = below.Chaining
			b.Ntick = below.Ntick
			f.grid.Set(x, y, b)
		default:
			b.Color = ColorRest
			f.grid.Set(x, y, b)
		}

	case ColorFlash:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			b.Color = ColorMutate
			b.Ntick = 0 // pop tick assigned in sub-phase 9
			f.grid.Set(x, y, b)
			f.colorPop++
		}

	case ColorMutate:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			b.Color = ColorCleared
			// all blocks of a popping group return to None together, one
			// tick after the group's last pop
			b.Ntick = f.tick + uint64(b.GroupPos)*f.conf.PopTicks + 1
			f.grid.Set(x, y, b)
			f.stepInfo.Blocks.Popped = append(f.stepInfo.Blocks.Popped, PopEvent{
				Chain:    b.ChainN,
				Pos:      Cursor{X: x, Y: y},
				GroupEnd: b.GroupPos == 0,
			})
		}

	case ColorCleared:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			f.grid.Set(x, y, Block{})
			for _, cy := range f.grid.columnAboveRestOrLaid(x, y) {
				ab := f.grid.At(x, cy)
				ab.Color = ColorLevitate
				ab.Chaining = true
				ab.Ntick = f.tick + f.conf.LevitateTicks
				f.grid.Set(x, cy, ab)
			}
		}

	case ColorTransformed:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			b.Color = ColorLevitate
			b.Chaining = true
			b.Ntick = f.tick + f.conf.TransformTicks
			f.grid.Set(x, y, b)
		}
	}
}

// evolveGarbage advances a garbage block. Rest and Fall act on the whole
// footprint at once and return updated loop coordinates so the remaining
// cells of the footprint are skipped this pass.
func (f *Field) evolveGarbage(x, y int, b Block) (int, int) {
	switch b.GbState {
	case GarbageRest:
		g, ok := f.findOnField(b.GbID)
		if !ok {
			return x, y
		}
		below := f.below(x, y)
		if below.IsNone() || (below.IsGarbage() && below.GbState == GarbageFall) {
			// None and falling-garbage supports must not be mixed across
			// the footprint
			uniform := true
			for cx := g.Pos.X + 1; cx < g.Pos.X+g.Size.X; cx++ {
				cell := f.grid.At(cx, y-1)
				if cell.Kind != below.Kind ||
					(cell.IsGarbage() && cell.GbState != below.GbState) {
					uniform = false
					break
				}
			}
			if uniform {
				f.setGarbageFootprintState(b.GbID, GarbageFall)
			}
		}
		return g.Pos.X + g.Size.X - 1, g.Pos.Y + g.Size.Y - 1

	case GarbageFall:
		g, ok := f.findOnField(b.GbID)
		if !ok {
			return x, y
		}
		clear := true
		for cx := g.Pos.X; cx < g.Pos.X+g.Size.X; cx++ {
			if !f.grid.At(cx, y-1).IsNone() {
				clear = false
				break
			}
		}
		if clear {
			f.fallGarbage(b.GbID)
		} else {
			f.setGarbageFootprintState(b.GbID, GarbageRest)
		}
		g, _ = f.findOnField(b.GbID)
		return g.Pos.X + g.Size.X - 1, g.Pos.Y + g.Size.Y - 1

	case GarbageFlash:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			b.GbState = GarbageMutate
			b.Ntick = 0
			f.grid.Set(x, y, b)
			f.garbagePop++
		}

	case GarbageMutate:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			g, ok := f.findOnField(b.GbID)
			if ok && y < g.Pos.Y {
				// peeled bottom row converts to colour
				f.transformGarbageCell(x, y, b)
			} else {
				b.GbState = GarbageTransformed
				b.Ntick = f.tick + uint64(b.GroupPos)*f.conf.PopTicks + 1
				f.grid.Set(x, y, b)
			}
		}

	case GarbageTransformed:
		if b.Ntick != 0 && f.tick >= b.Ntick {
			b.GbState = GarbageRest
			b.Ntick = 0
			f.grid.Set(x, y, b)
		}
	}
	return x, y
}
