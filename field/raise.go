package field

// updateStopTimerAndRaise implements spec §4.1.1 step 11: a combo or chain
// raises the stop-timer floor, the stop timer otherwise counts down, a full
// field with raise still pending runs down the loss timer, and an unblocked
// field accumulates raise progress until it crosses RaiseProgressMax.
func (f *Field) updateStopTimerAndRaise(combo int, full, raise, stopDec bool) {
	switch {
	case combo > 0:
		f.manualRaise = false
		if combo > 3 {
			want := f.conf.StopCombo0 + f.conf.StopComboK*uint64(combo-4)
			if want > f.stopDt {
				f.stopDt = want
			}
		}
		if f.stepInfo.Chain > 1 {
			want := f.conf.StopChain0 + f.conf.StopChainK*uint64(f.stepInfo.Chain-2)
			if want > f.stopDt {
				f.stopDt = want
			}
		}

	case stopDec && f.stopDt > 0:
		f.stopDt--

	case stopDec && full && raise:
		if f.lostDt == 0 {
			f.lostDt = f.conf.LostTicks
		} else {
			f.lostDt--
		}
		// separate check, so lost_ticks == 0 loses immediately
		if f.lostDt == 0 {
			f.lost = true
			f.chain = 1
		}

	case !full && raise && f.stopDt == 0:
		f.lostDt = 0
		if f.manualRaise {
			f.raiseProgress += f.conf.ManualRaiseSpeed
		} else {
			f.raiseProgress += f.conf.RaiseSpeeds[f.raiseSpeedIndex]
		}
		for f.raiseProgress > RaiseProgressMax {
			f.raise()
		}
	}
}

// advanceSpeedCurve implements spec §4.1.1 step 12.
func (f *Field) advanceSpeedCurve() {
	if f.raiseSpeedIndex < len(f.conf.RaiseSpeedChanges) && f.tick >= f.conf.RaiseSpeedChanges[f.raiseSpeedIndex] {
		f.raiseSpeedIndex++
	}
}

// raise shifts every row up by one, draws a fresh preview row, and moves
// the cursor, any swap in progress, and every on-field garbage footprint up
// to match (spec §4.1.1 raise()).
func (f *Field) raise() {
	for x := 0; x < Width; x++ {
		for y := TopRow; y > PreviewRow; y-- {
			f.grid.Set(x, y, f.grid.At(x, y-1))
		}
		f.grid.Set(x, PreviewRow, f.raiseBlock(x, PreviewRow))
	}
	if f.cursor.Y+1 < TopRow {
		f.cursor.Y++
	}

	// raising mid-swap should not happen, but is survivable
	if f.swapDt > 0 {
		if f.swapPos.Y == TopRow {
			f.swapPos = Cursor{X: -1, Y: -1}
			f.swapDt = 0
		} else {
			f.swapPos.Y++
		}
	}

	for i, g := range f.gbsOnField {
		g.Pos.Y++
		f.gbsOnField[i] = g
	}

	f.stepInfo.Raised = true
	f.raiseProgress = 0
	f.manualRaise = false
	f.raisedLines++
}

// raiseBlock draws the colour for a fresh block at (x, y), rejecting the
// colour of the block above and of the block one or two cells to the left
// per the RaiseAdjacent mode (spec §3 raise_adjacent). Rows above the
// preview line only ever reject the direct left neighbour; the mode applies
// to the raise row itself.
func (f *Field) raiseBlock(x, y int) Block {
	badDx := 1
	if y == PreviewRow &&
		(f.conf.RaiseAdjacent == RaiseAdjacentAlways ||
			(f.conf.RaiseAdjacent == RaiseAdjacentAlternate && f.raisedLines%2 == 0)) {
		badDx = 2
	}
	badColor1 := -1
	if x >= badDx {
		if left := f.grid.At(x-badDx, y); left.IsColor() {
			badColor1 = left.ColorIdx
		}
	}
	badColor2 := -1
	if y < TopRow {
		if above := f.grid.At(x, y+1); above.IsColor() {
			badColor2 = above.ColorIdx
		}
	}

	for {
		c := f.rng.Intn(f.conf.ColorCount)
		if c == badColor1 || c == badColor2 {
			continue
		}
		return Block{Kind: KindColor, Color: ColorRest, ColorIdx: c}
	}
}