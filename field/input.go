package field

// processInput implements spec §4.1.1 step 8: one action per tick, cursor
// movement winning over swap, swap over raise. A held direction fires on
// its rising edge and then every RepeatTicks ticks; Swap fires only on the
// rising edge; Raise is level-triggered. Swap and Raise are masked out
// entirely while disabled (start countdown).
func (f *Field) processInput(keys Keys) {
	if !f.enableSwap {
		keys &^= KeySwap
	}
	if !f.enableRaise {
		keys &^= KeyRaise
	}

	keysInput := keys
	if keys == f.keyState {
		f.keyRepeat++
	} else {
		f.keyRepeat = 0
		// keys pushed since the last tick
		keysInput = (f.keyState ^ keys) & keys
		f.keyState = keys
	}

	const moveMask = KeyUp | KeyDown | KeyLeft | KeyRight
	switch {
	case keysInput&moveMask != 0 && (f.keyRepeat == 0 || f.keyRepeat%RepeatTicks == 0):
		f.doMove(keysInput)
	case keysInput.Has(KeySwap) && f.keyRepeat == 0:
		f.doSwap()
	case keys.Has(KeyRaise):
		f.manualRaise = true
		f.stopDt = 0
	}
}

// doMove translates the cursor one cell within [0, Width-2] x
// [BottomRow, TopRow-1].
func (f *Field) doMove(keysInput Keys) {
	switch {
	case keysInput.Has(KeyUp):
		if f.cursor.Y+1 < TopRow {
			f.cursor.Y++
			f.stepInfo.Move = true
		}
	case keysInput.Has(KeyDown):
		if f.cursor.Y > BottomRow {
			f.cursor.Y--
			f.stepInfo.Move = true
		}
	case keysInput.Has(KeyLeft):
		if f.cursor.X > 0 {
			f.cursor.X--
			f.stepInfo.Move = true
		}
	case keysInput.Has(KeyRight):
		if f.cursor.X+1 < Width-1 {
			f.cursor.X++
			f.stepInfo.Move = true
		}
	}
}

// doSwap exchanges the blocks at the cursor and its right neighbour, subject
// to spec §4.1.1 step 8's preconditions: both cells must be None or a
// Rest/Fall colour block, not both None, and neither may sit directly under
// a levitating block.
func (f *Field) doSwap() {
	x, y := f.cursor.X, f.cursor.Y
	a := f.grid.At(x, y)
	b := f.grid.At(x+1, y)
	if !swappable(a) || !swappable(b) {
		return
	}
	if a.IsNone() && b.IsNone() {
		return
	}
	if y < TopRow && (f.underLevitate(x, y) || f.underLevitate(x+1, y)) {
		return
	}

	// cancel a previous swap still in progress
	if f.swapDt > 0 {
		pa := f.grid.At(f.swapPos.X, f.swapPos.Y)
		pb := f.grid.At(f.swapPos.X+1, f.swapPos.Y)
		pa.Swapped = false
		pb.Swapped = false
		f.grid.Set(f.swapPos.X, f.swapPos.Y, pa)
		f.grid.Set(f.swapPos.X+1, f.swapPos.Y, pb)
	}

	a.Swapped = true
	b.Swapped = true
	f.grid.Set(x, y, b)
	f.grid.Set(x+1, y, a)
	f.swapPos = Cursor{X: x, Y: y}
	f.swapDt = f.conf.SwapTicks
	f.stepInfo.Swap = true
}

func swappable(b Block) bool {
	if b.IsNone() {
		return true
	}
	return b.IsColor() && (b.Color == ColorRest || b.Color == ColorFall)
}

func (f *Field) underLevitate(x, y int) bool {
	above := f.grid.At(x, y+1)
	return above.IsColor() && above.Color == ColorLevitate
}

// tickSwap implements spec §4.1.1 step 7: decrement the swap countdown and
// clear the Swapped flag on both cells once it reaches zero.
func (f *Field) tickSwap() {
	if f.swapDt == 0 {
		return
	}
	f.swapDt--
	if f.swapDt != 0 {
		return
	}
	x, y := f.swapPos.X, f.swapPos.Y
	a := f.grid.At(x, y)
	b := f.grid.At(x+1, y)
	a.Swapped = false
	b.Swapped = false
	f.grid.Set(x, y, a)
	f.grid.Set(x+1, y, b)
	f.swapPos = Cursor{}
}