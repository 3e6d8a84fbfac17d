package field

// Step advances the field by exactly one tick, executing the fixed sequence
// of sub-phases from spec §4.1.1, and returns the StepInfo describing what
// happened. Consumers must never read the grid mid-step; the method is not
// safe to call concurrently with any other Field method.
func (f *Field) Step(keys Keys) StepInfo {
	if f.lost {
		return f.stepInfo
	}

	// 1. Increment tick, clear step_info.
	f.tick++
	f.stepInfo = StepInfo{}

	swapping := f.swapDt > 0

	// 2. Fullness probe.
	full := f.isFull()
	raise := f.enableRaise && !swapping

	// 3. Block evolution.
	stopDec := true
	raise, stopDec = f.evolveBlocks(raise, stopDec)

	// 4/5. Match detection and application.
	matched, combo, chained := f.detectMatches()
	f.applyMatches(matched, combo, chained)
	f.stepInfo.Combo = combo
	if chained {
		f.chain++
		f.stepInfo.Chain = f.chain
	}

	// 6. Drop from hanging queue.
	raise = f.dropFromQueue(full, raise)

	// 7. Swap countdown.
	f.tickSwap()

	// 8. Input processing.
	f.processInput(keys)

	// 9. Pop-tick assignment.
	f.assignPopTicks()

	// 10. Chain termination.
	if f.chain > 1 && combo == 0 && !f.anyChaining() {
		f.chain = 1
	}

	// 11. Stop timer and raise progress.
	f.updateStopTimerAndRaise(combo, full, raise, stopDec)
	if f.lost {
		return f.stepInfo
	}

	// 12. Speed curve.
	f.advanceSpeedCurve()

	return f.stepInfo
}

// isFull reports whether any cell in the top row is occupied (spec §4.1.1
// step 2).
func (f *Field) isFull() bool {
	for x := 0; x < Width; x++ {
		if !f.grid.At(x, TopRow).IsNone() {
			return true
		}
	}
	return false
}

func (f *Field) anyChaining() bool {
	for x := 0; x < Width; x++ {
		for y := BottomRow; y <= TopRow; y++ {
			if f.grid.At(x, y).Chaining {
				return true
			}
		}
	}
	return false
}
