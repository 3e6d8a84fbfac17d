package field

// detectMatches implements spec §4.1.1 step 4: build a colour overlay of
// Rest-state, non-swapped blocks, scan vertical then horizontal runs of
// length >= 3, and mark every cell in a run as matched. combo counts all
// matched cells; chained reports whether any matched cell carries Chaining.
func (f *Field) detectMatches() (matched [Width][Height]bool, combo int, chained bool) {
	var colorOf [Width][Height]int
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			colorOf[x][y] = -1
		}
	}
	for x := 0; x < Width; x++ {
		for y := BottomRow; y <= TopRow; y++ {
			b := f.grid.At(x, y)
			if b.IsColor() && b.Color == ColorRest && !b.Swapped {
				colorOf[x][y] = b.ColorIdx
			}
		}
	}

	markRun := func(mark func(i int)) func(colors []int) {
		return func(colors []int) {
			n := len(colors)
			i := 0
			for i < n {
				if colors[i] < 0 {
					i++
					continue
				}
				j := i + 1
				for j < n && colors[j] == colors[i] {
					j++
				}
				if j-i >= 3 {
					for k := i; k < j; k++ {
						mark(k)
					}
				}
				i = j
			}
		}
	}

	for x := 0; x < Width; x++ {
		col := colorOf[x][BottomRow : TopRow+1]
		markRun(func(i int) { matched[x][BottomRow+i] = true })(col)
	}
	for y := BottomRow; y <= TopRow; y++ {
		row := make([]int, Width)
		for x := 0; x < Width; x++ {
			row[x] = colorOf[x][y]
		}
		markRun(func(i int) { matched[i][y] = true })(row)
	}

	for x := 0; x < Width; x++ {
		for y := BottomRow; y <= TopRow; y++ {
			if !matched[x][y] {
				continue
			}
			combo++
			if f.grid.At(x, y).Chaining {
				chained = true
			}
		}
	}
	return matched, combo, chained
}

// applyMatches implements spec §4.1.1 step 5: every matched cell enters
// Flash, and the four orthogonal neighbours of every matched cell trigger
// matchGarbage, which recursively flashes connected Rest-state garbage and
// peels one row off each affected garbage's footprint.
func (f *Field) applyMatches(matched [Width][Height]bool, combo int, chained bool) {
	if combo == 0 {
		return
	}
	chainNum := f.chain
	if chained {
		chainNum++
	}

	for x := 0; x < Width; x++ {
		for y := BottomRow; y <= TopRow; y++ {
			if !matched[x][y] {
				continue
			}
			b := f.grid.At(x, y)
			b.Color = ColorFlash
			b.Chaining = chained
			b.Ntick = f.tick + f.conf.FlashTicks
			b.ChainN = chainNum
			f.grid.Set(x, y, b)

			f.matchGarbage(x-1, y, chained, chainNum)
			f.matchGarbage(x+1, y, chained, chainNum)
			if y > BottomRow {
				f.matchGarbage(x, y-1, chained, chainNum)
			}
			f.matchGarbage(x, y+1, chained, chainNum)
		}
	}
}
