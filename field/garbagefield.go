package field

import "cascadenet/garbage"

// findOnField returns the registry entry for an on-field garbage by id.
func (f *Field) findOnField(id garbage.ID) (garbage.Garbage, bool) {
	for _, g := range f.gbsOnField {
		if g.GbID == id {
			return g, true
		}
	}
	return garbage.Garbage{}, false
}

// setGarbageFootprintState stamps GbState across every grid cell of the
// named garbage's footprint, clamped to the visible part of the field --
// a freshly-dropped chain garbage extends above the top row.
func (f *Field) setGarbageFootprintState(id garbage.ID, state GarbageBlockState) {
	g, ok := f.findOnField(id)
	if !ok {
		return
	}
	for x := g.Pos.X; x < g.Pos.X+g.Size.X; x++ {
		for y := g.Pos.Y; y < g.Pos.Y+g.Size.Y && y <= TopRow; y++ {
			b := f.grid.At(x, y)
			b.GbState = state
			f.grid.Set(x, y, b)
		}
	}
}

// fallGarbage moves a falling garbage down one row. Middle rows need no
// grid change (every cell of a garbage is identical); the bottom row is
// copied down, and the top either empties or, for a chain still hanging
// above the field, a new row scrolls into view (at most one per tick).
func (f *Field) fallGarbage(id garbage.ID) {
	for i, g := range f.gbsOnField {
		if g.GbID != id {
			continue
		}
		for x := g.Pos.X; x < g.Pos.X+g.Size.X; x++ {
			f.grid.Set(x, g.Pos.Y-1, f.grid.At(x, g.Pos.Y))
		}
		if g.Pos.Y+g.Size.Y-1 <= TopRow {
			for x := g.Pos.X; x < g.Pos.X+g.Size.X; x++ {
				f.grid.Set(x, g.Pos.Y+g.Size.Y-1, Block{})
			}
		} else {
			bk := f.grid.At(g.Pos.X, g.Pos.Y)
			for x := g.Pos.X; x < g.Pos.X+g.Size.X; x++ {
				f.grid.Set(x, TopRow, bk)
			}
		}
		g.Pos.Y--
		f.gbsOnField[i] = g
		return
	}
}

// matchGarbage implements the recursive garbage match of spec §4.1.1 step
// 5: a Rest-state garbage hit by a match flashes across its whole visible
// footprint, every garbage touching that footprint is matched in turn, and
// the footprint then shrinks by its bottom row (size.y--, pos.y++) -- the
// peeled row is the one that will convert to colour blocks when the flash
// mutates.
func (f *Field) matchGarbage(x, y int, chained bool, chainNum int) {
	if !InBounds(x, y) {
		return
	}
	b := f.grid.At(x, y)
	if !b.IsGarbage() || b.GbState != GarbageRest {
		return
	}
	i := f.onFieldIndex(b.GbID)
	if i < 0 {
		return
	}
	g := f.gbsOnField[i]

	flashed := Block{
		Kind: KindGarbage, GbState: GarbageFlash, GbID: g.GbID,
		Chaining: chained, Ntick: f.tick + f.conf.FlashTicks, ChainN: chainNum,
	}
	for cx := g.Pos.X; cx < g.Pos.X+g.Size.X; cx++ {
		for cy := g.Pos.Y; cy < g.Pos.Y+g.Size.Y && cy <= TopRow; cy++ {
			f.grid.Set(cx, cy, flashed)
		}
	}

	// adjacent garbages join the match
	for cy := g.Pos.Y; cy < g.Pos.Y+g.Size.Y && cy <= TopRow; cy++ {
		f.matchGarbage(g.Pos.X-1, cy, chained, chainNum)
		f.matchGarbage(g.Pos.X+g.Size.X, cy, chained, chainNum)
	}
	for cx := g.Pos.X; cx < g.Pos.X+g.Size.X; cx++ {
		f.matchGarbage(cx, g.Pos.Y-1, chained, chainNum)
		f.matchGarbage(cx, g.Pos.Y+g.Size.Y, chained, chainNum)
	}

	g.Size.Y--
	g.Pos.Y++
	f.gbsOnField[i] = g
}

// transformGarbageCell converts one Mutate-state garbage cell of a peeled
// footprint row into a coloured Transformed block (spec §4.1.4), removing
// the garbage's registry entry once its last cell has converted.
func (f *Field) transformGarbageCell(x, y int, b Block) {
	color := -1
	f.transformedNb++
	if f.transformedNb == Width-1 {
		f.transformedNb = 0
		// force the colour of the first settled colour block below,
		// looking past anything still mid-match
		for cy := y - 1; cy >= PreviewRow; cy-- {
			cell := f.grid.At(x, cy)
			if cell.IsNone() || (cell.IsColor() && (cell.Color == ColorMutate || cell.Color == ColorFlash)) {
				continue
			}
			if cell.IsColor() {
				color = cell.ColorIdx
			}
			break
		}
	}

	if color == -1 {
		for {
			c := f.rng.Intn(f.conf.ColorCount)
			if x+1 < Width {
				if right := f.grid.At(x+1, y); right.IsColor() && c == right.ColorIdx {
					continue
				}
			}
			if y > PreviewRow {
				if below := f.grid.At(x, y-1); below.IsColor() && c == below.ColorIdx {
					continue
				}
			}
			color = c
			break
		}
	}

	if g, ok := f.findOnField(b.GbID); ok && g.Size.Y == 0 && x == g.Pos.X {
		f.removeOnField(b.GbID)
	}

	f.grid.Set(x, y, Block{
		Kind: KindColor, Color: ColorTransformed, ColorIdx: color,
		Chaining: b.Chaining,
		Ntick:    f.tick + uint64(b.GroupPos)*f.conf.PopTicks + 2,
		GroupPos: b.GroupPos,
	})
}
