package field

// Grid is the 6x13 playfield of spec §3. Index [x][y], x in [0,Width-1], y in
// [0,TopRow]. Row PreviewRow (0) is the previewed next-raise line; row
// BottomRow (1) is the lowest playfield row; row TopRow (12) is the highest.
type Grid [Width][Height]Block

// At returns the block at (x, y). Callers are expected to stay in bounds;
// the simulator never indexes outside [0,Width) x [0,Height).
func (g *Grid) At(x, y int) Block {
	return g[x][y]
}

// Set writes the block at (x, y).
func (g *Grid) Set(x, y int, b Block) {
	g[x][y] = b
}

// InBounds reports whether (x, y) is a valid grid cell.
func InBounds(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}

// columnAboveRestOrLaid walks a column upward from (x, y+1) and returns the
// y coordinates of the contiguous Rest/Laid colour blocks sitting directly
// above (x, y); used by the clear->Levitate chain-propagation rule (spec
// §4.1.1 step 3).
func (g *Grid) columnAboveRestOrLaid(x, y int) []int {
	var ys []int
	for cy := y + 1; cy <= TopRow; cy++ {
		b := g.At(x, cy)
		if !b.IsColor() || (b.Color != ColorRest && b.Color != ColorLaid) {
			break
		}
		ys = append(ys, cy)
	}
	return ys
}
