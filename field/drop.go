package field

import "cascadenet/garbage"

// dropFromQueue implements spec §4.1.1 step 6: if an acknowledged garbage is
// queued and the field is neither full nor claiming the raise slot,
// materialise it on the top row. Chain garbages enter at full width with any
// extra rows still above the field, scrolling in as they fall; combo
// garbages place via the per-width rotating drop cursor. raise is claimed
// (returned false) for the tick a drop fires.
func (f *Field) dropFromQueue(full, raise bool) bool {
	if len(f.gbsDrop) == 0 || full || !raise {
		return raise
	}

	g := f.gbsDrop[0]
	f.gbsDrop = f.gbsDrop[1:]
	g.Pos.Y = TopRow

	bk := Block{Kind: KindGarbage, GbState: GarbageRest, GbID: g.GbID}
	if g.Type == garbage.Chain {
		g.Pos.X = 0
		g.Size.X = Width
		for x := 0; x < Width; x++ {
			f.grid.Set(x, TopRow, bk)
		}
	} else {
		xx := f.gbDropPos[g.Size.X]
		g.Pos.X = xx
		g.Size.Y = 1
		for x := 0; x < g.Size.X; x++ {
			f.grid.Set(x+xx, TopRow, bk)
		}

		// advance the drop cursor for this width
		if 2*g.Size.X > Width {
			xx++
		} else {
			xx += g.Size.X
		}
		if xx+g.Size.X > Width {
			xx = 0
		}
		f.gbDropPos[g.Size.X] = xx
	}

	f.gbsOnField = append(f.gbsOnField, g)
	return false
}