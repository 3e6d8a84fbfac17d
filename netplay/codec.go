package netplay

import (
	"cascadenet/field"
	"cascadenet/garbage"
)

// GridToWire flattens a field grid into the row-major WireBlock slice
// carried by PlayerFieldMsg.Grid (width*(top+1) cells, spec §6.1).
func GridToWire(g *field.Grid) []WireBlock {
	out := make([]WireBlock, 0, field.Width*field.Height)
	for y := 0; y < field.Height; y++ {
		for x := 0; x < field.Width; x++ {
			b := g.At(x, y)
			out = append(out, WireBlock{
				Kind:     b.Kind,
				Color:    b.Color,
				ColorIdx: b.ColorIdx,
				GbState:  b.GbState,
				GbID:     uint64(b.GbID),
				Swapped:  b.Swapped,
				Chaining: b.Chaining,
				Ntick:    b.Ntick,
			})
		}
	}
	return out
}

// WireToGrid reverses GridToWire for every Block field a WireBlock carries
// (spec R1). Block.GroupPos and Block.ChainN are not on the wire and come
// back as zero.
func WireToGrid(cells []WireBlock) *field.Grid {
	g := &field.Grid{}
	for i, wb := range cells {
		x := i % field.Width
		y := i / field.Width
		g.Set(x, y, field.Block{
			Kind:     wb.Kind,
			Color:    wb.Color,
			ColorIdx: wb.ColorIdx,
			GbState:  wb.GbState,
			GbID:     garbage.ID(wb.GbID),
			Swapped:  wb.Swapped,
			Chaining: wb.Chaining,
			Ntick:    wb.Ntick,
		})
	}
	return g
}
