// Package garbage defines the garbage-block record shared by the field
// simulator, the match coordinator, and the server-side distributor. It is a
// pure value type: registries (hanging/waiting/drop_queue/on_field) are owned
// by match and field, never by this package.
package garbage

// Type distinguishes how a Garbage was produced and therefore how its Size is
// interpreted: Combo garbages are one row tall and Size.X wide; Chain garbages
// span the full field width and are Size.Y tall.
type Type int

const (
	Combo Type = iota
	Chain
	Special // reserved, unused by any current policy
)

func (t Type) String() string {
	switch t {
	case Combo:
		return "Combo"
	case Chain:
		return "Chain"
	case Special:
		return "Special"
	default:
		return "Unknown"
	}
}

// Pos is a grid-cell coordinate, x increasing rightward and y increasing
// upward from the bottom playfield row.
type Pos struct {
	X, Y int
}

// Size is a footprint extent: X is width, Y is height. Combo garbages are one
// row tall (Y is 1); chain garbages carry the full field width in X.
type Size struct {
	X, Y int
}

// ID uniquely identifies a Garbage within a match across the hanging and
// waiting registries (spec invariant P6/§3).
type ID uint64

// Garbage is the record {gbid, from_field, to_field, type, pos, size} of
// spec §3. FromField is 0 when the garbage has no originator (server-
// generated, or the attacker quit mid-match) -- see SPEC_FULL.md open
// question (b).
type Garbage struct {
	GbID      ID
	FromField int // 0 means "no originator"
	ToField   int
	Type      Type
	Pos       Pos
	Size      Size
}

// HasOrigin reports whether this garbage was attributed to an attacking
// field, as opposed to being server-originated or orphaned by a quit.
func (g Garbage) HasOrigin() bool {
	return g.FromField != 0
}

// SizeScalar is the single size value carried on the wire: width for combo
// garbages, height for chain garbages (the other dimension is implied).
func (g Garbage) SizeScalar() int {
	if g.Type == Chain {
		return g.Size.Y
	}
	return g.Size.X
}

// SizeFromScalar reconstructs a footprint Size from a wire scalar;
// fieldWidth supplies the implied width of a chain garbage.
func SizeFromScalar(t Type, n, fieldWidth int) Size {
	if t == Chain {
		return Size{X: fieldWidth, Y: n}
	}
	return Size{X: n, Y: 1}
}

// Width returns the garbage's occupied width in playfield columns.
func (g Garbage) Width() int {
	return g.Size.X
}

// Height returns the garbage's occupied height in playfield rows.
func (g Garbage) Height() int {
	return g.Size.Y
}
