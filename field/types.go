// Package field implements the per-tick deterministic field simulator: a
// 6x13 grid of colour and garbage blocks that evolves through levitate/fall/
// rest/flash/mutate/clear states, detects matches, propagates chains, raises
// the stack, and drives the per-field pseudo-random generator (spec §4.1).
package field

import "cascadenet/garbage"

// Grid dimensions, fixed by spec §3: 6 columns, 13 rows (y in [0,12]).
const (
	Width  = 6
	Height = 13
	// TopRow is the highest playable row index.
	TopRow = Height - 1
	// PreviewRow is the "next raising line", darker and not yet in play.
	PreviewRow = 0
	// BottomRow is the lowest playfield row.
	BottomRow = 1
)

// RaiseProgressMax is the fixed-point threshold at which accumulated raise
// progress triggers a raise() call (spec §4.1.1 step 11).
const RaiseProgressMax = 65536

// RepeatTicks is the held-direction repeat interval for Move inputs
// (spec §4.1.1 step 8).
const RepeatTicks = 10

// Kind tags the three cases of Block: None, Color, Garbage (spec §3).
type Kind int

const (
	KindNone Kind = iota
	KindColor
	KindGarbage
)

// ColorState is the colour-block state machine (spec §3).
type ColorState int

const (
	ColorRest ColorState = iota
	ColorFall
	ColorLaid
	ColorLevitate
	ColorFlash
	ColorMutate
	ColorCleared
	ColorTransformed
)

// GarbageBlockState is the garbage-block state machine (spec §3). Distinct
// from netplay's GarbageState (Wait/Drop), which describes a registry
// transition rather than an on-grid animation state.
type GarbageBlockState int

const (
	GarbageRest GarbageBlockState = iota
	GarbageFall
	GarbageFlash
	GarbageMutate
	GarbageTransformed
)

// Block is the tagged union of spec §3. Every block, regardless of kind,
// carries Swapped (colour blocks only), Chaining, Ntick (0 = no pending
// transition), and GroupPos (simultaneous-pop ordering).
type Block struct {
	Kind     Kind
	Color    ColorState
	ColorIdx int // valid when Kind == KindColor
	GbState  GarbageBlockState
	GbID     garbage.ID // valid when Kind == KindGarbage

	Swapped  bool
	Chaining bool
	Ntick    uint64
	GroupPos int

	// ChainN carries the chain number a block was matched under from Flash
	// through Mutate to Cleared, so the eventual PopEvent can report it
	// (spec §4.1.2); it has no effect on simulation state.
	ChainN int
}

// IsNone reports whether this cell is empty.
func (b Block) IsNone() bool { return b.Kind == KindNone }

// IsColor reports whether this cell holds a colour block.
func (b Block) IsColor() bool { return b.Kind == KindColor }

// IsGarbage reports whether this cell holds a garbage block.
func (b Block) IsGarbage() bool { return b.Kind == KindGarbage }

// Cursor is the player's swap cursor position, constrained to
// [0, Width-2] x [BottomRow, TopRow-1].
type Cursor struct {
	X, Y int
}

// RaiseAdjacent selects how many cells to the left of a freshly raised block
// are forbidden to share its colour (spec §3/§4.1.1 raise()).
type RaiseAdjacent int

const (
	RaiseAdjacentNever RaiseAdjacent = iota
	RaiseAdjacentAlways
	RaiseAdjacentAlternate
)

// Keys is a bitmask of inputs sampled for a single tick (spec §4.1.1 step 8).
type Keys uint8

const (
	KeyLeft Keys = 1 << iota
	KeyRight
	KeyUp
	KeyDown
	KeySwap
	KeyRaise
)

func (k Keys) Has(bit Keys) bool { return k&bit != 0 }

// PopEvent describes one block's transition into Cleared, surfaced to
// consumers via StepInfo (spec §4.1.2).
type PopEvent struct {
	Chain    int
	Pos      Cursor
	GroupEnd bool
}

// BlocksInfo summarizes per-tick block bookkeeping surfaced in StepInfo.
type BlocksInfo struct {
	LaidCount int
	Popped    []PopEvent
}

// StepInfo is the complete observable result of one Step call (spec §4.1.2).
// Consumers outside the simulator never read the grid directly except
// through the public Grid() query; they observe ticks only through this
// structure.
type StepInfo struct {
	Combo  int
	Chain  int
	Raised bool
	Swap   bool
	Move   bool
	Blocks BlocksInfo
}
