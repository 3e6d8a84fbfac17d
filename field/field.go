package field

import "cascadenet/garbage"

// Field is one player's simulated playfield (spec §3 Field). FldID is a
// contiguous 1-based index assigned by the match coordinator. Rank is 0
// while the field is still playing or not yet ranked.
type Field struct {
	fldID int
	rng   *RNG
	rank  int
	tick  uint64
	chain int

	cursor  Cursor
	swapPos Cursor
	swapDt  uint64

	lost   bool
	lostDt uint64

	keyState  Keys
	keyRepeat uint64

	raiseProgress   int
	raiseSpeedIndex int
	manualRaise     bool
	stopDt          uint64

	transformedNb int
	raisedLines   uint64

	colorPop   int
	garbagePop int

	gbDropPos [Width + 1]int

	grid Grid
	conf *Conf

	enableSwap  bool
	enableRaise bool

	stepInfo StepInfo

	gbsHang    []garbage.Garbage
	gbsWait    []garbage.Garbage
	gbsDrop    []garbage.Garbage
	gbsOnField []garbage.Garbage
}

// New constructs a Field for the given 1-based field ID, configuration, and
// PRNG seed. The grid starts entirely empty; FillRandom lays down the
// starting rows and InitMatch resets the per-match state.
func New(fldID int, conf *Conf, seed uint64) *Field {
	return &Field{
		fldID:       fldID,
		rng:         NewRNG(seed),
		conf:        conf,
		chain:       1,
		enableSwap:  true,
		enableRaise: true,
		cursor:      Cursor{X: Width/2 - 1, Y: BottomRow + (TopRow-BottomRow)/2},
	}
}

// FillRandom lays down the starting content: rows n down to the preview row,
// drawn top-down so each cell can reject the colour above it as well as its
// left neighbour -- the initial layout never contains a ready-made match.
// The draws advance the field's RNG, so the seed peers must replay from is
// the one read after this call (spec §4.1.3).
func (f *Field) FillRandom(n int) {
	for y := n; y >= PreviewRow; y-- {
		for x := 0; x < Width; x++ {
			f.grid.Set(x, y, f.raiseBlock(x, y))
		}
	}
}

// InitMatch resets all per-match state for a new game. Swap and raise stay
// disabled until the start countdown elapses; the instance driving the
// field re-enables them once its tick reaches start_countdown_ticks.
func (f *Field) InitMatch() {
	f.cursor = Cursor{X: Width/2 - 1, Y: BottomRow + (TopRow-BottomRow)/2}
	f.swapPos = Cursor{}
	f.swapDt = 0
	f.chain = 1
	f.tick = 0
	f.lost = false
	f.lostDt = 0
	f.keyState = 0
	f.keyRepeat = 0
	f.raiseProgress = 0
	f.raiseSpeedIndex = 0
	f.manualRaise = false
	f.stopDt = 0
	f.transformedNb = 0
	f.raisedLines = 0
	f.gbDropPos = [Width + 1]int{}
	f.stepInfo = StepInfo{}
	f.enableSwap = false
	f.enableRaise = false
}

// --- Queries ---

func (f *Field) FldID() int       { return f.fldID }
func (f *Field) Tick() uint64     { return f.tick }
func (f *Field) Rank() int        { return f.rank }
func (f *Field) Lost() bool       { return f.lost }
func (f *Field) Chain() int       { return f.chain }
func (f *Field) Cursor() Cursor   { return f.cursor }
func (f *Field) Seed() uint64     { return f.rng.Seed() }
func (f *Field) Conf() *Conf      { return f.conf }
func (f *Field) Grid() *Grid      { return &f.grid }
func (f *Field) RaisedLines() uint64 { return f.raisedLines }

// RaiseProgress returns accumulated raise progress as a fraction of
// RaiseProgressMax, for UI/telemetry use only.
func (f *Field) RaiseProgress() float64 {
	return float64(f.raiseProgress) / float64(RaiseProgressMax)
}

// SetRank assigns a rank (1 = best) once the match coordinator has ranked
// this field; 0 means unranked.
func (f *Field) SetRank(rank int) { f.rank = rank }

// Abort marks the field as lost unconditionally, e.g. on disconnect.
func (f *Field) Abort() { f.lost = true }

// EnableSwap gates the Swap input (spec §4.1.1 step 8); cleared by
// InitMatch for the start countdown.
func (f *Field) EnableSwap(v bool) { f.enableSwap = v }

// EnableRaise gates both the Raise input and automatic raise progress.
func (f *Field) EnableRaise(v bool) { f.enableRaise = v }

// --- Garbage registry manipulators (spec §4.1 public contract) ---

// InsertHanging inserts a garbage into this field's hanging queue at the
// given position; the distributor computes the position so chain garbages
// land ahead of existing chains and combo garbages at the end (spec §4.3).
func (f *Field) InsertHanging(g garbage.Garbage, pos int) {
	if pos < 0 || pos > len(f.gbsHang) {
		pos = len(f.gbsHang)
	}
	f.gbsHang = append(f.gbsHang, garbage.Garbage{})
	copy(f.gbsHang[pos+1:], f.gbsHang[pos:])
	f.gbsHang[pos] = g
}

// SetHangingSize updates a hanging garbage's size in place, preserving its
// queue position; used when an active chain garbage grows (spec §4.3 step 6).
func (f *Field) SetHangingSize(id garbage.ID, size garbage.Size) bool {
	for i := range f.gbsHang {
		if f.gbsHang[i].GbID == id {
			f.gbsHang[i].Size = size
			return true
		}
	}
	return false
}

// RemoveHanging removes and returns the hanging garbage with the given ID,
// or false if not found.
func (f *Field) RemoveHanging(id garbage.ID) (garbage.Garbage, bool) {
	for i, g := range f.gbsHang {
		if g.GbID == id {
			f.gbsHang = append(f.gbsHang[:i], f.gbsHang[i+1:]...)
			return g, true
		}
	}
	return garbage.Garbage{}, false
}

// HeadHanging returns the first hanging garbage without removing it, used by
// the distributor's drop-scheduling check (spec §4.3 step 2).
func (f *Field) HeadHanging() (garbage.Garbage, bool) {
	if len(f.gbsHang) == 0 {
		return garbage.Garbage{}, false
	}
	return f.gbsHang[0], true
}

// Hanging returns the field's hanging queue in order; callers must treat it
// as read-only.
func (f *Field) Hanging() []garbage.Garbage { return f.gbsHang }

// WaitGarbageDrop moves a garbage from hanging to waiting: its drop tick has
// elapsed and acknowledgement is now outstanding (spec §4.2).
func (f *Field) WaitGarbageDrop(id garbage.ID) (garbage.Garbage, bool) {
	g, ok := f.RemoveHanging(id)
	if !ok {
		return garbage.Garbage{}, false
	}
	f.gbsWait = append(f.gbsWait, g)
	return g, true
}

// Waiting returns the field's waiting queue; read-only for callers.
func (f *Field) Waiting() []garbage.Garbage { return f.gbsWait }

// WaitingHead returns the first waiting garbage without removing it; drop
// acknowledgements are only valid for the head of the queue (spec §4.5).
func (f *Field) WaitingHead() (garbage.Garbage, bool) {
	if len(f.gbsWait) == 0 {
		return garbage.Garbage{}, false
	}
	return f.gbsWait[0], true
}

// DropNextGarbage moves a waiting garbage into the drop queue, where it will
// materialise on the grid on the next eligible tick (spec §4.5 step 3).
func (f *Field) DropNextGarbage(id garbage.ID) bool {
	for i, g := range f.gbsWait {
		if g.GbID == id {
			f.gbsWait = append(f.gbsWait[:i], f.gbsWait[i+1:]...)
			f.gbsDrop = append(f.gbsDrop, g)
			return true
		}
	}
	return false
}

// OnField returns the garbages currently occupying grid cells; read-only.
func (f *Field) OnField() []garbage.Garbage { return f.gbsOnField }

func (f *Field) onFieldIndex(id garbage.ID) int {
	for i, g := range f.gbsOnField {
		if g.GbID == id {
			return i
		}
	}
	return -1
}

func (f *Field) removeOnField(id garbage.ID) {
	if i := f.onFieldIndex(id); i >= 0 {
		f.gbsOnField = append(f.gbsOnField[:i], f.gbsOnField[i+1:]...)
	}
}
