// Package distribute implements the server-only garbage distributor of
// spec §4.3: it converts combo/chain events reported by a field's StepInfo
// into garbage blocks routed to opponents, keeps at most one active chain
// garbage per attacker, and schedules drop ticks.
package distribute

import (
	"cascadenet/field"
	"cascadenet/garbage"
	"cascadenet/match"
)

// Event is emitted for every garbage lifecycle change the distributor
// causes, for the server to relay as a NewGarbage/UpdateGarbage/GarbageState
// wire message (spec §4.5, §9 observer pattern). Pos is the hanging-queue
// position a new garbage was inserted at, carried on the wire so clients
// mirror the queue order exactly.
type Event struct {
	Kind    EventKind
	Garbage garbage.Garbage
	Pos     int
}

// EventKind tags the three distributor-originated notifications.
type EventKind int

const (
	EventNewGarbage EventKind = iota
	EventUpdateGarbage
	EventWaiting
)

// Distributor holds the server-side policy state described in spec §4.3.
// It is not safe for concurrent use; the server drives it from its single
// event-loop goroutine.
type Distributor struct {
	m *match.Match

	gbsChain     map[int]garbage.ID // attacker field index -> active chain garbage id
	targetsChain map[int]int        // attacker field index -> round-robin cursor
	targetsCombo map[int]int
	dropTicks    map[garbage.ID]uint64

	nextGbid garbage.ID

	events []Event
}

// New returns a Distributor bound to the given match.
func New(m *match.Match) *Distributor {
	return &Distributor{
		m:            m,
		gbsChain:     make(map[int]garbage.ID),
		targetsChain: make(map[int]int),
		targetsCombo: make(map[int]int),
		dropTicks:    make(map[garbage.ID]uint64),
	}
}

// Reset clears all distributor state, used on match teardown.
func (d *Distributor) Reset() {
	d.gbsChain = make(map[int]garbage.ID)
	d.targetsChain = make(map[int]int)
	d.targetsCombo = make(map[int]int)
	d.dropTicks = make(map[garbage.ID]uint64)
	d.nextGbid = 0
	d.events = nil
}

// Events drains and returns the events accumulated since the last call.
func (d *Distributor) Events() []Event {
	ev := d.events
	d.events = nil
	return ev
}

func (d *Distributor) emit(kind EventKind, g garbage.Garbage, pos int) {
	d.events = append(d.events, Event{Kind: kind, Garbage: g, Pos: pos})
}

// UpdateGarbages implements the 7-step policy of spec §4.3, invoked once
// per server-driven field step with that field's index and the StepInfo
// its Step call just produced.
func (d *Distributor) UpdateGarbages(fldIndex int, info field.StepInfo) {
	f := d.m.Fields[fldIndex]

	// 1. Chain cleanup.
	if f.Chain() < 2 {
		delete(d.gbsChain, fldIndex)
	}

	// 2. Drop scheduling. The head garbage drops once its tick elapses,
	// unless it is the still-active chain garbage of its creator.
	if head, ok := f.HeadHanging(); ok {
		if !d.isActiveChain(head) {
			if due, ok := d.dropTicks[head.GbID]; ok && due <= f.Tick() {
				if g, ok := d.m.WaitGarbageDrop(head.GbID); ok {
					delete(d.dropTicks, head.GbID)
					d.emit(EventWaiting, g, 0)
				}
			}
		}
	}

	// 3. No combo.
	if info.Combo == 0 {
		return
	}

	opponents := d.opponents(fldIndex)
	// 4. Opponent selection.
	if len(opponents) == 0 {
		return
	}

	// 5/6. Chain garbage. A chaining step with a large enough combo also
	// produces combo garbage below, so these are not exclusive.
	if info.Chain == 2 {
		d.createChainGarbage(fldIndex, opponents)
	} else if info.Chain > 2 {
		d.growChainGarbage(fldIndex)
	}

	// 7. Combo garbage.
	if info.Combo > 3 {
		d.createComboGarbages(fldIndex, opponents, info.Combo)
	}
}

// isActiveChain reports whether g is the chain garbage its creator is still
// extending, which must not drop until the chain ends.
func (d *Distributor) isActiveChain(g garbage.Garbage) bool {
	for _, id := range d.gbsChain {
		if id == g.GbID {
			return true
		}
	}
	return false
}

// opponents returns every other field index that has not yet lost.
func (d *Distributor) opponents(fldIndex int) []int {
	var out []int
	for i, f := range d.m.Fields {
		if i == fldIndex || f.Lost() {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (d *Distributor) freshGbid() garbage.ID {
	d.nextGbid++
	return d.nextGbid
}

// createChainGarbage implements spec §4.3 step 5: pick the opponent with
// the fewest leading chain-type hangings (ties by round-robin), and create
// a new height-1 chain garbage.
func (d *Distributor) createChainGarbage(fldIndex int, opponents []int) {
	target := d.pickChainTarget(fldIndex, opponents)
	tf := d.m.Fields[target]

	g := garbage.Garbage{
		GbID:      d.freshGbid(),
		FromField: d.m.Fields[fldIndex].FldID(),
		ToField:   tf.FldID(),
		Type:      garbage.Chain,
		Size:      garbage.Size{X: field.Width, Y: 1},
	}
	pos := firstChainPos(tf.Hanging())
	d.m.AddGarbage(g, pos)
	d.gbsChain[fldIndex] = g.GbID
	d.dropTicks[g.GbID] = tf.Tick() + tf.Conf().GbHangTicks
	d.emit(EventNewGarbage, g, pos)
}

// firstChainPos returns the insertion index that places a new chain garbage
// ahead of every chain already hanging (spec §4.3 "chain garbages before
// any existing chains") while leaving leading combo garbages in place.
func firstChainPos(hanging []garbage.Garbage) int {
	for i, g := range hanging {
		if g.Type == garbage.Chain {
			return i
		}
	}
	return len(hanging)
}

// pickChainTarget picks the opponent with the fewest leading chain-type
// hangings, breaking ties by round-robin.
func (d *Distributor) pickChainTarget(fldIndex int, opponents []int) int {
	if len(opponents) == 1 {
		return opponents[0]
	}
	best, bestCount := -1, -1
	for _, o := range opponents {
		n := leadingChainCount(d.m.Fields[o].Hanging())
		if best == -1 || n < bestCount {
			best, bestCount = o, n
		}
	}
	cursor := d.targetsChain[fldIndex] % len(opponents)
	for i := 0; i < len(opponents); i++ {
		o := opponents[(cursor+i)%len(opponents)]
		if leadingChainCount(d.m.Fields[o].Hanging()) == bestCount {
			d.targetsChain[fldIndex] = (cursor + i + 1) % len(opponents)
			return o
		}
	}
	return best
}

func leadingChainCount(hanging []garbage.Garbage) int {
	n := 0
	for _, g := range hanging {
		if g.Type != garbage.Chain {
			break
		}
		n++
	}
	return n
}

// growChainGarbage implements spec §4.3 step 6: extend the attacker's
// active chain garbage by one row in place and reset its drop tick against
// the attacker's clock.
func (d *Distributor) growChainGarbage(fldIndex int) {
	id, ok := d.gbsChain[fldIndex]
	if !ok {
		return
	}
	target, ok := d.m.HangingField(id)
	if !ok {
		return
	}
	tf := d.m.Fields[target]
	g, ok := findHanging(tf.Hanging(), id)
	if !ok {
		return
	}
	g.Size.Y++
	tf.SetHangingSize(id, g.Size)
	af := d.m.Fields[fldIndex]
	d.dropTicks[id] = af.Tick() + af.Conf().GbHangTicks
	d.emit(EventUpdateGarbage, g, 0)
}

func findHanging(hanging []garbage.Garbage, id garbage.ID) (garbage.Garbage, bool) {
	for _, g := range hanging {
		if g.GbID == id {
			return g, true
		}
	}
	return garbage.Garbage{}, false
}

// comboBlockSizes implements the block-sizing table of spec §4.3.
func comboBlockSizes(combo, width int) []int {
	switch {
	case combo-1 <= width:
		return []int{combo - 1}
	case combo <= 2*width:
		n := combo - 1
		if combo > 3*width/2 {
			n = combo
		}
		return []int{n / 2, n/2 + n%2}
	case combo == 2*width+1:
		return []int{width, width, width}
	case combo <= 3*width+1:
		return []int{width, width, width, width}
	case combo <= 4*width+2:
		return []int{width, width, width, width, width, width}
	default:
		return []int{width, width, width, width, width, width, width, width}
	}
}

// createComboGarbages implements spec §4.3 step 7: pick the next target by
// round-robin (advanced once per step, every block of the same combo lands
// on the same opponent), size the garbages from the combo count, and insert
// each at the end of the target's hanging queue.
func (d *Distributor) createComboGarbages(fldIndex int, opponents []int, combo int) {
	cursor := d.targetsCombo[fldIndex] % len(opponents)
	target := opponents[cursor]
	d.targetsCombo[fldIndex] = (cursor + 1) % len(opponents)

	af := d.m.Fields[fldIndex]
	tf := d.m.Fields[target]
	for _, size := range comboBlockSizes(combo, field.Width) {
		g := garbage.Garbage{
			GbID:      d.freshGbid(),
			FromField: af.FldID(),
			ToField:   tf.FldID(),
			Type:      garbage.Combo,
			Size:      garbage.Size{X: size, Y: 1},
		}
		pos := len(tf.Hanging())
		d.m.AddGarbage(g, pos)
		d.dropTicks[g.GbID] = tf.Tick() + tf.Conf().GbHangTicks
		d.emit(EventNewGarbage, g, pos)
	}
}
