// Package match implements the match coordinator of spec §4.2: it owns
// every field in a match, the two garbage registries shared across fields
// (hanging, waiting), the match-wide tick, and end-of-match ranking.
package match

import (
	"sort"

	"cascadenet/field"
	"cascadenet/garbage"
)

// Match is {fields[], hanging_by_gbid, waiting_by_gbid, started, tick} of
// spec §3.
type Match struct {
	Fields []*field.Field

	hangingByGbid map[garbage.ID]int // gbid -> owning field index
	waitingByGbid map[garbage.ID]int

	started bool
	tick    uint64
}

// New returns an empty, unstarted match.
func New() *Match {
	return &Match{
		hangingByGbid: make(map[garbage.ID]int),
		waitingByGbid: make(map[garbage.ID]int),
	}
}

// Start marks the match as running, resetting the match tick and every
// field's per-match state. Fields must already be added via AddField.
func (m *Match) Start() {
	m.started = true
	m.tick = 0
	for _, f := range m.Fields {
		f.InitMatch()
	}
}

// Stop marks the match as no longer running, without discarding fields --
// callers that want a clean slate should call Clear afterward.
func (m *Match) Stop() { m.started = false }

// Clear detaches every field and resets both garbage registries, returning
// the match to its just-constructed state.
func (m *Match) Clear() {
	m.Fields = nil
	m.hangingByGbid = make(map[garbage.ID]int)
	m.waitingByGbid = make(map[garbage.ID]int)
	m.started = false
	m.tick = 0
}

// Started reports whether the match is currently running.
func (m *Match) Started() bool { return m.started }

// Tick returns the match-wide tick (spec §3: lowest tick of non-lost fields,
// or the highest tick if every field has lost, so draws remain resolvable).
func (m *Match) Tick() uint64 { return m.tick }

// AddField creates a new field with a 1-based fldID contiguous within this
// match and appends it to Fields.
func (m *Match) AddField(conf *field.Conf, seed uint64) *field.Field {
	fldID := len(m.Fields) + 1
	f := field.New(fldID, conf, seed)
	m.Fields = append(m.Fields, f)
	return f
}

// UpdateTick recomputes the match tick from every field's current tick.
func (m *Match) UpdateTick() {
	var lowest, highest uint64
	any := false
	for _, f := range m.Fields {
		t := f.Tick()
		if !any || t > highest {
			highest = t
		}
		if !f.Lost() {
			if !any || t < lowest {
				lowest = t
			}
			any = true
		}
	}
	if any {
		m.tick = lowest
		return
	}
	m.tick = highest
}

// UpdateRanks implements spec §4.2 UpdateRanks: every unranked field that is
// lost with tick <= match.tick joins this round's rank batch, sorted
// ascending by tick (earliest loss is worst rank), with ties sharing a rank.
// If only one field remains unranked afterward, it is assigned rank 1 and
// matchEnded is returned true.
func (m *Match) UpdateRanks() (newlyRanked []*field.Field, matchEnded bool) {
	var batch []*field.Field
	for _, f := range m.Fields {
		if f.Rank() == 0 && f.Lost() && f.Tick() <= m.tick {
			batch = append(batch, f)
		}
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Tick() < batch[j].Tick() })

	unranked := m.countUnranked()
	rank := unranked + 1
	i := 0
	for i < len(batch) {
		j := i + 1
		for j < len(batch) && batch[j].Tick() == batch[i].Tick() {
			j++
		}
		// earlier losses take the worse ranks at the end of the range
		rank -= j - i
		for k := i; k < j; k++ {
			batch[k].SetRank(rank)
		}
		i = j
	}
	newlyRanked = batch

	// one (or no) remaining unranked player ends the match
	if m.countUnranked() < 2 {
		matchEnded = true
		for _, f := range m.Fields {
			if f.Rank() == 0 {
				f.SetRank(1)
				newlyRanked = append(newlyRanked, f)
				break
			}
		}
	}
	return newlyRanked, matchEnded
}

func (m *Match) countUnranked() int {
	n := 0
	for _, f := range m.Fields {
		if f.Rank() == 0 {
			n++
		}
	}
	return n
}

// AddGarbage inserts a newly-created garbage into its target field's
// hanging queue at the given queue position and records it in the
// match-wide hanging registry, keyed by gbid (spec §4.2/§4.3). The target
// field is identified by g.ToField (1-based).
func (m *Match) AddGarbage(g garbage.Garbage, pos int) {
	fieldIdx := g.ToField - 1
	m.Fields[fieldIdx].InsertHanging(g, pos)
	m.hangingByGbid[g.GbID] = fieldIdx
}

// WaitGarbageDrop moves a garbage from hanging to waiting once its drop
// tick has elapsed and no active chain blocks it (spec §4.2).
func (m *Match) WaitGarbageDrop(id garbage.ID) (garbage.Garbage, bool) {
	position, ok := m.hangingByGbid[id]
	if !ok {
		return garbage.Garbage{}, false
	}
	g, ok := m.Fields[position].WaitGarbageDrop(id)
	if !ok {
		return garbage.Garbage{}, false
	}
	delete(m.hangingByGbid, id)
	m.waitingByGbid[id] = position
	return g, true
}

// AckGarbageDrop moves a garbage from waiting into its field's drop queue,
// where field.Step will materialise it on the next eligible tick (spec
// §4.5 step 3).
func (m *Match) AckGarbageDrop(id garbage.ID) bool {
	position, ok := m.waitingByGbid[id]
	if !ok {
		return false
	}
	if !m.Fields[position].DropNextGarbage(id) {
		return false
	}
	delete(m.waitingByGbid, id)
	return true
}

// HangingField returns the field index a hanging garbage belongs to.
func (m *Match) HangingField(id garbage.ID) (int, bool) {
	position, ok := m.hangingByGbid[id]
	return position, ok
}

// WaitingField returns the field index a waiting garbage belongs to.
func (m *Match) WaitingField(id garbage.ID) (int, bool) {
	position, ok := m.waitingByGbid[id]
	return position, ok
}

// RemoveHanging drops a hanging garbage from both the field's queue and the
// match-wide registry without moving it to waiting, used when its target
// field aborts mid-match.
func (m *Match) RemoveHanging(id garbage.ID) {
	if position, ok := m.hangingByGbid[id]; ok {
		m.Fields[position].RemoveHanging(id)
		delete(m.hangingByGbid, id)
	}
}
