// Package scheduler implements the input scheduler of spec §4.6: a
// single-threaded, timer-driven per-player tick pump that respects the lag
// window, following the teacher's publishUpdates/pinger ticker-loop idiom
// (tabular/server.go) but driving local gameplay steps instead of a
// websocket ping.
package scheduler

import (
	"sync"
	"time"

	"cascadenet/atomicx"
	"cascadenet/field"

	channerics "github.com/niceyeti/channerics/channels"
)

// InputProvider supplies the next KeyState for a local player; it is the
// external collaborator the spec places out of scope ("input-device
// binding").
type InputProvider interface {
	NextKeys(plid uint32) field.Keys
}

// StepFunc is invoked once per scheduled step, after the field itself has
// advanced -- callers use it to relay Input packets and drive the
// distributor/ranking pipeline.
type StepFunc func(plid uint32, keys field.Keys, info field.StepInfo)

type player struct {
	plid  uint32
	field *field.Field
}

// Scheduler pumps local players' fields forward one tick at a time,
// throttled by the lag window shared with the match tick.
type Scheduler struct {
	tickPeriod     time.Duration
	maxLagTicks    uint64
	countdownTicks uint64
	matchTick      *atomicx.Int64

	provider InputProvider
	onStep   StepFunc

	lock sync.Locker

	players []*player

	lastFire time.Time
}

// New returns a Scheduler. matchTick must be updated by the caller (e.g.
// the client, after match.UpdateTick) so the scheduler's lag check always
// sees the current match tick without locking. countdownTicks is the tick
// at which a field's swap/raise inputs unlock.
func New(tickPeriod time.Duration, maxLagTicks, countdownTicks uint64, matchTick *atomicx.Int64, provider InputProvider, onStep StepFunc) *Scheduler {
	return &Scheduler{
		tickPeriod:     tickPeriod,
		maxLagTicks:    maxLagTicks,
		countdownTicks: countdownTicks,
		matchTick:      matchTick,
		provider:       provider,
		onStep:         onStep,
	}
}

// SetLock installs a lock held across each pump, serialising field access
// against whoever else owns the fields (the client's packet handler). Must
// be set before Run; onStep callbacks run with the lock held.
func (s *Scheduler) SetLock(l sync.Locker) { s.lock = l }

// AddPlayer enrolls a local player's field into the rotation.
func (s *Scheduler) AddPlayer(plid uint32, f *field.Field) {
	s.players = append(s.players, &player{plid: plid, field: f})
}

// RemovePlayer removes a player from the rotation (e.g. on disconnect).
func (s *Scheduler) RemovePlayer(plid uint32) {
	for i, p := range s.players {
		if p.plid == plid {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return
		}
	}
}

// Run drives the tick pump until done fires. Suspension points are exactly
// the ticker's channel receive (spec §5): the handler body -- one pump --
// always completes before the next tick is awaited.
func (s *Scheduler) Run(done <-chan struct{}) {
	s.lastFire = time.Now()
	for range channerics.NewTicker(done, s.tickPeriod) {
		s.fire()
	}
}

// fire runs one or more pumps to catch up if wall-clock time has slipped
// more than one tick behind since the last fire (spec §4.6).
func (s *Scheduler) fire() {
	now := time.Now()
	owed := int(now.Sub(s.lastFire) / s.tickPeriod)
	if owed < 1 {
		owed = 1
	}
	for i := 0; i < owed; i++ {
		s.pump()
	}
	s.lastFire = now
}

// pump steps every still-playing local player whose field is not already
// at the edge of the lag window, and drops players whose field has lost.
func (s *Scheduler) pump() {
	if s.lock != nil {
		s.lock.Lock()
		defer s.lock.Unlock()
	}
	matchTick := uint64(s.matchTick.Load())

	var remaining []*player
	for _, p := range s.players {
		if p.field.Lost() {
			continue
		}
		if p.field.Tick()+1 >= matchTick+s.maxLagTicks {
			remaining = append(remaining, p)
			continue
		}
		if p.field.Tick() == s.countdownTicks {
			p.field.EnableSwap(true)
			p.field.EnableRaise(true)
		}
		keys := s.provider.NextKeys(p.plid)
		info := p.field.Step(keys)
		if s.onStep != nil {
			s.onStep(p.plid, keys, info)
		}
		if !p.field.Lost() {
			remaining = append(remaining, p)
		}
	}
	s.players = remaining
}
