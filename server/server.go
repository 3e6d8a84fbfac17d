// Package server implements the server instance of spec §4.4: the
// lobby/init/ready/game state machine, peer lifecycle, authoritative
// simulation, and broadcast. It follows the teacher's server.go idiom of an
// accept loop spawning one goroutine pair (reader, writer) per connection,
// coordinated through channels rather than shared-state locking -- here the
// channel is a single command queue processed by one actor goroutine, which
// is the Go-idiomatic rendering of spec §5's "single-threaded cooperative
// event loop, handler bodies complete before the next suspension point."
package server

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"cascadenet/atomicx"
	"cascadenet/config"
	"cascadenet/distribute"
	"cascadenet/event"
	"cascadenet/field"
	"cascadenet/garbage"
	"cascadenet/match"
	"cascadenet/netplay"
)

// ErrMaxLagExceeded closes a connection whose Input packet would push a
// field further ahead of the match tick than the configured lag window
// allows (spec §4.4 "maximum lag exceeded").
var ErrMaxLagExceeded = errors.New("server: maximum lag exceeded")

// ErrPlidMismatch closes a connection that submits a packet for a plid it
// does not own.
var ErrPlidMismatch = errors.New("server: plid mismatch")

// ErrUnexpectedPacket closes a connection that sends a packet not valid in
// the server's or player's current state.
var ErrUnexpectedPacket = errors.New("server: unexpected packet for current state")

// ErrInputTickPast closes a connection that submits input for a tick its
// field has already simulated past.
var ErrInputTickPast = errors.New("server: input tick in the past")

// Server is the authoritative match host.
type Server struct {
	addr string

	conf    *config.ServerConf
	presets map[string]*field.Conf

	state   netplay.ServerState
	players map[uint32]*conn
	nextPl  uint32

	m    *match.Match
	dist *distribute.Distributor

	// fieldPlids maps field index -> owning plid for the running match; it
	// outlives the connection so a quitter can still be ranked by name.
	fieldPlids []uint32

	matchTick *atomicx.Int64

	bus *event.Bus

	commands chan func()
	done     chan struct{}
}

// NewServer constructs a Server bound to addr, using the given validated
// configuration.
func NewServer(addr string, conf *config.ServerConf, presets map[string]*field.Conf) *Server {
	m := match.New()
	done := make(chan struct{})
	return &Server{
		addr:      addr,
		conf:      conf,
		presets:   presets,
		state:     netplay.ServerStateLobby,
		players:   make(map[uint32]*conn),
		m:         m,
		dist:      distribute.New(m),
		matchTick: atomicx.NewInt64(0),
		bus:       event.NewBus(done),
		commands:  make(chan func(), 256),
		done:      done,
	}
}

// Serve accepts connections until the listener closes, handing each one off
// to a reader/writer goroutine pair that feeds the central command loop.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.ServeListener(ln)
}

// ServeListener runs the accept loop over an already-bound listener, e.g.
// one opened on an ephemeral port.
func (s *Server) ServeListener(ln net.Listener) error {
	defer ln.Close()
	go s.run()
	go func() {
		<-s.done
		ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}
		s.handleConn(c)
	}
}

// Stop ends the command loop and, implicitly via done, every dependent
// goroutine (spec §5 cancellation: "ending a match cancels the input
// scheduler").
func (s *Server) Stop() { close(s.done) }

// run is the single actor goroutine: every command (new connection, inbound
// packet, disconnect) is processed to completion before the next is taken,
// so Server's fields never need a mutex.
func (s *Server) run() {
	for {
		select {
		case cmd := <-s.commands:
			cmd()
		case <-s.done:
			return
		}
	}
}

// handleConn spins up the per-connection reader; each decoded packet is
// forwarded to the actor as a command, preserving per-connection arrival
// order while letting connections interleave at the actor's discretion
// (spec §5 ordering guarantees).
func (s *Server) handleConn(nc net.Conn) {
	c := newConn(nc)
	go func() {
		defer c.close()
		for {
			msg, err := c.netConn.ReadMessage()
			if err != nil {
				s.commands <- func() { s.onDisconnect(c) }
				return
			}
			if err := msg.Validate(); err != nil {
				c.send(notify(netplay.SeverityError, err.Error()))
				s.commands <- func() { s.onDisconnect(c) }
				return
			}
			m := msg
			s.commands <- func() { s.onMessage(c, m) }
		}
	}()
	s.commands <- func() { s.onConnect(c) }
}

func notify(sev netplay.Severity, text string) *netplay.Message {
	return &netplay.Message{
		Kind:         netplay.KindNotification,
		Notification: &netplay.NotificationMsg{Severity: sev, Text: text},
	}
}

// onConnect sends the new peer the full config snapshot, current server
// state, and the public state of every existing player (spec §4.4).
func (s *Server) onConnect(c *conn) {
	s.nextPl++
	plid := s.nextPl
	c.plid = plid
	c.state = netplay.PlayerStateLobby
	s.players[plid] = c

	// configured presets first, in declaration order, so peers agree on
	// the default; any extras follow
	var presets []netplay.FieldConfPreset
	sent := map[string]bool{}
	for _, name := range s.conf.FieldConfs {
		if fc, ok := s.presets[name]; ok && !sent[name] {
			presets = append(presets, netplay.FieldConfPreset{Name: name, Conf: *fc})
			sent[name] = true
		}
	}
	for name, fc := range s.presets {
		if !sent[name] {
			presets = append(presets, netplay.FieldConfPreset{Name: name, Conf: *fc})
		}
	}
	c.send(&netplay.Message{
		Kind: netplay.KindServerConf,
		ServerConf: &netplay.ServerConfMsg{
			MaxPlayers:          s.conf.MaxPlayers,
			TickMicroseconds:    s.conf.TickMicroseconds,
			MaxLagTicks:         s.conf.MaxLagTicks,
			StartCountdownTicks: s.conf.StartCountdownTicks,
			FieldConfs:          presets,
		},
	})
	c.send(&netplay.Message{Kind: netplay.KindServerState, ServerState: &netplay.ServerStateMsg{State: s.state}})
	for otherPlid, other := range s.players {
		if otherPlid == plid {
			continue
		}
		c.send(&netplay.Message{Kind: netplay.KindPlayerConf, PlayerConf: &netplay.PlayerConfMsg{Plid: otherPlid, Nick: &other.nick}})
		c.send(&netplay.Message{Kind: netplay.KindPlayerState, PlayerState: &netplay.PlayerStateMsg{Plid: otherPlid, State: other.state}})
	}
	c.send(&netplay.Message{Kind: netplay.KindPlayerConf, PlayerConf: &netplay.PlayerConfMsg{Plid: plid, Join: true}})

	s.broadcastExcept(plid, &netplay.Message{Kind: netplay.KindPlayerState, PlayerState: &netplay.PlayerStateMsg{Plid: plid, State: c.state}})
	s.bus.Emit(event.KindPlayerJoined, plid)
}

func (s *Server) onDisconnect(c *conn) {
	if _, ok := s.players[c.plid]; !ok {
		return
	}
	delete(s.players, c.plid)
	c.close()
	if c.fieldIdx >= 0 && c.fieldIdx < len(s.m.Fields) {
		s.abortAndRank(c.fieldIdx)
	}
	s.broadcastAll(&netplay.Message{Kind: netplay.KindPlayerState, PlayerState: &netplay.PlayerStateMsg{Plid: c.plid, State: netplay.PlayerStateQuit}})
}

// abortAndRank marks a field lost (e.g. its owner disconnected) and runs
// the normal ranking flow as if it lost at the current match tick (spec §7
// "Match-stop events").
func (s *Server) abortAndRank(fieldIdx int) {
	s.m.Fields[fieldIdx].Abort()
	s.m.UpdateTick()
	s.matchTick.Store(int64(s.m.Tick()))
	s.runRanking()
}

func (s *Server) onMessage(c *conn, msg *netplay.Message) {
	switch msg.Kind {
	case netplay.KindPlayerConf:
		s.onPlayerConf(c, msg.PlayerConf)
	case netplay.KindPlayerState:
		s.onPlayerState(c, msg.PlayerState)
	case netplay.KindInput:
		s.onInput(c, msg.Input)
	case netplay.KindGarbageState:
		s.onGarbageState(c, msg.GarbageState)
	case netplay.KindChat:
		s.broadcastExcept(c.plid, msg)
	default:
		c.send(notify(netplay.SeverityError, ErrUnexpectedPacket.Error()))
	}
}

func (s *Server) onPlayerConf(c *conn, pc *netplay.PlayerConfMsg) {
	if pc.Plid != 0 && pc.Plid != c.plid {
		c.send(notify(netplay.SeverityError, ErrPlidMismatch.Error()))
		return
	}
	if pc.Nick != nil {
		c.nick = *pc.Nick
	}
	if pc.FieldConf != nil {
		c.fieldConf = *pc.FieldConf
	}
	s.broadcastAll(&netplay.Message{Kind: netplay.KindPlayerConf, PlayerConf: &netplay.PlayerConfMsg{Plid: c.plid, Nick: pc.Nick, FieldConf: pc.FieldConf}})
}

func (s *Server) onPlayerState(c *conn, ps *netplay.PlayerStateMsg) {
	if ps.Plid != c.plid {
		c.send(notify(netplay.SeverityError, ErrPlidMismatch.Error()))
		return
	}
	c.state = ps.State
	s.broadcastAll(&netplay.Message{Kind: netplay.KindPlayerState, PlayerState: &netplay.PlayerStateMsg{Plid: c.plid, State: c.state}})

	switch s.state {
	case netplay.ServerStateLobby:
		if ps.State == netplay.PlayerStateLobbyReady && s.countLobbyReady() == s.conf.MaxPlayers {
			s.startGameInit()
		}
	case netplay.ServerStateGameReady:
		if ps.State == netplay.PlayerStateGameReady && s.allPlayersGameReady() {
			s.startGame()
		}
	}
}

func (s *Server) countLobbyReady() int {
	n := 0
	for _, c := range s.players {
		if c.state == netplay.PlayerStateLobbyReady {
			n++
		}
	}
	return n
}

func (s *Server) allPlayersGameReady() bool {
	for _, c := range s.players {
		if c.state != netplay.PlayerStateNone && c.state != netplay.PlayerStateGameReady {
			return false
		}
	}
	return true
}

// startGameInit implements the Lobby -> GameInit transition of spec §4.4:
// a shared seed, one field per LobbyReady player, six random raise-preview
// rows, and a PlayerField broadcast per field.
func (s *Server) startGameInit() {
	s.state = netplay.ServerStateGameInit
	s.m.Clear()
	s.dist.Reset()
	s.fieldPlids = nil
	seed := sharedSeed()

	plids := make([]uint32, 0, len(s.players))
	for plid := range s.players {
		plids = append(plids, plid)
	}
	sort.Slice(plids, func(i, j int) bool { return plids[i] < plids[j] })

	for _, plid := range plids {
		c := s.players[plid]
		if c.state != netplay.PlayerStateLobbyReady {
			continue
		}
		presetName := c.fieldConf
		if presetName == "" && len(s.conf.FieldConfs) > 0 {
			presetName = s.conf.FieldConfs[0]
		}
		fc, ok := s.presets[presetName]
		if !ok {
			c.send(notify(netplay.SeverityError, "unknown configuration name"))
			continue
		}
		f := s.m.AddField(fc, seed)
		f.FillRandom(6)
		c.fieldIdx = f.FldID() - 1
		s.fieldPlids = append(s.fieldPlids, plid)
		c.state = netplay.PlayerStateGameInit

		// the fill advanced the RNG, so peers replay from the post-fill seed
		s.broadcastAll(&netplay.Message{
			Kind: netplay.KindPlayerField,
			PlayerField: &netplay.PlayerFieldMsg{
				Plid: plid,
				Seed: f.Seed(),
				Grid: netplayGrid(f),
			},
		})
		s.broadcastAll(&netplay.Message{Kind: netplay.KindPlayerState, PlayerState: &netplay.PlayerStateMsg{Plid: plid, State: c.state}})
	}

	// GameInit -> GameReady is implicit at the moment of broadcast (spec §4.4).
	s.state = netplay.ServerStateGameReady
	s.broadcastAll(&netplay.Message{Kind: netplay.KindServerState, ServerState: &netplay.ServerStateMsg{State: s.state}})
}

// startGame implements the GameReady -> Game transition. The server itself
// never advances ticks; each peer runs its own scheduler.Scheduler locally
// and submits Input packets, which onInput applies authoritatively.
func (s *Server) startGame() {
	if s.state != netplay.ServerStateGameReady {
		return
	}
	s.state = netplay.ServerStateGame
	s.m.Start()
	s.broadcastAll(&netplay.Message{Kind: netplay.KindServerState, ServerState: &netplay.ServerStateMsg{State: s.state}})
}

// onInput implements the authoritative per-player step of spec §4.4. An
// input tick ahead of the field's own tick means frames were skipped
// locally; the gap is replayed with empty key state so both sides stay in
// lock-step.
func (s *Server) onInput(c *conn, in *netplay.InputMsg) {
	if s.state != netplay.ServerStateGame {
		return // remains of the previous match
	}
	if in.Plid != c.plid {
		s.dropPeer(c, ErrPlidMismatch)
		return
	}
	if c.fieldIdx < 0 || c.fieldIdx >= len(s.m.Fields) {
		s.dropPeer(c, ErrUnexpectedPacket)
		return
	}
	f := s.m.Fields[c.fieldIdx]
	if in.Tick < f.Tick() {
		s.dropPeer(c, ErrInputTickPast)
		return
	}

	for f.Tick() < in.Tick {
		if !s.stepPlayer(c, f, 0) {
			return
		}
	}
	for _, keys := range in.Keys {
		if !s.stepPlayer(c, f, keys) {
			return
		}
	}
}

// stepPlayer applies one authoritative step for a remote player's field:
// lag check, countdown gate, step, distributor, tick update, rank flow, and
// the Input rebroadcast to every peer except the submitter (spec §4.4).
// It reports whether the caller may keep stepping.
func (s *Server) stepPlayer(c *conn, f *field.Field, keys field.Keys) bool {
	if f.Lost() {
		s.dropPeer(c, ErrUnexpectedPacket)
		return false
	}
	prevTick := f.Tick()
	if prevTick+1 >= s.m.Tick()+s.conf.MaxLagTicks {
		s.dropPeer(c, ErrMaxLagExceeded)
		return false
	}
	if prevTick == s.conf.StartCountdownTicks {
		f.EnableSwap(true)
		f.EnableRaise(true)
	}

	info := f.Step(keys)
	s.dist.UpdateGarbages(c.fieldIdx, info)
	s.relayDistributorEvents()
	s.broadcastExcept(c.plid, &netplay.Message{
		Kind:  netplay.KindInput,
		Input: &netplay.InputMsg{Plid: c.plid, Tick: prevTick, Keys: []field.Keys{keys}},
	})

	if prevTick == s.m.Tick() {
		s.m.UpdateTick()
		s.matchTick.Store(int64(s.m.Tick()))
	}
	s.runRanking()
	return s.m.Started()
}

// dropPeer sends a final error notification and schedules the disconnect
// (spec §7: Notification(ERROR) preceding close).
func (s *Server) dropPeer(c *conn, err error) {
	c.send(notify(netplay.SeverityError, err.Error()))
	s.onDisconnect(c)
}

// runRanking implements spec §4.4's ranking flow: after every server-side
// player step, rank updates are broadcast, and a match-ending batch stops
// the match and returns to Lobby.
func (s *Server) runRanking() {
	newlyRanked, ended := s.m.UpdateRanks()
	for _, f := range newlyRanked {
		plid := s.plidForFieldIdx(f.FldID() - 1)
		s.broadcastAll(&netplay.Message{Kind: netplay.KindPlayerRank, PlayerRank: &netplay.PlayerRankMsg{Plid: plid, Rank: f.Rank()}})
		s.bus.Emit(event.KindPlayerRanked, plid)
	}
	if ended {
		s.stopMatch()
	}
}

func (s *Server) plidForFieldIdx(idx int) uint32 {
	if idx >= 0 && idx < len(s.fieldPlids) {
		return s.fieldPlids[idx]
	}
	return 0
}

// stopMatch detaches fields from players and returns to Lobby (spec §4.4
// Game -> Lobby on end-of-match or admin stop).
func (s *Server) stopMatch() {
	s.m.Stop()
	for _, c := range s.players {
		c.fieldIdx = -1
		if c.state != netplay.PlayerStateNone {
			c.state = netplay.PlayerStateLobby
		}
	}
	s.m.Clear()
	s.dist.Reset()
	s.fieldPlids = nil
	s.state = netplay.ServerStateLobby
	s.broadcastAll(&netplay.Message{Kind: netplay.KindServerState, ServerState: &netplay.ServerStateMsg{State: s.state}})
}

func (s *Server) relayDistributorEvents() {
	for _, ev := range s.dist.Events() {
		switch ev.Kind {
		case distribute.EventNewGarbage:
			g := ev.Garbage
			var plidFrom *uint32
			if g.HasOrigin() {
				v := s.plidForFieldIdx(g.FromField - 1)
				plidFrom = &v
			}
			s.broadcastAll(&netplay.Message{
				Kind: netplay.KindNewGarbage,
				NewGarbage: &netplay.NewGarbageMsg{
					GbID:     uint64(g.GbID),
					Pos:      ev.Pos,
					PlidTo:   s.plidForFieldIdx(g.ToField - 1),
					PlidFrom: plidFrom,
					Type:     int(g.Type),
					Size:     g.SizeScalar(),
				},
			})
		case distribute.EventUpdateGarbage:
			g := ev.Garbage
			s.broadcastAll(&netplay.Message{
				Kind:          netplay.KindUpdateGarbage,
				UpdateGarbage: &netplay.UpdateGarbageMsg{GbID: uint64(g.GbID), Size: g.SizeScalar()},
			})
		case distribute.EventWaiting:
			g := ev.Garbage
			s.broadcastAll(&netplay.Message{
				Kind:         netplay.KindGarbageState,
				GarbageState: &netplay.GarbageStateMsg{GbID: uint64(g.GbID), State: netplay.GarbageWait},
			})
		}
	}
}

// onGarbageState implements the drop half of the handshake in spec §4.5:
// the owner of the target field issues Drop for the head of its waiting
// queue; the server broadcasts it so every participant moves the garbage
// from waiting to drop_queue.
func (s *Server) onGarbageState(c *conn, gs *netplay.GarbageStateMsg) {
	if s.state != netplay.ServerStateGame || gs.State != netplay.GarbageDrop {
		s.dropPeer(c, ErrUnexpectedPacket)
		return
	}
	id := garbage.ID(gs.GbID)
	fieldIdx, ok := s.m.WaitingField(id)
	if !ok || fieldIdx != c.fieldIdx {
		s.dropPeer(c, ErrUnexpectedPacket)
		return
	}
	if head, ok := s.m.Fields[fieldIdx].WaitingHead(); !ok || head.GbID != id {
		s.dropPeer(c, ErrUnexpectedPacket)
		return
	}
	s.broadcastAll(&netplay.Message{Kind: netplay.KindGarbageState, GarbageState: &netplay.GarbageStateMsg{GbID: gs.GbID, State: netplay.GarbageDrop}})
	s.m.AckGarbageDrop(id)
}

func (s *Server) broadcastAll(msg *netplay.Message) {
	for _, c := range s.players {
		c.send(msg)
	}
}

func (s *Server) broadcastExcept(plid uint32, msg *netplay.Message) {
	for p, c := range s.players {
		if p == plid {
			continue
		}
		c.send(msg)
	}
}

func netplayGrid(f *field.Field) []netplay.WireBlock {
	return netplay.GridToWire(f.Grid())
}

// sharedSeed derives the single PRNG seed every field in a match is
// constructed with (spec §4.1.3 "every peer must observe the identical
// call sequence"). It is intentionally not crypto/rand: any deterministic,
// sufficiently varied source works, and time-derived entropy is what the
// teacher's own session IDs use elsewhere in the pack.
func sharedSeed() uint64 {
	return uint64(time.Now().UnixNano())
}

