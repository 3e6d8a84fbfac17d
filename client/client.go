// Package client implements the client instance of spec §4.5: it mirrors
// the server's lobby/init/ready/game transitions purely from received
// packets, drives the local player's field through the input scheduler,
// relays local input to the server, applies every peer's remote Input, and
// runs the garbage-drop handshake. It follows the same single-reader/
// single-writer connection idiom as server, grounded on the teacher's
// server.go I/O pump pattern (tabular/server.go).
package client

import (
	"errors"
	"fmt"
	"sync"

	"cascadenet/atomicx"
	"cascadenet/event"
	"cascadenet/field"
	"cascadenet/garbage"
	"cascadenet/match"
	"cascadenet/netplay"
	"cascadenet/scheduler"
)

// ErrNotConnected is returned by calls that require an established session.
var ErrNotConnected = errors.New("client: not connected")

// ErrUnknownPlayer is returned when a packet names a plid the client has no
// record of.
var ErrUnknownPlayer = errors.New("client: unknown plid")

type playerState struct {
	plid      uint32
	nick      string
	fieldConf string
	state     netplay.PlayerState
	fieldIdx  int
}

// Client is one connected peer's local view of a match. mu serialises the
// packet handler against the input scheduler's pump, the two goroutines
// that touch the match and its fields.
type Client struct {
	netConn *netplay.Conn
	mu      sync.Mutex

	plid        uint32
	conf        *netplay.ServerConfMsg
	presets     map[string]*field.Conf
	presetOrder []string

	state   netplay.ServerState
	players map[uint32]*playerState

	m         *match.Match
	matchTick *atomicx.Int64
	sched     *scheduler.Scheduler
	provider  scheduler.InputProvider

	bus *event.Bus

	localFieldIdx int

	sendCh chan *netplay.Message
	done   chan struct{}
}

// New wraps an established connection to a server. provider supplies local
// key input for the scheduler once the match starts.
func New(nc *netplay.Conn, provider scheduler.InputProvider) *Client {
	done := make(chan struct{})
	return &Client{
		netConn:       nc,
		players:       make(map[uint32]*playerState),
		m:             match.New(),
		matchTick:     atomicx.NewInt64(0),
		provider:      provider,
		bus:           event.NewBus(done),
		localFieldIdx: -1,
		sendCh:        make(chan *netplay.Message, 64),
		done:          done,
	}
}

// Events exposes the client's observer bus (spec §9), e.g. for a UI layer
// to subscribe to state changes, ranks, and garbage lifecycle events.
func (c *Client) Events() *event.Bus { return c.bus }

// Close tears down the connection and every dependent goroutine.
func (c *Client) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return c.netConn.Close()
}

// Run drives the client's read loop until the connection closes or done
// fires; it blocks, so callers run it in its own goroutine.
func (c *Client) Run() error {
	go c.writePump()
	for {
		msg, err := c.netConn.ReadMessage()
		if err != nil {
			c.Close()
			return fmt.Errorf("client: read: %w", err)
		}
		if err := msg.Validate(); err != nil {
			c.Close()
			return fmt.Errorf("client: %w", err)
		}
		c.mu.Lock()
		c.onMessage(msg)
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.sendCh:
			if err := c.netConn.WriteMessage(msg); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) send(msg *netplay.Message) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	}
}

// SetNick requests a nickname change.
func (c *Client) SetNick(nick string) {
	c.send(&netplay.Message{Kind: netplay.KindPlayerConf, PlayerConf: &netplay.PlayerConfMsg{Plid: c.plid, Nick: &nick}})
}

// SetFieldConf selects which server-side preset this player wants to use for
// the next match.
func (c *Client) SetFieldConf(name string) {
	c.send(&netplay.Message{Kind: netplay.KindPlayerConf, PlayerConf: &netplay.PlayerConfMsg{Plid: c.plid, FieldConf: &name}})
}

// SetReady moves the local player into LobbyReady or GameReady, depending on
// the server's current state.
func (c *Client) SetReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var st netplay.PlayerState
	switch c.state {
	case netplay.ServerStateLobby:
		st = netplay.PlayerStateLobbyReady
	case netplay.ServerStateGameInit, netplay.ServerStateGameReady:
		st = netplay.PlayerStateGameReady
	default:
		return
	}
	c.send(&netplay.Message{Kind: netplay.KindPlayerState, PlayerState: &netplay.PlayerStateMsg{Plid: c.plid, State: st}})
}

// SendChat relays a chat line through the server to every peer.
func (c *Client) SendChat(text string) {
	c.send(&netplay.Message{Kind: netplay.KindChat, Chat: &netplay.ChatMsg{Plid: c.plid, Text: text}})
}

func (c *Client) onMessage(msg *netplay.Message) {
	switch msg.Kind {
	case netplay.KindServerConf:
		c.onServerConf(msg.ServerConf)
	case netplay.KindServerState:
		c.onServerState(msg.ServerState)
	case netplay.KindPlayerConf:
		c.onPlayerConf(msg.PlayerConf)
	case netplay.KindPlayerState:
		c.onPlayerState(msg.PlayerState)
	case netplay.KindPlayerField:
		c.onPlayerField(msg.PlayerField)
	case netplay.KindInput:
		c.onInput(msg.Input)
	case netplay.KindNewGarbage:
		c.onNewGarbage(msg.NewGarbage)
	case netplay.KindUpdateGarbage:
		c.onUpdateGarbage(msg.UpdateGarbage)
	case netplay.KindGarbageState:
		c.onGarbageState(msg.GarbageState)
	case netplay.KindPlayerRank:
		c.onPlayerRank(msg.PlayerRank)
	case netplay.KindChat, netplay.KindNotification:
		c.bus.Emit(event.KindPlayerStateChanged, msg)
	}
}

func (c *Client) onServerConf(sc *netplay.ServerConfMsg) {
	c.conf = sc
	c.presets = make(map[string]*field.Conf, len(sc.FieldConfs))
	c.presetOrder = c.presetOrder[:0]
	for _, p := range sc.FieldConfs {
		conf := p.Conf
		c.presets[p.Name] = &conf
		c.presetOrder = append(c.presetOrder, p.Name)
	}
}

func (c *Client) onServerState(ss *netplay.ServerStateMsg) {
	c.state = ss.State
	c.bus.Emit(event.KindServerStateChanged, ss.State)
	if ss.State == netplay.ServerStateLobby {
		c.m.Clear()
		c.localFieldIdx = -1
		for _, p := range c.players {
			p.fieldIdx = -1
		}
	}
	if ss.State == netplay.ServerStateGame {
		c.m.Start()
		c.matchTick.Store(0)
		c.startLocalScheduler()
	}
}

func (c *Client) onPlayerConf(pc *netplay.PlayerConfMsg) {
	p := c.playerOrCreate(pc.Plid)
	if pc.Nick != nil {
		p.nick = *pc.Nick
	}
	if pc.FieldConf != nil {
		p.fieldConf = *pc.FieldConf
	}
	if pc.Join {
		c.plid = pc.Plid
	}
	c.bus.Emit(event.KindPlayerJoined, pc.Plid)
}

func (c *Client) onPlayerState(ps *netplay.PlayerStateMsg) {
	p := c.playerOrCreate(ps.Plid)
	p.state = ps.State
	c.bus.Emit(event.KindPlayerStateChanged, ps)
}

func (c *Client) playerOrCreate(plid uint32) *playerState {
	p, ok := c.players[plid]
	if !ok {
		p = &playerState{plid: plid, fieldIdx: -1}
		c.players[plid] = p
	}
	return p
}

// onPlayerField implements the GameInit half of spec §4.4/§4.5: the server
// hands each player's seed and starting grid; the client reconstructs an
// identical Field and, for its own plid, records it as the local field that
// startLocalScheduler enrolls once the game starts.
func (c *Client) onPlayerField(pf *netplay.PlayerFieldMsg) {
	p := c.playerOrCreate(pf.Plid)

	presetName := p.fieldConf
	if presetName == "" && len(c.presetOrder) > 0 {
		presetName = c.presetOrder[0]
	}
	fc, ok := c.presets[presetName]
	if !ok {
		return
	}

	f := c.m.AddField(fc, pf.Seed)
	*f.Grid() = *netplay.WireToGrid(pf.Grid)
	p.fieldIdx = f.FldID() - 1

	if pf.Plid == c.plid {
		c.localFieldIdx = p.fieldIdx
	}
}

// startLocalScheduler enrolls the local player's field with a fresh
// Scheduler once the match begins (spec §4.6); every local step is relayed
// to the server as an Input packet.
func (c *Client) startLocalScheduler() {
	if c.localFieldIdx < 0 || c.localFieldIdx >= len(c.m.Fields) {
		return
	}
	tickPeriod := tickPeriodFromConf(c.conf)
	c.sched = scheduler.New(tickPeriod, c.conf.MaxLagTicks, c.conf.StartCountdownTicks, c.matchTick, c.provider, c.onLocalStep)
	c.sched.SetLock(&c.mu)
	c.sched.AddPlayer(c.plid, c.m.Fields[c.localFieldIdx])
	go c.sched.Run(c.done)
}

func (c *Client) onLocalStep(plid uint32, keys field.Keys, info field.StepInfo) {
	f := c.m.Fields[c.localFieldIdx]
	// The scheduler already advanced the field; the keys applied at the
	// tick before the step.
	c.send(&netplay.Message{
		Kind:  netplay.KindInput,
		Input: &netplay.InputMsg{Plid: plid, Tick: f.Tick() - 1, Keys: []field.Keys{keys}},
	})
	c.checkGarbageReadiness()
	c.m.UpdateTick()
	c.matchTick.Store(int64(c.m.Tick()))
	c.bus.Emit(event.KindFieldStepped, info)
}

// onInput applies a remote peer's authoritative step to this client's
// mirrored copy of that peer's field (spec §4.5: "applies remote Input").
func (c *Client) onInput(in *netplay.InputMsg) {
	p, ok := c.players[in.Plid]
	if !ok || p.fieldIdx < 0 || p.fieldIdx >= len(c.m.Fields) {
		return
	}
	f := c.m.Fields[p.fieldIdx]
	for f.Tick() < in.Tick && !f.Lost() {
		c.stepRemote(f, 0)
	}
	for _, keys := range in.Keys {
		if f.Lost() {
			break
		}
		c.stepRemote(f, keys)
	}
	c.m.UpdateTick()
	c.matchTick.Store(int64(c.m.Tick()))
}

func (c *Client) stepRemote(f *field.Field, keys field.Keys) {
	if f.Tick() == c.conf.StartCountdownTicks {
		f.EnableSwap(true)
		f.EnableRaise(true)
	}
	f.Step(keys)
}

func (c *Client) onNewGarbage(ng *netplay.NewGarbageMsg) {
	target := c.fieldIdxForPlid(ng.PlidTo)
	if target < 0 {
		return
	}
	gtype := garbage.Type(ng.Type)
	g := garbage.Garbage{
		GbID:    garbage.ID(ng.GbID),
		ToField: c.m.Fields[target].FldID(),
		Type:    gtype,
		Size:    garbage.SizeFromScalar(gtype, ng.Size, field.Width),
	}
	if ng.PlidFrom != nil {
		g.FromField = c.fieldIdxForPlid(*ng.PlidFrom) + 1
	}
	c.m.AddGarbage(g, ng.Pos)
	c.bus.Emit(event.KindGarbageAdded, g)
}

func (c *Client) onUpdateGarbage(ug *netplay.UpdateGarbageMsg) {
	id := garbage.ID(ug.GbID)
	if position, ok := c.m.HangingField(id); ok {
		f := c.m.Fields[position]
		if g, ok := findHanging(f.Hanging(), id); ok {
			f.SetHangingSize(id, garbage.SizeFromScalar(g.Type, ug.Size, field.Width))
		}
	}
}

func findHanging(hanging []garbage.Garbage, id garbage.ID) (garbage.Garbage, bool) {
	for _, g := range hanging {
		if g.GbID == id {
			return g, true
		}
	}
	return garbage.Garbage{}, false
}

func (c *Client) onPlayerRank(pr *netplay.PlayerRankMsg) {
	if p, ok := c.players[pr.Plid]; ok {
		if p.fieldIdx >= 0 && p.fieldIdx < len(c.m.Fields) {
			c.m.Fields[p.fieldIdx].SetRank(pr.Rank)
		}
	}
	c.bus.Emit(event.KindPlayerRanked, pr)
}

// onGarbageState implements the two-step drop handshake of spec §4.5. Wait
// moves the garbage to the waiting registry everywhere; if this client owns
// the target field and that field is not mid-chain, it acknowledges with Drop
// at once (checkGarbageReadiness acknowledges later when Wait arrives during
// a chain). Drop moves the garbage into the drop
// queue; an unknown gbid (server-initiated removal with no local record, or
// a self-drop this client already issued) is ignored, not an error.
func (c *Client) onGarbageState(gs *netplay.GarbageStateMsg) {
	id := garbage.ID(gs.GbID)
	switch gs.State {
	case netplay.GarbageWait:
		g, ok := c.m.WaitGarbageDrop(id)
		if !ok {
			return
		}
		if g.ToField-1 == c.localFieldIdx && c.m.Fields[c.localFieldIdx].Chain() <= 1 {
			c.ackGarbageDrop(id)
		}
	case netplay.GarbageDrop:
		// an unknown gbid here means this client already dropped it
		// locally when it acknowledged; not an error
		if c.m.AckGarbageDrop(id) {
			c.bus.Emit(event.KindGarbageDropped, id)
		}
	}
}

// ackGarbageDrop tells the server a locally-targeted garbage may drop and
// immediately moves it into the local drop queue, so the server's echoed
// Drop broadcast finds no waiting record here and is ignored.
func (c *Client) ackGarbageDrop(id garbage.ID) {
	if c.localFieldIdx < 0 || c.localFieldIdx >= len(c.m.Fields) {
		return
	}
	head, ok := c.m.Fields[c.localFieldIdx].WaitingHead()
	if !ok || head.GbID != id {
		return
	}
	c.send(&netplay.Message{Kind: netplay.KindGarbageState, GarbageState: &netplay.GarbageStateMsg{GbID: uint64(id), State: netplay.GarbageDrop}})
	c.m.AckGarbageDrop(id)
}

// checkGarbageReadiness acknowledges the next waiting garbage targeting the
// local field once the field is no longer mid-chain, covering the case
// where Wait arrived while a chain was still running.
func (c *Client) checkGarbageReadiness() {
	if c.localFieldIdx < 0 || c.localFieldIdx >= len(c.m.Fields) {
		return
	}
	f := c.m.Fields[c.localFieldIdx]
	if f.Chain() > 1 {
		return
	}
	if head, ok := f.WaitingHead(); ok {
		c.ackGarbageDrop(head.GbID)
	}
}

func (c *Client) fieldIdxForPlid(plid uint32) int {
	if p, ok := c.players[plid]; ok {
		return p.fieldIdx
	}
	return -1
}
