// Package netplay implements the wire protocol of spec §6.1: length-prefixed
// framed messages carrying a tagged union of logical message variants, plus
// the lobby/init/ready/game state vocabulary shared by server and client.
package netplay

import "cascadenet/field"

// Kind tags the logical message variants of spec §6.1.
type Kind int

const (
	KindServerConf Kind = iota
	KindServerState
	KindPlayerConf
	KindPlayerState
	KindPlayerField
	KindInput
	KindNewGarbage
	KindUpdateGarbage
	KindGarbageState
	KindPlayerRank
	KindChat
	KindNotification
)

// ServerState enumerates the server-wide state machine of spec §4.4.
type ServerState int

const (
	ServerStateNone ServerState = iota
	ServerStateLobby
	ServerStateGameInit
	ServerStateGameReady
	ServerStateGame
)

// PlayerState enumerates the per-player state machine of spec §4.4.
type PlayerState int

const (
	PlayerStateNone PlayerState = iota
	PlayerStateQuit
	PlayerStateLobby
	PlayerStateLobbyReady
	PlayerStateGameInit
	PlayerStateGameReady
	PlayerStateGame
)

// GarbageWireState enumerates the two-state handshake of spec §4.5, distinct
// from field.GarbageBlockState which tracks on-grid animation.
type GarbageWireState int

const (
	GarbageWait GarbageWireState = iota
	GarbageDrop
)

// Severity tags a Notification's urgency.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// FieldConfPreset names one of ServerConf's field-config presets, carried
// on the wire alongside its tuning values.
type FieldConfPreset struct {
	Name string
	Conf field.Conf
}

// ServerConfMsg is server -> peer once on connect.
type ServerConfMsg struct {
	MaxPlayers          int
	TickMicroseconds    uint64
	MaxLagTicks         uint64
	StartCountdownTicks uint64
	FieldConfs          []FieldConfPreset
}

// ServerStateMsg is server -> peer on every server state transition.
type ServerStateMsg struct {
	State ServerState
}

// PlayerConfMsg is bidirectional; Join is set only when the server informs a
// peer of its own newly-assigned plid.
type PlayerConfMsg struct {
	Plid      uint32
	Nick      *string
	FieldConf *string
	Join      bool
}

// PlayerStateMsg is bidirectional.
type PlayerStateMsg struct {
	Plid  uint32
	State PlayerState
}

// PlayerFieldMsg is server -> peer at GameInit; Grid is row-major,
// width*(top+1) cells (the full PreviewRow..TopRow span).
type PlayerFieldMsg struct {
	Plid uint32
	Seed uint64
	Grid []WireBlock
}

// WireBlock is the serialisable projection of field.Block used by
// PlayerFieldMsg and round-trip tests (spec R1).
type WireBlock struct {
	Kind     field.Kind
	Color    field.ColorState
	ColorIdx int
	GbState  field.GarbageBlockState
	GbID     uint64
	Swapped  bool
	Chaining bool
	Ntick    uint64
}

// InputMsg is bidirectional; Keys[i] applies at tick Tick+i, letting a
// single packet carry several ticks' worth of input.
type InputMsg struct {
	Plid uint32
	Tick uint64
	Keys []field.Keys
}

// NewGarbageMsg is server -> peers. Pos is the hanging-queue position the
// garbage was inserted at on the server, so clients mirror the queue order.
// Size is scalar: width for combo garbages, height for chain garbages.
// PlidFrom is nil when the garbage has no originator (server-generated, or
// the attacker quit mid-match).
type NewGarbageMsg struct {
	GbID     uint64
	Pos      int
	PlidTo   uint32
	PlidFrom *uint32
	Type     int
	Size     int
}

// UpdateGarbageMsg is server -> peers; Size is scalar as in NewGarbageMsg.
type UpdateGarbageMsg struct {
	GbID uint64
	Size int
}

// GarbageStateMsg is bidirectional.
type GarbageStateMsg struct {
	GbID  uint64
	State GarbageWireState
}

// PlayerRankMsg is server -> peers.
type PlayerRankMsg struct {
	Plid uint32
	Rank int
}

// ChatMsg is bidirectional.
type ChatMsg struct {
	Plid uint32
	Text string
}

// NotificationMsg is server -> peers.
type NotificationMsg struct {
	Severity Severity
	Text     string
}

// Message is the tagged union of spec §6.1: exactly one of the typed
// payload fields is populated, selected by Kind. Any codec preserving field
// names, integer widths, repeated fields, and nested records can carry it;
// Conn uses encoding/gob, see DESIGN.md.
type Message struct {
	Kind Kind

	ServerConf    *ServerConfMsg
	ServerState   *ServerStateMsg
	PlayerConf    *PlayerConfMsg
	PlayerState   *PlayerStateMsg
	PlayerField   *PlayerFieldMsg
	Input         *InputMsg
	NewGarbage    *NewGarbageMsg
	UpdateGarbage *UpdateGarbageMsg
	GarbageState  *GarbageStateMsg
	PlayerRank    *PlayerRankMsg
	Chat          *ChatMsg
	Notification  *NotificationMsg
}
