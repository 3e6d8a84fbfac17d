package server

import (
	"net"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"cascadenet/config"
	"cascadenet/field"
	"cascadenet/netplay"
)

func testFieldConf() *field.Conf {
	return &field.Conf{
		SwapTicks:        4,
		ManualRaiseSpeed: 8000,
		RaiseSpeeds:      []int{0},
		StopCombo0:       10,
		StopComboK:       2,
		StopChain0:       20,
		StopChainK:       5,
		GbHangTicks:      30,
		FlashTicks:       8,
		LevitateTicks:    2,
		PopTicks:         3,
		Pop0Ticks:        2,
		TransformTicks:   6,
		ColorCount:       6,
		LostTicks:        10,
	}
}

type testPeer struct {
	t   *testing.T
	raw net.Conn
	nc  *netplay.Conn

	plid uint32
}

func dialPeer(t *testing.T, addr string) *testPeer {
	t.Helper()
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	raw.SetDeadline(time.Now().Add(10 * time.Second))
	return &testPeer{t: t, raw: raw, nc: netplay.NewConn(raw)}
}

// readUntil skips messages until pred accepts one; the connection deadline
// bounds how long a missing message can stall the test.
func (p *testPeer) readUntil(pred func(*netplay.Message) bool) *netplay.Message {
	p.t.Helper()
	for {
		msg, err := p.nc.ReadMessage()
		if err != nil {
			p.t.Fatalf("peer %d: read: %v", p.plid, err)
		}
		if pred(msg) {
			return msg
		}
	}
}

func kindIs(kind netplay.Kind) func(*netplay.Message) bool {
	return func(m *netplay.Message) bool { return m.Kind == kind }
}

func serverStateIs(state netplay.ServerState) func(*netplay.Message) bool {
	return func(m *netplay.Message) bool {
		return m.Kind == netplay.KindServerState && m.ServerState.State == state
	}
}

func (p *testPeer) send(msg *netplay.Message) {
	p.t.Helper()
	if err := p.nc.WriteMessage(msg); err != nil {
		p.t.Fatalf("peer %d: write: %v", p.plid, err)
	}
}

func (p *testPeer) sendState(state netplay.PlayerState) {
	p.send(&netplay.Message{Kind: netplay.KindPlayerState, PlayerState: &netplay.PlayerStateMsg{Plid: p.plid, State: state}})
}

func (p *testPeer) join() {
	msg := p.readUntil(func(m *netplay.Message) bool {
		return m.Kind == netplay.KindPlayerConf && m.PlayerConf.Join
	})
	p.plid = msg.PlayerConf.Plid
}

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	conf := &config.ServerConf{
		MaxPlayers:          2,
		TickMicroseconds:    1000,
		MaxLagTicks:         20,
		StartCountdownTicks: 3,
		FieldConfs:          []string{"default"},
	}
	srv := NewServer("", conf, map[string]*field.Conf{"default": testFieldConf()})
	go srv.ServeListener(ln)
	return srv, ln.Addr().String()
}

func TestLobbyToGameAndLagRejection(t *testing.T) {
	Convey("Given a two-player server and two connected peers", t, func() {
		srv, addr := startTestServer(t)
		defer srv.Stop()

		pa := dialPeer(t, addr)
		defer pa.raw.Close()
		confMsg := pa.readUntil(kindIs(netplay.KindServerConf))
		So(confMsg.ServerConf.MaxPlayers, ShouldEqual, 2)
		So(confMsg.ServerConf.MaxLagTicks, ShouldEqual, uint64(20))
		So(len(confMsg.ServerConf.FieldConfs), ShouldEqual, 1)
		pa.join()

		pb := dialPeer(t, addr)
		defer pb.raw.Close()
		pb.readUntil(kindIs(netplay.KindServerConf))
		pb.join()
		So(pb.plid, ShouldNotEqual, pa.plid)

		Convey("Two LobbyReady players start a game", func() {
			pa.sendState(netplay.PlayerStateLobbyReady)
			pb.sendState(netplay.PlayerStateLobbyReady)

			fieldA := pa.readUntil(kindIs(netplay.KindPlayerField))
			So(len(fieldA.PlayerField.Grid), ShouldEqual, field.Width*field.Height)
			fieldB := pa.readUntil(kindIs(netplay.KindPlayerField))
			So(fieldB.PlayerField.Plid, ShouldNotEqual, fieldA.PlayerField.Plid)
			// the second field also carries a non-zero post-fill seed
			So(fieldB.PlayerField.Seed, ShouldNotEqual, uint64(0))

			pa.readUntil(serverStateIs(netplay.ServerStateGameReady))
			pb.readUntil(serverStateIs(netplay.ServerStateGameReady))

			pa.sendState(netplay.PlayerStateGameReady)
			pb.sendState(netplay.PlayerStateGameReady)
			pa.readUntil(serverStateIs(netplay.ServerStateGame))
			pb.readUntil(serverStateIs(netplay.ServerStateGame))

			Convey("An input running past the lag window disconnects its sender", func() {
				pb.send(&netplay.Message{
					Kind:  netplay.KindInput,
					Input: &netplay.InputMsg{Plid: pb.plid, Tick: 0, Keys: make([]field.Keys, 25)},
				})

				notif := pb.readUntil(kindIs(netplay.KindNotification))
				So(notif.Notification.Severity, ShouldEqual, netplay.SeverityError)
				So(strings.Contains(notif.Notification.Text, "maximum lag exceeded"), ShouldBeTrue)

				// the surviving peer sees the mirrored inputs and the quit
				quit := pa.readUntil(func(m *netplay.Message) bool {
					return m.Kind == netplay.KindPlayerState && m.PlayerState.State == netplay.PlayerStateQuit
				})
				So(quit.PlayerState.Plid, ShouldEqual, pb.plid)

				Convey("Once the survivor catches up, ranks are final and the lobby returns", func() {
					pa.send(&netplay.Message{
						Kind:  netplay.KindInput,
						Input: &netplay.InputMsg{Plid: pa.plid, Tick: 0, Keys: make([]field.Keys, 20)},
					})

					ranks := map[uint32]int{}
					for len(ranks) < 2 {
						msg := pa.readUntil(kindIs(netplay.KindPlayerRank))
						ranks[msg.PlayerRank.Plid] = msg.PlayerRank.Rank
					}
					So(ranks[pa.plid], ShouldEqual, 1)
					So(ranks[pb.plid], ShouldEqual, 2)

					pa.readUntil(serverStateIs(netplay.ServerStateLobby))
				})
			})
		})

		Convey("A packet claiming another player's plid is rejected", func() {
			pb.send(&netplay.Message{
				Kind:        netplay.KindPlayerState,
				PlayerState: &netplay.PlayerStateMsg{Plid: pa.plid, State: netplay.PlayerStateLobbyReady},
			})
			notif := pb.readUntil(kindIs(netplay.KindNotification))
			So(notif.Notification.Severity, ShouldEqual, netplay.SeverityError)
		})
	})
}
