package client

import (
	"net"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"cascadenet/field"
	"cascadenet/garbage"
	"cascadenet/netplay"
)

type idleProvider struct{}

func (idleProvider) NextKeys(uint32) field.Keys { return 0 }

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

// fakeServer scripts the server half of a session over an in-memory pipe.
type fakeServer struct {
	t  *testing.T
	nc *netplay.Conn

	inbound chan *netplay.Message
}

func newFakeServer(t *testing.T) (*fakeServer, *Client) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	serverSide.SetDeadline(time.Now().Add(10 * time.Second))

	fs := &fakeServer{t: t, nc: netplay.NewConn(serverSide), inbound: make(chan *netplay.Message, 256)}
	go func() {
		for {
			msg, err := fs.nc.ReadMessage()
			if err != nil {
				close(fs.inbound)
				return
			}
			fs.inbound <- msg
		}
	}()

	c := New(netplay.NewConn(clientSide), idleProvider{})
	go func() { _ = c.Run() }()
	return fs, c
}

func (fs *fakeServer) send(msg *netplay.Message) {
	fs.t.Helper()
	if err := fs.nc.WriteMessage(msg); err != nil {
		fs.t.Fatalf("fake server: write: %v", err)
	}
}

func (fs *fakeServer) expect(pred func(*netplay.Message) bool) *netplay.Message {
	fs.t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case msg, ok := <-fs.inbound:
			if !ok {
				fs.t.Fatal("fake server: connection closed")
			}
			if pred(msg) {
				return msg
			}
		case <-deadline:
			fs.t.Fatal("fake server: expected message never arrived")
		}
	}
}

func (fs *fakeServer) openSession(t *testing.T) (localPlid, remotePlid uint32) {
	localPlid, remotePlid = 1, 2
	fs.send(&netplay.Message{
		Kind: netplay.KindServerConf,
		ServerConf: &netplay.ServerConfMsg{
			MaxPlayers:          2,
			TickMicroseconds:    1000,
			MaxLagTicks:         20,
			StartCountdownTicks: 3,
			FieldConfs:          []netplay.FieldConfPreset{{Name: "default", Conf: *testFieldConf()}},
		},
	})
	fs.send(&netplay.Message{Kind: netplay.KindServerState, ServerState: &netplay.ServerStateMsg{State: netplay.ServerStateLobby}})
	fs.send(&netplay.Message{Kind: netplay.KindPlayerConf, PlayerConf: &netplay.PlayerConfMsg{Plid: localPlid, Join: true}})
	fs.send(&netplay.Message{Kind: netplay.KindPlayerConf, PlayerConf: &netplay.PlayerConfMsg{Plid: remotePlid}})

	// per-player seed and grid, exactly as the real server derives them
	for _, plid := range []uint32{localPlid, remotePlid} {
		f := field.New(int(plid), testFieldConf(), 77)
		f.FillRandom(6)
		fs.send(&netplay.Message{
			Kind: netplay.KindPlayerField,
			PlayerField: &netplay.PlayerFieldMsg{
				Plid: plid,
				Seed: f.Seed(),
				Grid: netplay.GridToWire(f.Grid()),
			},
		})
	}
	fs.send(&netplay.Message{Kind: netplay.KindServerState, ServerState: &netplay.ServerStateMsg{State: netplay.ServerStateGameReady}})
	fs.send(&netplay.Message{Kind: netplay.KindServerState, ServerState: &netplay.ServerStateMsg{State: netplay.ServerStateGame}})
	return localPlid, remotePlid
}

func TestClientSession(t *testing.T) {
	Convey("Given a client taken through lobby, init, and game", t, func() {
		fs, c := newFakeServer(t)
		defer c.Close()
		localPlid, remotePlid := fs.openSession(t)

		Convey("The scheduler relays local input starting at tick zero", func() {
			first := fs.expect(func(m *netplay.Message) bool { return m.Kind == netplay.KindInput })
			So(first.Input.Plid, ShouldEqual, localPlid)
			So(first.Input.Tick, ShouldEqual, uint64(0))
			So(len(first.Input.Keys), ShouldEqual, 1)
		})

		Convey("A remote garbage targeting the local field is auto-acknowledged", func() {
			from := remotePlid
			fs.send(&netplay.Message{
				Kind: netplay.KindNewGarbage,
				NewGarbage: &netplay.NewGarbageMsg{
					GbID:     9,
					Pos:      0,
					PlidTo:   localPlid,
					PlidFrom: &from,
					Type:     int(garbage.Combo),
					Size:     4,
				},
			})
			fs.send(&netplay.Message{
				Kind:         netplay.KindGarbageState,
				GarbageState: &netplay.GarbageStateMsg{GbID: 9, State: netplay.GarbageWait},
			})

			ack := fs.expect(func(m *netplay.Message) bool { return m.Kind == netplay.KindGarbageState })
			So(ack.GarbageState.GbID, ShouldEqual, uint64(9))
			So(ack.GarbageState.State, ShouldEqual, netplay.GarbageDrop)
		})

		Convey("Remote input is accepted and local input keeps flowing", func() {
			fs.send(&netplay.Message{
				Kind:  netplay.KindInput,
				Input: &netplay.InputMsg{Plid: remotePlid, Tick: 0, Keys: []field.Keys{0, 0, 0}},
			})
			// the local scheduler keeps running regardless; just confirm the
			// session stays healthy by seeing further local input
			msg := fs.expect(func(m *netplay.Message) bool { return m.Kind == netplay.KindInput })
			So(msg.Input.Plid, ShouldEqual, localPlid)
		})
	})
}
