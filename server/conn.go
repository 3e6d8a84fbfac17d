package server

import (
	"net"
	"sync"

	"cascadenet/netplay"
)

// conn is one connected peer's server-side state: its public identity, its
// place in the lobby/game state machine, which field it owns once a match
// is underway, and the per-connection write pump. Following the teacher's
// per-connection goroutine-pair idiom, reads happen on the goroutine
// handleConn spawns and writes are serialized through sendCh by a second
// goroutine, so the two never race on the socket.
type conn struct {
	netConn *netplay.Conn

	plid      uint32
	nick      string
	fieldConf string
	state     netplay.PlayerState
	fieldIdx  int // -1 when not attached to a field

	sendCh  chan *netplay.Message
	closeMu sync.Mutex
	closed  bool
}

func newConn(nc net.Conn) *conn {
	c := &conn{
		netConn:  netplay.NewConn(nc),
		fieldIdx: -1,
		sendCh:   make(chan *netplay.Message, 64),
	}
	go c.writePump()
	return c
}

// writePump is the single writer for this connection's socket; send()
// merely enqueues, so callers on the server's actor goroutine never block
// on network I/O. The socket itself closes only here, after every message
// queued before close() has been flushed -- a final Notification(ERROR)
// must reach the peer before the connection drops (spec §7).
func (c *conn) writePump() {
	for msg := range c.sendCh {
		if err := c.netConn.WriteMessage(msg); err != nil {
			break
		}
	}
	c.netConn.Close()
}

// send enqueues msg for delivery, dropping it silently if the connection has
// already closed (the reader's disconnect command will clean up the peer).
func (c *conn) send(msg *netplay.Message) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.sendCh <- msg:
	default:
		// Slow consumer: drop rather than block the actor goroutine.
	}
}

func (c *conn) close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}
