package netplay

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

// MaxPacketSize is the hard per-packet size ceiling of spec §6.1.
const MaxPacketSize = 51200

var (
	// ErrOversizePacket is returned when a frame's declared or encoded
	// length exceeds MaxPacketSize.
	ErrOversizePacket = errors.New("netplay: packet exceeds maximum size")
	// ErrMalformedPacket wraps any payload decode failure.
	ErrMalformedPacket = errors.New("netplay: malformed packet")
	// ErrMissingField is returned by Message.Validate for a required-field
	// violation (spec §6.1 "packet failing required-field validation").
	ErrMissingField = errors.New("netplay: missing required field")
)

// Conn is the length-prefixed framed message stream of spec §6.1: a 4-byte
// big-endian length header followed by that many bytes of gob-encoded
// payload. It is carried both over a raw net.Conn (literal "stream
// sockets") and, via NewWSConn, over a *websocket.Conn -- the same
// length-prefix framing rides inside each websocket binary message's
// payload stream, so both transports share one read/write implementation.
type Conn struct {
	stream io.ReadWriteCloser
}

// NewConn wraps any stream socket (e.g. a net.Conn) as a netplay Conn.
func NewConn(stream io.ReadWriteCloser) *Conn {
	return &Conn{stream: stream}
}

// NewWSConn wraps a gorilla websocket connection as a netplay Conn.
func NewWSConn(ws *websocket.Conn) *Conn {
	return &Conn{stream: newWSStream(ws)}
}

// Close closes the underlying stream.
func (c *Conn) Close() error { return c.stream.Close() }

// WriteMessage frames and writes one Message.
func (c *Conn) WriteMessage(msg *Message) error {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(msg); err != nil {
		return fmt.Errorf("netplay: encode message: %w", err)
	}
	if body.Len() > MaxPacketSize {
		return ErrOversizePacket
	}

	var frame bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(body.Len()))
	frame.Write(header[:])
	frame.Write(body.Bytes())

	if _, err := writeFull(c.stream, frame.Bytes()); err != nil {
		return fmt.Errorf("netplay: write frame: %w", err)
	}
	return nil
}

// ReadMessage reads and decodes the next framed Message, validating its
// declared size against MaxPacketSize before reading the payload.
func (c *Conn) ReadMessage() (*Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.stream, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > MaxPacketSize {
		return nil, ErrOversizePacket
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.stream, body); err != nil {
		return nil, fmt.Errorf("netplay: read frame: %w", err)
	}

	msg := &Message{}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	return msg, nil
}

func writeFull(w io.Writer, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := w.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// wsStream adapts a message-oriented *websocket.Conn to the byte-stream
// io.ReadWriteCloser Conn expects, buffering leftover bytes from a
// websocket message across Read calls.
type wsStream struct {
	ws  *websocket.Conn
	buf []byte
}

func newWSStream(ws *websocket.Conn) *wsStream {
	return &wsStream{ws: ws}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		s.buf = data
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error { return s.ws.Close() }
