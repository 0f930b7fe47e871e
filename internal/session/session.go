// Package session owns the per-(AGV, port-role) TCP connection lifecycle:
// dialing, framing inbound bytes, serialising outbound writes, and the
// state machine a supervisor polls to drive reconnects.
//
// The dial/receive/reconnect shape here is adapted from the portmapper
// server's accept loop and connection-handling idiom (shutdown channel,
// sync.Once, WaitGroup), generalised from "accept and serve" to "dial and
// receive" since a session is a TCP client, not a server.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/frame"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
)

// State is one of the four states in the session's FSM.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// DialTimeout bounds how long Open waits for the TCP handshake.
const DialTimeout = 1 * time.Second

// FrameHandler is invoked once per decoded frame received on the socket.
// It must not block for long — the receive loop is single-threaded per
// session and a slow handler delays every subsequent frame on this socket.
type FrameHandler func(f frame.Frame)

// DisconnectHandler is invoked when the receive loop exits for any reason
// (read error, EOF, or explicit Close).
type DisconnectHandler func(err error)

// Session owns one TCP connection to a single (AGV, port-role) endpoint.
type Session struct {
	Serial   string
	Manufacturer string
	PortRole registry.PortRole
	Addr     string

	onFrame      FrameHandler
	onDisconnect DisconnectHandler

	mu       sync.Mutex // guards state, conn, seq; also serialises writes
	state    State
	conn     net.Conn
	seq      uint16
	reframer *frame.Reframer

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New builds a session that is not yet connected. Call Open to dial.
func New(serial, manufacturer string, role registry.PortRole, addr string, onFrame FrameHandler, onDisconnect DisconnectHandler) *Session {
	return &Session{
		Serial:       serial,
		Manufacturer: manufacturer,
		PortRole:     role,
		Addr:         addr,
		onFrame:      onFrame,
		onDisconnect: onDisconnect,
		reframer:     frame.NewReframer(),
		shutdown:     make(chan struct{}),
	}
}

// Open dials the session's address with DialTimeout. On success it
// transitions to connected and spawns the receive loop; on failure it
// transitions to failed and returns the dial error.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateConnecting
	s.mu.Unlock()

	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		return fmt.Errorf("session: dial %s (%s/%s): %w", s.Addr, s.Serial, s.PortRole, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.reframer.Reset()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.receiveLoop()

	logging.Info("session opened",
		logging.KeySerial, s.Serial,
		logging.KeyPortRole, string(s.PortRole),
	)
	return nil
}

// State returns the session's current FSM state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, 4096)
	var loopErr error
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			s.mu.Lock()
			frames := s.reframer.Feed(buf[:n])
			s.mu.Unlock()
			for _, f := range frames {
				s.onFrame(f)
			}
		}
		if err != nil {
			loopErr = err
			break
		}
	}

	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	if s.onDisconnect != nil {
		s.onDisconnect(loopErr)
	}
}

var ErrNotConnected = errors.New("session: not connected")

// Send serialises body to JSON (nil/empty body writes an empty wire body)
// and writes a framed message. Sends are serialised by the session's lock
// so framing stays atomic even under concurrent callers.
func (s *Session) Send(messageType uint16, body any) error {
	var payload []byte
	var err error
	switch v := body.(type) {
	case nil:
		payload = nil
	case []byte:
		payload = v
	default:
		payload, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("session: marshal body: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.state != StateConnected {
		return ErrNotConnected
	}

	s.seq++
	wire, err := frame.Encode(s.seq, messageType, payload)
	if err != nil {
		return fmt.Errorf("session: encode frame: %w", err)
	}

	if _, err := s.conn.Write(wire); err != nil {
		_ = s.conn.Close()
		s.conn = nil
		s.state = StateDisconnected
		return fmt.Errorf("session: write: %w", err)
	}
	return nil
}

// Close tears the session down permanently: it stops the receive loop and
// will not be reused by a future reconnect (callers should construct a new
// Session on reconnect, matching the FSM's "failed -> open() makes a fresh
// attempt" shape).
func (s *Session) Close() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.wg.Wait()
}
