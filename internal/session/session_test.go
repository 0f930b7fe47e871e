package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/frame"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
)

func listenLocal(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenConnectsAndReceivesFrames(t *testing.T) {
	l := listenLocal(t)

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	received := make(chan frame.Frame, 1)
	s := New("AGV1", "Acme", registry.PortStatePush, l.Addr().String(),
		func(f frame.Frame) { received <- f },
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	assert.Equal(t, StateConnected, s.State())

	server := <-accepted
	defer server.Close()

	wire, err := frame.Encode(1, registry.MsgStatePush, []byte(`{"vehicle_id":"AGV1"}`))
	require.NoError(t, err)
	_, err = server.Write(wire)
	require.NoError(t, err)

	select {
	case f := <-received:
		assert.Equal(t, registry.MsgStatePush, f.MessageType)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSendFailsWhenNotConnected(t *testing.T) {
	s := New("AGV1", "Acme", registry.PortMovement, "127.0.0.1:0", func(frame.Frame) {}, nil)
	err := s.Send(registry.MsgMovementCancel, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDisconnectHandlerCalledOnPeerClose(t *testing.T) {
	l := listenLocal(t)

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	disconnected := make(chan error, 1)
	s := New("AGV1", "Acme", registry.PortAuthority, l.Addr().String(),
		func(frame.Frame) {},
		func(err error) { disconnected <- err },
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Open(ctx))

	server := <-accepted
	server.Close()

	select {
	case <-disconnected:
		assert.Equal(t, StateDisconnected, s.State())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnect")
	}
}
