package bridge

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/config"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/frame"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/mqttclient"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
)

// fakeAGV stands in for a real vehicle controller: it accepts exactly one
// TCP connection per port role and lets the test script frames onto it.
type fakeAGV struct {
	listeners map[string]net.Listener
	conns     map[string]net.Conn
}

func newFakeAGV(t *testing.T, roles ...string) *fakeAGV {
	t.Helper()
	f := &fakeAGV{listeners: map[string]net.Listener{}, conns: map[string]net.Conn{}}
	for _, role := range roles {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		f.listeners[role] = l
		t.Cleanup(func() { _ = l.Close() })
	}
	return f
}

func (f *fakeAGV) portMap() map[string]int {
	out := map[string]int{}
	for role, l := range f.listeners {
		out[role] = l.Addr().(*net.TCPAddr).Port
	}
	return out
}

func (f *fakeAGV) accept(t *testing.T, role string) net.Conn {
	t.Helper()
	conn, err := f.listeners[role].Accept()
	require.NoError(t, err)
	f.conns[role] = conn
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newTestConfig(descriptor config.AGV) *config.Config {
	cfg := &config.Config{
		Broker: config.BrokerConfig{URL: "tcp://localhost:1883", ClientID: "test"},
		AGVs:   []config.AGV{descriptor},
	}
	config.ApplyDefaults(cfg)
	cfg.Reconnect.Interval = 20 * time.Millisecond
	cfg.PublishPeriods.State = 20 * time.Millisecond
	cfg.PublishPeriods.Visualization = 20 * time.Millisecond
	cfg.PublishPeriods.Connection = 20 * time.Millisecond
	cfg.PublishPeriods.Factsheet = 50 * time.Millisecond
	cfg.ShutdownGrace = time.Second
	return cfg
}

func TestSupervisorOpensSessionsAndGrabsAuthority(t *testing.T) {
	agv := newFakeAGV(t, "movement", "authority")

	descriptor := config.AGV{Serial: "AGV1", Manufacturer: "Acme", IP: "127.0.0.1", PortMap: agv.portMap()}
	cfg := newTestConfig(descriptor)

	mqtt := mqttclient.NewFake()
	sup := New(cfg, mqtt)

	authorityConnCh := make(chan net.Conn, 1)
	go func() { authorityConnCh <- agv.accept(t, "authority") }()
	movementConnCh := make(chan net.Conn, 1)
	go func() { movementConnCh <- agv.accept(t, "movement") }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Start(ctx))
	defer sup.Shutdown(context.Background())

	authConn := <-authorityConnCh
	buf := make([]byte, frame.HeaderSize+256)
	n, err := authConn.Read(buf)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, frame.HeaderSize)

	r := frame.NewReframer()
	frames := r.Feed(buf[:n])
	require.Len(t, frames, 1)
	assert.Equal(t, registry.MsgAuthorityGrab, frames[0].MessageType)

	var body map[string]any
	require.NoError(t, json.Unmarshal(frames[0].Body, &body))
	assert.Equal(t, "AGV1", body["nick_name"])

	<-movementConnCh

	status := sup.Status()
	require.Len(t, status.AGVs, 1)
	assert.False(t, status.AGVs[0].Failed)
}

func TestSupervisorRoutesOrderDownlink(t *testing.T) {
	agv := newFakeAGV(t, "movement")
	descriptor := config.AGV{Serial: "AGV1", Manufacturer: "Acme", IP: "127.0.0.1", PortMap: agv.portMap()}
	cfg := newTestConfig(descriptor)

	mqtt := mqttclient.NewFake()
	sup := New(cfg, mqtt)

	movementConnCh := make(chan net.Conn, 1)
	go func() { movementConnCh <- agv.accept(t, "movement") }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Start(ctx))
	defer sup.Shutdown(context.Background())

	conn := <-movementConnCh

	order := map[string]any{
		"headerId":     1,
		"timestamp":    "2026-08-01T00:00:00Z",
		"version":      "2.0.0",
		"manufacturer": "Acme",
		"serialNumber": "AGV1",
		"orderId":      "ORD1",
		"nodes": []map[string]any{
			{"nodeId": "N1", "sequenceId": 0},
			{"nodeId": "N2", "sequenceId": 2},
		},
		"edges": []map[string]any{
			{"edgeId": "E1", "sequenceId": 1, "startNodeId": "N1", "endNodeId": "N2"},
		},
	}
	payload, err := json.Marshal(order)
	require.NoError(t, err)

	mqtt.Deliver("/uagv/v2/Acme/AGV1/order", payload)

	buf := make([]byte, frame.HeaderSize+256)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)

	r := frame.NewReframer()
	frames := r.Feed(buf[:n])
	require.Len(t, frames, 1)
	assert.Equal(t, registry.MsgMovementOrder, frames[0].MessageType)
}

func TestSupervisorUplinkStatePushUpdatesCacheAndPublishes(t *testing.T) {
	agv := newFakeAGV(t, "state-push")
	descriptor := config.AGV{Serial: "AGV1", Manufacturer: "Acme", IP: "127.0.0.1", PortMap: agv.portMap()}
	cfg := newTestConfig(descriptor)

	mqtt := mqttclient.NewFake()
	sup := New(cfg, mqtt)

	connCh := make(chan net.Conn, 1)
	go func() { connCh <- agv.accept(t, "state-push") }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Start(ctx))
	defer sup.Shutdown(context.Background())

	conn := <-connCh

	wire, err := frame.Encode(1, registry.MsgStatePush, []byte(`{"vehicle_id":"AGV1","x":1,"y":2,"angle":0,"battery_level":90}`))
	require.NoError(t, err)
	_, err = conn.Write(wire)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, p := range mqtt.Published {
			if p.Topic == "/uagv/v2/Acme/AGV1/state" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
