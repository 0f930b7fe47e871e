//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/bridge"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/config"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/frame"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/mqttclient"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
)

// TestBridgeConnectsThroughRealBroker exercises scenario 5 from spec §8
// (connect lifecycle) against a real mosquitto broker instead of the fake
// client used by internal/bridge's unit tests: the supervisor subscribes,
// a plain paho subscriber observes the resulting connection publish, and a
// loopback listener stands in for the AGV's authority port.
func TestBridgeConnectsThroughRealBroker(t *testing.T) {
	broker := NewMosquittoHelper(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := &config.Config{
		Broker: config.BrokerConfig{URL: broker.BrokerURL(), ClientID: "bridge-e2e"},
		AGVs: []config.AGV{{
			Serial:       "AGV1",
			Manufacturer: "Acme",
			IP:           "127.0.0.1",
			PortMap:      map[string]int{"authority": listener.Addr().(*net.TCPAddr).Port},
		}},
	}
	config.ApplyDefaults(cfg)
	cfg.PublishPeriods.Connection = 50 * time.Millisecond
	cfg.ShutdownGrace = 2 * time.Second

	acceptDone := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		require.NoError(t, err)
		acceptDone <- conn
	}()

	observer := mqtt.NewClient(mqtt.NewClientOptions().AddBroker(broker.BrokerURL()).SetClientID("observer"))
	require.True(t, observer.Connect().WaitTimeout(10*time.Second))
	defer observer.Disconnect(250)

	connMsgs := make(chan []byte, 4)
	token := observer.Subscribe("/uagv/v2/Acme/AGV1/connection", 0, func(_ mqtt.Client, m mqtt.Message) {
		connMsgs <- m.Payload()
	})
	require.True(t, token.WaitTimeout(10*time.Second))

	sup := bridge.New(cfg, mqttclient.New(mqttclient.Config{BrokerURL: broker.BrokerURL(), ClientID: "bridge-e2e"}))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	require.NoError(t, sup.Start(ctx))
	defer sup.Shutdown(context.Background())

	authConn := <-acceptDone
	defer authConn.Close()

	buf := make([]byte, frame.HeaderSize+256)
	authConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := authConn.Read(buf)
	require.NoError(t, err)

	r := frame.NewReframer()
	frames := r.Feed(buf[:n])
	require.Len(t, frames, 1)
	require.Equal(t, registry.MsgAuthorityGrab, frames[0].MessageType)

	select {
	case payload := <-connMsgs:
		var conn map[string]any
		require.NoError(t, json.Unmarshal(payload, &conn))
		require.Equal(t, "ONLINE", conn["connectionState"])
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for connection ONLINE publish")
	}
}
