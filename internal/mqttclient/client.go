// Package mqttclient narrows the bridge's MQTT dependency to the handful
// of operations the supervisor needs, then implements that interface with
// the Eclipse Paho client — the same client the pack's vehicle-agent
// reference uses for its broker connection, adapted here from a
// publish-on-a-ticker agent to a subscribe-and-route broker client.
package mqttclient

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
)

// Message is the minimal shape the supervisor needs from an inbound MQTT
// message, decoupled from the paho mqtt.Message interface so tests can
// construct one directly.
type Message struct {
	Topic   string
	Payload []byte
}

// Handler processes one inbound message.
type Handler func(Message)

// Client is the narrow interface the supervisor depends on. The
// production implementation wraps paho.mqtt.golang; tests can substitute
// a fake.
type Client interface {
	Connect(ctx context.Context) error
	Subscribe(topicFilter string, handler Handler) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}

// Config configures the Paho client.
type Config struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       byte
}

type pahoClient struct {
	cfg    Config
	client mqtt.Client
}

// New builds a Paho-backed Client. Connect must be called before
// Subscribe/Publish.
func New(cfg Config) Client {
	return &pahoClient{cfg: cfg}
}

func (c *pahoClient) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID + "-" + uuid.NewString()).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqttclient: connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttclient: connect: %w", err)
	}
	return nil
}

func (c *pahoClient) Subscribe(topicFilter string, handler Handler) error {
	token := c.client.Subscribe(topicFilter, c.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
		handler(Message{Topic: m.Topic(), Payload: m.Payload()})
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttclient: subscribe %s: %w", topicFilter, err)
	}
	return nil
}

func (c *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

func (c *pahoClient) Disconnect() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

func (c *pahoClient) onConnect(_ mqtt.Client) {
	logging.Info("mqtt client connected", "broker", c.cfg.BrokerURL)
}

func (c *pahoClient) onConnectionLost(_ mqtt.Client, err error) {
	logging.Warn("mqtt connection lost", logging.KeyErr, err)
}
