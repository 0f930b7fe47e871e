//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MosquittoHelper manages a disposable MQTT broker for end-to-end tests,
// the bridge's equivalent of the teacher's PostgresHelper.
type MosquittoHelper struct {
	T         *testing.T
	Container testcontainers.Container
	Host      string
	Port      int
}

const mosquittoConf = `
listener 1883
allow_anonymous true
`

// NewMosquittoHelper starts an eclipse-mosquitto container configured to
// accept anonymous connections, the shape the bridge's own
// mqttclient.Config expects when Username/Password are unset.
func NewMosquittoHelper(t *testing.T) *MosquittoHelper {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{"1883/tcp"},
		Files: []testcontainers.ContainerFile{{
			Reader:            strings.NewReader(mosquittoConf),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mosquitto container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	return &MosquittoHelper{T: t, Container: container, Host: host, Port: port.Int()}
}

// BrokerURL returns the tcp:// URL the bridge's mqttclient.Config expects.
func (m *MosquittoHelper) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", m.Host, m.Port)
}
