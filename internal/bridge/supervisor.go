package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/adminapi"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/config"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/frame"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/metrics"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/mqttclient"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/registry"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/session"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/telemetry"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/vda5050"
)

// agvRuntime is everything the supervisor tracks for one fleet member:
// its descriptor, its live sessions keyed by port role, and the uplink
// cache the scheduled publishers read from.
type agvRuntime struct {
	descriptor config.AGV

	mu       sync.Mutex
	sessions map[registry.PortRole]*session.Session

	cacheMu       sync.Mutex
	lastState     *vda5050.State
	lastVis       *vda5050.Visualization
	connState     string
	headerCounter int64
}

func (a *agvRuntime) nextHeaderID() int64 {
	return atomic.AddInt64(&a.headerCounter, 1)
}

// Supervisor is the bridge's C8 component.
type Supervisor struct {
	cfg    *config.Config
	mqtt   mqttclient.Client
	metric *metrics.Metrics

	mu   sync.RWMutex
	agvs map[string]*agvRuntime // keyed by serial

	failedMu sync.Mutex
	failed   map[string]bool

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New builds a Supervisor from loaded configuration and a connected-or-not
// MQTT client. Call Start to bring it up.
func New(cfg *config.Config, mqttClient mqttclient.Client) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		mqtt:     mqttClient,
		metric:   metrics.Get(),
		agvs:     make(map[string]*agvRuntime, len(cfg.AGVs)),
		failed:   make(map[string]bool),
		shutdown: make(chan struct{}),
	}
	for _, d := range cfg.AGVs {
		s.agvs[d.Serial] = &agvRuntime{descriptor: d, sessions: make(map[registry.PortRole]*session.Session)}
	}
	return s
}

// Start implements the C8 start sequence: connect broker, subscribe,
// open AGV sessions, start the reconnect task and scheduled publishers.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("bridge: connect broker: %w", err)
	}
	if err := s.mqtt.Subscribe(OrderSubscription, s.handleOrderMessage); err != nil {
		return fmt.Errorf("bridge: subscribe order: %w", err)
	}
	if err := s.mqtt.Subscribe(InstantActionsSubscription, s.handleInstantActionsMessage); err != nil {
		return fmt.Errorf("bridge: subscribe instantActions: %w", err)
	}

	var wg sync.WaitGroup
	s.mu.RLock()
	for _, rt := range s.agvs {
		wg.Add(1)
		go func(rt *agvRuntime) {
			defer wg.Done()
			s.openAllPorts(ctx, rt)
		}(rt)
	}
	s.mu.RUnlock()
	wg.Wait()

	s.wg.Add(1)
	go s.reconnectLoop()

	s.startPublishers()

	return nil
}

// openAllPorts dials every configured port role for rt in parallel. Roles
// that fail to open are logged; the AGV is added to the failed set only
// when no role opens. If at least one role opens, the AGV leaves the
// failed set and the supervisor emits ONLINE/factsheet for it.
func (s *Supervisor) openAllPorts(ctx context.Context, rt *agvRuntime) {
	type result struct {
		role registry.PortRole
		err  error
	}
	results := make(chan result, len(rt.descriptor.PortMap))

	var wg sync.WaitGroup
	for roleName, port := range rt.descriptor.PortMap {
		role := registry.PortRole(roleName)
		addr := fmt.Sprintf("%s:%d", rt.descriptor.IP, port)

		wg.Add(1)
		go func(role registry.PortRole, addr string) {
			defer wg.Done()
			sess := session.New(rt.descriptor.Serial, rt.descriptor.Manufacturer, role, addr,
				func(f frame.Frame) { s.handleUplinkFrame(rt, role, f) },
				func(err error) { s.handleSessionDisconnect(rt, role, err) },
			)
			err := sess.Open(ctx)
			if err == nil {
				rt.mu.Lock()
				rt.sessions[role] = sess
				rt.mu.Unlock()

				if role == registry.PortAuthority {
					s.grabAuthority(rt, sess)
				}
			}
			results <- result{role: role, err: err}
		}(role, addr)
	}

	wg.Wait()
	close(results)

	anyOpen := false
	for r := range results {
		if r.err != nil {
			logging.Warn("failed to open AGV port",
				logging.KeySerial, rt.descriptor.Serial,
				logging.KeyPortRole, string(r.role),
				logging.KeyErr, r.err,
			)
			continue
		}
		anyOpen = true
	}

	if !anyOpen {
		s.markFailed(rt.descriptor.Serial)
		return
	}

	s.unmarkFailed(rt.descriptor.Serial)
	s.publishConnection(rt, vda5050.ConnectionOnline)
	s.publishFactsheet(rt)
}

// grabAuthority implements the one-shot authority-preemption side effect
// from spec §4.7: on a fresh authority-port open, immediately send
// grabAuthority with the AGV's configured identifier.
func (s *Supervisor) grabAuthority(rt *agvRuntime, sess *session.Session) {
	body := map[string]any{"nick_name": rt.descriptor.AuthorityIdentifier()}
	if err := sess.Send(registry.MsgAuthorityGrab, body); err != nil {
		logging.Warn("authority grab send failed",
			logging.KeySerial, rt.descriptor.Serial,
			logging.KeyErr, err,
		)
	}
}

func (s *Supervisor) markFailed(serial string) {
	s.failedMu.Lock()
	s.failed[serial] = true
	s.failedMu.Unlock()
}

func (s *Supervisor) unmarkFailed(serial string) {
	s.failedMu.Lock()
	delete(s.failed, serial)
	s.failedMu.Unlock()
}

func (s *Supervisor) handleSessionDisconnect(rt *agvRuntime, role registry.PortRole, err error) {
	logging.Info("session disconnected",
		logging.KeySerial, rt.descriptor.Serial,
		logging.KeyPortRole, string(role),
		logging.KeyErr, err,
	)
	rt.mu.Lock()
	delete(rt.sessions, role)
	remaining := len(rt.sessions)
	rt.mu.Unlock()

	if remaining == 0 {
		s.markFailed(rt.descriptor.Serial)
		s.publishConnection(rt, vda5050.ConnectionOffline)
	}
}

// Status implements adminapi.StatusProvider.
func (s *Supervisor) Status() adminapi.FleetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.failedMu.Lock()
	defer s.failedMu.Unlock()

	out := adminapi.FleetStatus{}
	for serial, rt := range s.agvs {
		rt.mu.Lock()
		states := make(map[string]string, len(rt.sessions))
		for role, sess := range rt.sessions {
			states[string(role)] = sess.State().String()
		}
		rt.mu.Unlock()

		out.AGVs = append(out.AGVs, adminapi.AGVStatus{
			Serial:       serial,
			Manufacturer: rt.descriptor.Manufacturer,
			PortStates:   states,
			Failed:       s.failed[serial],
		})
	}
	return out
}

// Shutdown implements the C8 shutdown sequence: stop publishers, stop the
// reconnect task, close every session (each emits OFFLINE), disconnect the
// MQTT client. Bounded by cfg.ShutdownGrace.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() { close(s.shutdown) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		logging.Warn("shutdown grace period exceeded, forcing close")
	}

	s.mu.RLock()
	for _, rt := range s.agvs {
		// Sessions are closed outside rt.mu: Close waits for the receive
		// loop, whose disconnect callback takes rt.mu itself.
		rt.mu.Lock()
		open := make(map[registry.PortRole]*session.Session, len(rt.sessions))
		for role, sess := range rt.sessions {
			open[role] = sess
		}
		rt.mu.Unlock()
		for role, sess := range open {
			sess.Close()
			rt.mu.Lock()
			delete(rt.sessions, role)
			rt.mu.Unlock()
		}
	}
	s.mu.RUnlock()

	s.mqtt.Disconnect()
}

func (s *Supervisor) traceSpan(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := telemetry.StartSpan(ctx, name)
	return ctx, func() { span.End() }
}
