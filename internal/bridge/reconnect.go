package bridge

import (
	"context"
	"time"
)

// reconnectLoop is the supervisor-owned task from spec §4.7: every
// cfg.Reconnect.Interval it attempts to re-open all port roles for each
// failed AGV in parallel. An AGV leaves the failed set as soon as at least
// one port role opens.
func (s *Supervisor) reconnectLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Reconnect.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.reconnectFailed()
		}
	}
}

func (s *Supervisor) reconnectFailed() {
	s.failedMu.Lock()
	serials := make([]string, 0, len(s.failed))
	for serial := range s.failed {
		serials = append(serials, serial)
	}
	s.failedMu.Unlock()

	for _, serial := range serials {
		s.mu.RLock()
		rt := s.agvs[serial]
		s.mu.RUnlock()
		if rt == nil {
			continue
		}

		s.metric.RecordReconnectAttempt(serial)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.openAllPorts(ctx, rt)
		cancel()

		s.failedMu.Lock()
		stillFailed := s.failed[serial]
		s.failedMu.Unlock()
		if !stillFailed {
			s.metric.RecordReconnectSuccess(serial)
		}
	}
}
