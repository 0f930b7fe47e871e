// Package adminapi exposes the bridge's admin HTTP surface: liveness,
// fleet status, and a Prometheus scrape endpoint. Router construction and
// middleware stack follow the same chi-based shape the filesystem server's
// control-plane API uses.
package adminapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/metrics"
)

// StatusProvider is implemented by the supervisor; it lets the admin API
// report fleet state without importing the supervisor package (avoiding an
// import cycle between C8 and C14).
type StatusProvider interface {
	Status() FleetStatus
}

// FleetStatus is the `/status` response body.
type FleetStatus struct {
	AGVs []AGVStatus `json:"agvs"`
}

// AGVStatus reports one AGV's per-port-role connection state.
type AGVStatus struct {
	Serial       string            `json:"serial"`
	Manufacturer string            `json:"manufacturer"`
	PortStates   map[string]string `json:"portStates"`
	Failed       bool              `json:"failed"`
}

// NewRouter builds the admin HTTP handler. provider may be nil in tests
// that only exercise /healthz and /metrics.
func NewRouter(provider StatusProvider) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", handleHealthz)
	r.Get("/status", handleStatus(provider))

	if reg := metrics.GetRegistry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleStatus(provider StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(provider.Status())
	}
}
