package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/adminapi"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/bridge"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/config"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/logging"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/metrics"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/mqttclient"
	"github.com/lakasli/TCP-VDA5050-bridge-server/internal/telemetry"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `vda5050-bridge - VDA5050 MQTT <-> vendor TCP fleet bridge

Usage:
  vda5050-bridge <command> [flags]

Commands:
  start    Start the bridge
  version  Show version information

Flags:
  --config string    Path to config file (default: ./bridge.yaml)

Environment Variables:
  Configuration options set in the config file can be overridden using
  environment variables.
  Format: BRIDGE_<SECTION>_<KEY> (use underscores for nested keys)

  Examples:
    BRIDGE_LOGGING_LEVEL=DEBUG
    BRIDGE_BROKER_URL=tcp://broker:1883
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		runStart()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("vda5050-bridge %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file (default: ./bridge.yaml)")
	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logging.Configure(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.TracingEnabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       true,
		SampleRate:     1.0,
	})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logging.Error("telemetry shutdown error", logging.KeyErr, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.ProfilingEnabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.PyroscopeURL,
	})
	if err != nil {
		log.Fatalf("failed to initialize profiling: %v", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logging.Error("profiling shutdown error", logging.KeyErr, err)
		}
	}()

	logging.Info("starting vda5050-bridge", "version", version, "agvs", len(cfg.AGVs))
	if telemetry.IsEnabled() {
		logging.Info("tracing enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	}
	if telemetry.IsProfilingEnabled() {
		logging.Info("profiling enabled", "endpoint", cfg.Telemetry.PyroscopeURL)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logging.Info("metrics enabled", "addr", cfg.Metrics.Addr)
	} else {
		logging.Info("metrics disabled")
	}

	mqttClient := mqttclient.New(mqttclient.Config{
		BrokerURL: cfg.Broker.URL,
		ClientID:  cfg.Broker.ClientID,
		Username:  cfg.Broker.Username,
		Password:  cfg.Broker.Password,
		QoS:       cfg.Broker.QoS,
	})

	supervisor := bridge.New(cfg, mqttClient)
	if err := supervisor.Start(ctx); err != nil {
		log.Fatalf("failed to start bridge: %v", err)
	}

	adminAddr := cfg.Metrics.Addr
	if adminAddr == "" {
		adminAddr = ":9090"
	}
	adminServer := adminapi.NewServer(adminAddr, supervisor)
	adminDone := make(chan error, 1)
	go func() { adminDone <- adminServer.Start(ctx) }()

	watcher, err := config.NewWatcher(*configFile)
	if err != nil {
		logging.Warn("config hot-reload disabled", logging.KeyErr, err)
	} else {
		defer watcher.Close()
		go watchConfigChanges(watcher, cfg)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logging.Info("bridge is running, press ctrl+c to stop")
	<-sigChan
	signal.Stop(sigChan)
	logging.Info("shutdown signal received, initiating graceful shutdown")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	supervisor.Shutdown(shutdownCtx)
	if err := <-adminDone; err != nil {
		logging.Warn("admin API shutdown error", logging.KeyErr, err)
	}

	logging.Info("bridge stopped")
}

// watchConfigChanges logs which AGVs were added/removed on a config
// reload. The running supervisor itself is immutable for the lifetime of
// this process; a diff that isn't a no-op requires a restart to take
// effect (see the reload-semantics note in DESIGN.md).
func watchConfigChanges(w *config.Watcher, previous *config.Config) {
	for next := range w.Changes() {
		diff := config.DiffAGVs(previous.AGVs, next.AGVs)
		if len(diff.Added) == 0 && len(diff.Removed) == 0 {
			continue
		}
		logging.Info("configuration file changed",
			"added", len(diff.Added), "removed", len(diff.Removed))
		logging.Warn("restart required for fleet changes to take effect")
		previous = next
	}
}
