// Package config loads the bridge's static configuration: broker
// connection settings, the AGV fleet descriptor list, and the ambient
// logging/telemetry/metrics sections. It follows the same
// file+env+defaults+validate shape as the filesystem server this bridge
// was adapted from, generalised to the bridge's own sections.
//
// Precedence (highest to lowest): environment variables (BRIDGE_*),
// configuration file, built-in defaults. An environment variable only
// overrides a key that the loaded configuration file sets; when no file
// is found, environment variables are not read and the defaults apply.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AGV is one fleet member's static descriptor (spec §4.9/C9). Immutable
// after load — a hot-reload only adds or removes whole entries, never
// mutates one in place (see DiffAGVs).
type AGV struct {
	Serial       string            `mapstructure:"serial" yaml:"serial" validate:"required"`
	Manufacturer string            `mapstructure:"manufacturer" yaml:"manufacturer" validate:"required"`
	IP           string            `mapstructure:"ip" yaml:"ip" validate:"required,ip|hostname"`
	PortMap      map[string]int    `mapstructure:"port_map" yaml:"port_map" validate:"required,dive,gt=0,lt=65536"`
	Nickname     string            `mapstructure:"nickname" yaml:"nickname"`
	TypeSpec     TypeSpecConfig    `mapstructure:"type_spec" yaml:"type_spec"`
	Physical     PhysicalConfig    `mapstructure:"physical_parameters" yaml:"physical_parameters"`
	ProtocolLims ProtocolLimsConfig `mapstructure:"protocol_limits" yaml:"protocol_limits"`
}

// TypeSpecConfig/PhysicalConfig/ProtocolLimsConfig feed factsheet
// emission (§4.6) without forcing every AGV entry to populate them.
type TypeSpecConfig struct {
	SeriesName  string  `mapstructure:"series_name" yaml:"series_name"`
	AGVKinematic string `mapstructure:"agv_kinematic" yaml:"agv_kinematic"`
	AGVClass    string  `mapstructure:"agv_class" yaml:"agv_class" validate:"omitempty,oneof=FORKLIFT CONVEYOR TUGGER CARRIER"`
	MaxLoadMass float64 `mapstructure:"max_load_mass" yaml:"max_load_mass"`
}

type PhysicalConfig struct {
	SpeedMax        float64 `mapstructure:"speed_max" yaml:"speed_max"`
	AccelerationMax float64 `mapstructure:"acceleration_max" yaml:"acceleration_max"`
	Width           float64 `mapstructure:"width" yaml:"width"`
	Length          float64 `mapstructure:"length" yaml:"length"`
}

type ProtocolLimsConfig struct {
	MaxStringLen int `mapstructure:"max_string_len" yaml:"max_string_len"`
	MaxArrayLen  int `mapstructure:"max_array_len" yaml:"max_array_len"`
}

// BrokerConfig describes the MQTT broker connection.
type BrokerConfig struct {
	URL      string `mapstructure:"url" yaml:"url" validate:"required"`
	ClientID string `mapstructure:"client_id" yaml:"client_id" validate:"required"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	QoS      byte   `mapstructure:"qos" yaml:"qos" validate:"lte=2"`
}

// PublishPeriods controls the four scheduled publisher tasks (spec §4.8).
type PublishPeriods struct {
	State         time.Duration `mapstructure:"state" yaml:"state" validate:"gt=0"`
	Visualization time.Duration `mapstructure:"visualization" yaml:"visualization" validate:"gt=0"`
	Connection    time.Duration `mapstructure:"connection" yaml:"connection" validate:"gt=0"`
	Factsheet     time.Duration `mapstructure:"factsheet" yaml:"factsheet" validate:"gt=0"`
}

// ReconnectConfig controls the supervisor's reconnect scan task.
type ReconnectConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`
}

// LoggingConfig mirrors the logging package's Config, kept separate so the
// logging package has no dependency on viper/mapstructure.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// TelemetryConfig controls OpenTelemetry tracing and Pyroscope profiling.
type TelemetryConfig struct {
	TracingEnabled   bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint     string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ProfilingEnabled bool   `mapstructure:"profiling_enabled" yaml:"profiling_enabled"`
	PyroscopeURL     string `mapstructure:"pyroscope_url" yaml:"pyroscope_url"`
	ServiceName      string `mapstructure:"service_name" yaml:"service_name"`
}

// MetricsConfig controls the Prometheus registry and admin HTTP surface.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// AuthorityIdentifier is the nickname/serial the bridge announces when it
// grabs authority on a freshly opened authority-port connection (spec
// §4.7). Falls back to an AGV's own serial when no nickname is set.
func (a AGV) AuthorityIdentifier() string {
	if a.Nickname != "" {
		return a.Nickname
	}
	return a.Serial
}

// Config is the bridge's complete static configuration.
type Config struct {
	Broker          BrokerConfig    `mapstructure:"broker" yaml:"broker" validate:"required"`
	AGVs            []AGV           `mapstructure:"agvs" yaml:"agvs" validate:"dive"`
	PublishPeriods  PublishPeriods  `mapstructure:"publish_periods" yaml:"publish_periods"`
	Reconnect       ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`
	Logging         LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry       TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics         MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	ShutdownGrace   time.Duration   `mapstructure:"shutdown_grace" yaml:"shutdown_grace" validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration from path (or the default search path when
// empty), layers environment overrides, applies defaults for anything
// still unset, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v, path)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		))); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, path string) {
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bridge")
		v.SetConfigName("bridge")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

// Validate runs struct-tag validation across the whole config tree plus
// the cross-field checks validator tags can't express (port-map role
// names, duplicate serials).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.AGVs))
	validRoles := map[string]bool{"state-push": true, "relocation": true, "movement": true, "authority": true, "safety": true}
	for _, agv := range cfg.AGVs {
		if seen[agv.Serial] {
			return fmt.Errorf("config: duplicate AGV serial %q", agv.Serial)
		}
		seen[agv.Serial] = true
		for role := range agv.PortMap {
			if !validRoles[role] {
				return fmt.Errorf("config: AGV %q has unknown port role %q", agv.Serial, role)
			}
		}
	}
	return nil
}

// SaveConfig writes cfg back out as YAML, respecting struct yaml tags.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
