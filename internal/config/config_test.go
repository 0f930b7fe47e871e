package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsFillPublishPeriods(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "1s", cfg.PublishPeriods.State.String())
	assert.Equal(t, "2s", cfg.PublishPeriods.Visualization.String())
	assert.Equal(t, "5s", cfg.PublishPeriods.Connection.String())
	assert.Equal(t, "30s", cfg.PublishPeriods.Factsheet.String())
	assert.Equal(t, "30s", cfg.Reconnect.Interval.String())
}

func TestValidateRejectsDuplicateSerial(t *testing.T) {
	cfg := &Config{
		Broker: BrokerConfig{URL: "tcp://localhost:1883", ClientID: "c1"},
		AGVs: []AGV{
			{Serial: "AGV1", Manufacturer: "Acme", IP: "10.0.0.1", PortMap: map[string]int{"movement": 9000}},
			{Serial: "AGV1", Manufacturer: "Acme", IP: "10.0.0.2", PortMap: map[string]int{"movement": 9001}},
		},
	}
	ApplyDefaults(cfg)
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate AGV serial")
}

func TestValidateRejectsUnknownPortRole(t *testing.T) {
	cfg := &Config{
		Broker: BrokerConfig{URL: "tcp://localhost:1883", ClientID: "c1"},
		AGVs: []AGV{
			{Serial: "AGV1", Manufacturer: "Acme", IP: "10.0.0.1", PortMap: map[string]int{"bogus": 9000}},
		},
	}
	ApplyDefaults(cfg)
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown port role")
}

func TestDiffAGVsAddedAndRemoved(t *testing.T) {
	old := []AGV{
		{Serial: "AGV1", IP: "10.0.0.1"},
		{Serial: "AGV2", IP: "10.0.0.2"},
	}
	next := []AGV{
		{Serial: "AGV1", IP: "10.0.0.1"},
		{Serial: "AGV3", IP: "10.0.0.3"},
	}

	diff := DiffAGVs(old, next)
	require.Len(t, diff.Added, 1)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "AGV3", diff.Added[0].Serial)
	assert.Equal(t, "AGV2", diff.Removed[0].Serial)
}

func TestDiffAGVsTreatsFieldChangeAsRemoveThenAdd(t *testing.T) {
	old := []AGV{{Serial: "AGV1", IP: "10.0.0.1"}}
	next := []AGV{{Serial: "AGV1", IP: "10.0.0.99"}}

	diff := DiffAGVs(old, next)
	require.Len(t, diff.Added, 1)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "10.0.0.99", diff.Added[0].IP)
}
