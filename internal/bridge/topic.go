// Package bridge implements the supervisor (C8): the process that owns the
// MQTT client, the AGV session map, the reconnect task, the scheduled
// uplink publishers, and the downlink/uplink routing between them.
package bridge

import (
	"fmt"
	"strings"
)

const topicPrefix = "uagv/v2"

// Kind is the final topic segment identifying which VDA5050 payload a
// message carries.
type Kind string

const (
	KindOrder          Kind = "order"
	KindInstantActions Kind = "instantActions"
	KindState          Kind = "state"
	KindVisualization  Kind = "visualization"
	KindConnection     Kind = "connection"
	KindFactsheet      Kind = "factsheet"
)

// ParsedTopic is the result of decomposing a `/uagv/v2/{manufacturer}/{serial}/{kind}`
// topic string.
type ParsedTopic struct {
	Manufacturer string
	Serial       string
	Kind         Kind
}

// ParseTopic decomposes an inbound MQTT topic. It accepts a leading slash
// or not, matching how different broker configurations present topics.
func ParseTopic(topic string) (ParsedTopic, error) {
	trimmed := strings.TrimPrefix(topic, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 5 || parts[0] != "uagv" || parts[1] != "v2" {
		return ParsedTopic{}, fmt.Errorf("bridge: malformed topic %q", topic)
	}
	return ParsedTopic{
		Manufacturer: parts[2],
		Serial:       parts[3],
		Kind:         Kind(parts[4]),
	}, nil
}

// Topic builds the publish topic for one AGV/kind pair.
func Topic(manufacturer, serial string, kind Kind) string {
	return fmt.Sprintf("/%s/%s/%s/%s", topicPrefix, manufacturer, serial, kind)
}

// OrderSubscription and InstantActionsSubscription are the two wildcard
// filters the supervisor subscribes to at startup (spec §4.8).
const (
	OrderSubscription          = "/" + topicPrefix + "/+/+/order"
	InstantActionsSubscription = "/" + topicPrefix + "/+/+/instantActions"
)
