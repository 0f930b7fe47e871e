package mqttclient

import (
	"context"
	"strings"
	"sync"
)

// Fake is an in-memory Client used by supervisor tests: Publish records
// every call, and tests can drive inbound traffic directly via Deliver.
type Fake struct {
	mu        sync.Mutex
	handlers  map[string]Handler
	Published []Published
}

// Published records one Publish call.
type Published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// NewFake returns a Client implementation with no broker behind it.
func NewFake() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

var _ Client = (*Fake)(nil)

func (f *Fake) Connect(_ context.Context) error { return nil }

func (f *Fake) Subscribe(topicFilter string, handler Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topicFilter] = handler
	return nil
}

func (f *Fake) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = append(f.Published, Published{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

func (f *Fake) Disconnect() {}

// Deliver feeds an inbound message to every subscribed handler whose
// filter matches topic, either exactly or through single-level "+"
// wildcards (the supervisor subscribes with "+" filters). The multi-level
// "#" wildcard is not supported.
func (f *Fake) Deliver(topic string, payload []byte) {
	topicParts := strings.Split(topic, "/")
	var matched []Handler
	f.mu.Lock()
	for filter, h := range f.handlers {
		filterParts := strings.Split(filter, "/")
		match := len(filterParts) == len(topicParts)
		for i := 0; match && i < len(filterParts); i++ {
			match = filterParts[i] == "+" || filterParts[i] == topicParts[i]
		}
		if match {
			matched = append(matched, h)
		}
	}
	f.mu.Unlock()
	for _, h := range matched {
		h(Message{Topic: topic, Payload: payload})
	}
}
