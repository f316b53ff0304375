package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
)

// envelope is the JSON payload carried in each event's data.
type envelope struct {
	Type fleet.EventType `json:"type"`
	Data json.RawMessage `json:"data"`
}

// deleteKey is the data of a delete event.
type deleteKey struct {
	ID     string `json:"instanceId"`
	Labels struct {
		Service string `json:"service"`
	} `json:"labels"`
}

// Decode turns one SSE message into a fleet event. The JSON "type" wins over
// the SSE event name, which is only used when the payload has no type.
func Decode(msg Message) (fleet.Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Data), &env); err != nil {
		return fleet.Event{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.Type == "" {
		env.Type = fleet.EventType(msg.Event)
	}

	switch env.Type {
	case fleet.EventInit:
		instances, err := decodeInit(env.Data)
		if err != nil {
			return fleet.Event{}, err
		}
		return fleet.InitEvent(instances...), nil

	case fleet.EventPut:
		var inst fleet.Instance
		if err := json.Unmarshal(env.Data, &inst); err != nil {
			return fleet.Event{}, fmt.Errorf("decode put: %w", err)
		}
		if err := inst.Validate(); err != nil {
			return fleet.Event{}, fmt.Errorf("decode put: %w", err)
		}
		return fleet.PutEvent(inst), nil

	case fleet.EventDelete:
		var key deleteKey
		if err := json.Unmarshal(env.Data, &key); err != nil {
			return fleet.Event{}, fmt.Errorf("decode delete: %w", err)
		}
		if key.ID == "" || key.Labels.Service == "" {
			return fleet.Event{}, fmt.Errorf("decode delete: missing instanceId or service label")
		}
		return fleet.DeleteEvent(fleet.Identity{Service: key.Labels.Service, ID: key.ID}), nil

	case "":
		return fleet.Event{}, fmt.Errorf("event has no type")
	default:
		return fleet.Event{}, fmt.Errorf("unknown event type %q", env.Type)
	}
}

// decodeInit accepts an array of records or a single record object.
// A record that fails validation rejects the whole snapshot.
func decodeInit(data json.RawMessage) ([]fleet.Instance, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var instances []fleet.Instance
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &instances); err != nil {
			return nil, fmt.Errorf("decode init: %w", err)
		}
	} else {
		var inst fleet.Instance
		if err := json.Unmarshal(trimmed, &inst); err != nil {
			return nil, fmt.Errorf("decode init: %w", err)
		}
		instances = []fleet.Instance{inst}
	}

	for i, inst := range instances {
		if err := inst.Validate(); err != nil {
			return nil, fmt.Errorf("decode init record %d: %w", i, err)
		}
	}
	return instances, nil
}

// Encode renders an event as SSE data, the inverse of Decode. The simulated
// source uses it to publish events.
func Encode(ev fleet.Event) ([]byte, error) {
	var data any
	switch ev.Type {
	case fleet.EventInit:
		instances := ev.Instances
		if instances == nil {
			instances = []fleet.Instance{}
		}
		data = instances
	case fleet.EventPut:
		data = ev.Instance
	case fleet.EventDelete:
		key := deleteKey{ID: ev.Key.ID}
		key.Labels.Service = ev.Key.Service
		data = key
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return json.Marshal(envelope{Type: ev.Type, Data: raw})
}
