package fleet

// EventType tags a fleet stream event.
type EventType string

const (
	// EventInit carries the full current fleet state.
	EventInit EventType = "init"
	// EventPut announces an instance was registered or updated.
	EventPut EventType = "put"
	// EventDelete announces an instance was removed.
	EventDelete EventType = "delete"
)

// Event is one decoded message from the fleet stream.
//
// Instances is populated for EventInit, Instance for EventPut and Key for
// EventDelete (Key is also set for EventPut).
type Event struct {
	Type      EventType
	Instances []Instance
	Instance  Instance
	Key       Identity
}

// PutEvent builds a put event for inst.
func PutEvent(inst Instance) Event {
	return Event{Type: EventPut, Instance: inst, Key: inst.Identity()}
}

// DeleteEvent builds a delete event for id.
func DeleteEvent(id Identity) Event {
	return Event{Type: EventDelete, Key: id}
}

// InitEvent builds an init event carrying the full fleet.
func InitEvent(instances ...Instance) Event {
	return Event{Type: EventInit, Instances: instances}
}
