package fleet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ServiceLabel is the label key that carries an instance's service type.
const ServiceLabel = "service"

// Status is the lifecycle state reported by the fleet source.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusShuttingDown Status = "shutting_down"
	StatusError        Status = "error"
	StatusTerminated   Status = "terminated"
	StatusNoResponse   Status = "no-response"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{
	StatusInitializing,
	StatusReady,
	StatusShuttingDown,
	StatusError,
	StatusTerminated,
	StatusNoResponse,
}

// Known reports whether s is one of the statuses the source is documented to send.
func (s Status) Known() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Healthy reports whether the instance is serving.
func (s Status) Healthy() bool {
	return s == StatusReady
}

// Identity is the composite key of an instance: service type plus instance id.
type Identity struct {
	Service string
	ID      string
}

// String renders the identity as "service/id".
func (id Identity) String() string {
	return id.Service + "/" + id.ID
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id.Service == "" && id.ID == ""
}

// ParseIdentity parses the "service/id" form produced by Identity.String.
func ParseIdentity(s string) (Identity, error) {
	service, id, ok := strings.Cut(s, "/")
	if !ok || service == "" || id == "" {
		return Identity{}, fmt.Errorf("invalid instance identity %q: want service/id", s)
	}
	return Identity{Service: service, ID: id}, nil
}

// Instance is one running process of a service as reported by the fleet source.
type Instance struct {
	ID              string            `json:"instanceId" yaml:"instanceId"`
	Labels          map[string]string `json:"labels" yaml:"labels"`
	Hostname        string            `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	ExternalAddress string            `json:"externalAddress,omitempty" yaml:"externalAddress,omitempty"`
	InternalAddress string            `json:"internalAddress,omitempty" yaml:"internalAddress,omitempty"`
	Ports           map[string]int    `json:"ports,omitempty" yaml:"ports,omitempty"`
	Status          Status            `json:"status" yaml:"status"`
	Stats           map[string]any    `json:"stats,omitempty" yaml:"stats,omitempty"`
	Meta            map[string]any    `json:"meta,omitempty" yaml:"meta,omitempty"`
	CreatedAt       time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt" yaml:"updatedAt"`
}

// Service returns the service type label.
func (i Instance) Service() string {
	return i.Labels[ServiceLabel]
}

// Identity returns the composite key of the instance.
func (i Instance) Identity() Identity {
	return Identity{Service: i.Service(), ID: i.ID}
}

// Validate checks the identity invariants: a non-empty id and a service label.
func (i Instance) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("instance has no instanceId")
	}
	if i.Service() == "" {
		return fmt.Errorf("instance %s has no %q label", i.ID, ServiceLabel)
	}
	return nil
}

// Label returns the value of a label and whether it is set to a non-empty value.
func (i Instance) Label(key string) (string, bool) {
	v, ok := i.Labels[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// PortPairs returns "name:number" strings sorted by port name.
func (i Instance) PortPairs() []string {
	pairs := make([]string, 0, len(i.Ports))
	for name, port := range i.Ports {
		pairs = append(pairs, name+":"+strconv.Itoa(port))
	}
	sort.Strings(pairs)
	return pairs
}

// Clone returns a deep copy so stored records never alias caller maps.
func (i Instance) Clone() Instance {
	out := i
	out.Labels = cloneMap(i.Labels)
	out.Ports = cloneMap(i.Ports)
	out.Stats = cloneMap(i.Stats)
	out.Meta = cloneMap(i.Meta)
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
