package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
)

// Built-in field names. Any other name addresses a label.
const (
	FieldID              = "id"
	FieldService         = "service"
	FieldStatus          = "status"
	FieldHostname        = "hostname"
	FieldExternalAddress = "externalAddress"
	FieldInternalAddress = "internalAddress"
	FieldCreatedAt       = "createdAt"
	FieldUpdatedAt       = "updatedAt"
)

// UnknownBucket names the group of instances without a value for a field.
const UnknownBucket = "Unknown"

// FieldValue returns the value of field for inst and whether it is set.
func FieldValue(inst fleet.Instance, field string) (string, bool) {
	var v string
	switch field {
	case FieldID:
		v = inst.ID
	case FieldService:
		v = inst.Service()
	case FieldStatus:
		v = string(inst.Status)
	case FieldHostname:
		v = inst.Hostname
	case FieldExternalAddress:
		v = inst.ExternalAddress
	case FieldInternalAddress:
		v = inst.InternalAddress
	case FieldCreatedAt:
		if inst.CreatedAt.IsZero() {
			return "", false
		}
		v = inst.CreatedAt.UTC().Format(time.RFC3339)
	case FieldUpdatedAt:
		if inst.UpdatedAt.IsZero() {
			return "", false
		}
		v = inst.UpdatedAt.UTC().Format(time.RFC3339)
	default:
		return inst.Label(field)
	}
	return v, v != ""
}

// bucketValue is FieldValue with missing values mapped to UnknownBucket.
func bucketValue(inst fleet.Instance, field string) string {
	if v, ok := FieldValue(inst, field); ok {
		return v
	}
	return UnknownBucket
}

// compareField orders two instances by field. Timestamps compare
// chronologically; everything else compares by byte order.
func compareField(a, b fleet.Instance, field string) int {
	switch field {
	case FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	av, _ := FieldValue(a, field)
	bv, _ := FieldValue(b, field)
	return strings.Compare(av, bv)
}

// SortSpec is a user-selected sort field and direction.
type SortSpec struct {
	Field string `json:"field" yaml:"field"`
	Desc  bool   `json:"desc" yaml:"desc"`
}

// DefaultSort orders by creation time, oldest first.
var DefaultSort = SortSpec{Field: FieldCreatedAt}

// String renders the spec as "field asc" or "field desc".
func (s SortSpec) String() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	return s.Field + " " + dir
}

// ParseSort parses "field", "field asc", "field desc" or "-field".
func ParseSort(s string) (SortSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortSpec{}, fmt.Errorf("empty sort spec")
	}
	if strings.HasPrefix(s, "-") {
		return SortSpec{Field: strings.TrimPrefix(s, "-"), Desc: true}, nil
	}

	parts := strings.Fields(s)
	switch {
	case len(parts) == 1:
		return SortSpec{Field: parts[0]}, nil
	case len(parts) == 2 && strings.EqualFold(parts[1], "asc"):
		return SortSpec{Field: parts[0]}, nil
	case len(parts) == 2 && strings.EqualFold(parts[1], "desc"):
		return SortSpec{Field: parts[0], Desc: true}, nil
	default:
		return SortSpec{}, fmt.Errorf("invalid sort spec %q: want \"field [asc|desc]\"", s)
	}
}
