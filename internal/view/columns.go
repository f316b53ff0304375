package view

import (
	"strings"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
)

// Column is one table column.
type Column struct {
	Name  string // field name
	Title string
	Width int
}

// Catalog lists the built-in columns in their default order. Label columns
// not in the catalog are created on demand by ColumnFor.
var Catalog = []Column{
	{Name: FieldService, Title: "SERVICE", Width: 14},
	{Name: FieldID, Title: "ID", Width: 14},
	{Name: FieldStatus, Title: "STATUS", Width: 13},
	{Name: FieldHostname, Title: "HOST", Width: 18},
	{Name: "region", Title: "REGION", Width: 10},
	{Name: "group", Title: "GROUP", Width: 10},
	{Name: "env", Title: "ENV", Width: 8},
	{Name: "role", Title: "ROLE", Width: 10},
	{Name: FieldExternalAddress, Title: "EXTERNAL", Width: 21},
	{Name: FieldInternalAddress, Title: "INTERNAL", Width: 21},
	{Name: "ports", Title: "PORTS", Width: 20},
	{Name: FieldCreatedAt, Title: "CREATED", Width: 20},
	{Name: FieldUpdatedAt, Title: "UPDATED", Width: 20},
}

// DefaultColumns are the visible columns when no preference is stored.
var DefaultColumns = []string{FieldService, FieldID, FieldStatus, FieldHostname, "region", FieldCreatedAt}

// ColumnFor returns the catalog column named name, or a label column.
func ColumnFor(name string) Column {
	for _, c := range Catalog {
		if c.Name == name {
			return c
		}
	}
	return Column{Name: name, Title: strings.ToUpper(name), Width: 12}
}

// Columns resolves names to columns, dropping blanks and duplicates.
func Columns(names []string) []Column {
	seen := make(map[string]bool)
	out := make([]Column, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, ColumnFor(name))
	}
	return out
}

// CellValue renders the value of column name for inst.
func CellValue(inst fleet.Instance, name string) string {
	switch name {
	case "ports":
		return strings.Join(inst.PortPairs(), ",")
	case FieldCreatedAt:
		if inst.CreatedAt.IsZero() {
			return "-"
		}
		return inst.CreatedAt.Local().Format("2006-01-02 15:04:05")
	case FieldUpdatedAt:
		if inst.UpdatedAt.IsZero() {
			return "-"
		}
		return inst.UpdatedAt.Local().Format("2006-01-02 15:04:05")
	}
	if v, ok := FieldValue(inst, name); ok {
		return v
	}
	return "-"
}
