package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/fleetwatch/internal/view"
)

// pickerStage is the step of the filter picker being shown.
type pickerStage int

const (
	pickFields pickerStage = iota
	pickValues
)

// filterPicker chooses a field, then toggles the values it must match.
// Toggling applies immediately.
type filterPicker struct {
	stage  pickerStage
	fields []string
	field  int
	values []string
	value  int
}

// filterFields lists the fields offered by the picker: status, then every
// label key in the fleet (service included).
func filterFields(keys []string) []string {
	return append([]string{view.FieldStatus}, keys...)
}

// openPicker lists the filterable fields of the current fleet.
func (m *Model) openPicker() {
	m.picker = &filterPicker{
		fields: filterFields(view.LabelKeys(m.registry.Snapshot())),
	}
}

func (m *Model) closePicker() {
	m.picker = nil
}

// handlePickerKey routes keys while the picker is open.
func (m *Model) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	p := m.picker
	switch msg.String() {
	case KeyQuitAlt:
		m.quit()
		return tea.Quit
	case KeySelectPrev, KeySelectPrevK:
		if p.stage == pickFields && p.field > 0 {
			p.field--
		} else if p.stage == pickValues && p.value > 0 {
			p.value--
		}
	case KeySelectNext, KeySelectNextJ:
		if p.stage == pickFields && p.field < len(p.fields)-1 {
			p.field++
		} else if p.stage == pickValues && p.value < len(p.values)-1 {
			p.value++
		}
	case KeyExpand:
		if p.stage == pickFields {
			if len(p.fields) == 0 {
				return nil
			}
			p.stage = pickValues
			p.values = view.DistinctValues(m.registry.Snapshot(), p.fields[p.field])
			p.value = 0
			return nil
		}
		p.stage = pickFields
	case KeyToggle:
		if p.stage == pickValues && p.value < len(p.values) {
			m.toggleFilterValue(p.fields[p.field], p.values[p.value])
			m.rebuild()
		}
	case KeyCollapse:
		if p.stage == pickValues {
			p.stage = pickFields
			return nil
		}
		m.closePicker()
	case KeyFilterPicker:
		m.closePicker()
	}
	return nil
}

// toggleFilterValue adds or removes value from the filter on field. A filter
// left with no values is dropped.
func (m *Model) toggleFilterValue(field, value string) {
	for i, f := range m.filters {
		if f.Field != field {
			continue
		}
		values := make([]string, 0, len(f.Values)+1)
		removed := false
		for _, v := range f.Values {
			if v == value {
				removed = true
				continue
			}
			values = append(values, v)
		}
		if !removed {
			values = append(values, value)
		}
		if len(values) == 0 {
			m.filters = append(m.filters[:i:i], m.filters[i+1:]...)
			return
		}
		m.filters[i].Values = values
		return
	}
	m.filters = append(m.filters, view.Filter{Field: field, Values: []string{value}})
}

// filterValues returns the values selected for field.
func (m Model) filterValues(field string) []string {
	for _, f := range m.filters {
		if f.Field == field {
			return f.Values
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// describeFilters renders the active filters, e.g. `region=eu,us`.
func describeFilters(filters []view.Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, f.Field+"="+strings.Join(f.Values, ","))
	}
	return strings.Join(parts, " ")
}

// renderPicker renders the open picker as an indented list.
func (m Model) renderPicker() string {
	p := m.picker
	if p == nil {
		return ""
	}

	var lines []string
	if p.stage == pickFields {
		lines = append(lines, LabelStyle.Render(" Filter by field (enter choose, esc close)"))
		for i, f := range p.fields {
			line := "   " + f
			if vs := m.filterValues(f); len(vs) > 0 {
				line += " = " + strings.Join(vs, ",")
			}
			lines = append(lines, pickerLine(line, i == p.field))
		}
		return strings.Join(lines, "\n")
	}

	field := p.fields[p.field]
	selected := m.filterValues(field)
	lines = append(lines, LabelStyle.Render(fmt.Sprintf(" %s values (space toggle, enter done)", field)))
	if len(p.values) == 0 {
		lines = append(lines, LabelStyle.Render("   no values"))
	}
	for i, v := range p.values {
		box := "[ ]"
		if contains(selected, v) {
			box = "[x]"
		}
		lines = append(lines, pickerLine("   "+box+" "+v, i == p.value))
	}
	return strings.Join(lines, "\n")
}

func pickerLine(s string, cursor bool) string {
	if cursor {
		return SelectedRowStyle.Render(">" + s[1:])
	}
	return s
}
