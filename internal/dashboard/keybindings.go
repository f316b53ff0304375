package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/view"
)

// Screen is the current top-level display of the dashboard.
type Screen int

const (
	ScreenFleet Screen = iota
	ScreenDetail
)

// SortFields are the fields the sort key cycles through.
var SortFields = []string{
	view.FieldCreatedAt,
	view.FieldUpdatedAt,
	view.FieldService,
	view.FieldID,
	view.FieldStatus,
	view.FieldHostname,
}

// nextSortField returns the field after current in SortFields.
func nextSortField(current string) string {
	for i, f := range SortFields {
		if f == current {
			return SortFields[(i+1)%len(SortFields)]
		}
	}
	return SortFields[0]
}

// nextStatusFilter cycles: none -> each known status -> none.
func nextStatusFilter(current fleet.Status) fleet.Status {
	if current == "" {
		return fleet.Statuses[0]
	}
	for i, s := range fleet.Statuses {
		if s == current {
			if i+1 < len(fleet.Statuses) {
				return fleet.Statuses[i+1]
			}
			return ""
		}
	}
	return ""
}

// Key bindings as constants for consistency.
const (
	KeyQuit         = "q"
	KeyQuitAlt      = "ctrl+c"
	KeyPause        = "p"
	KeyCycleView    = "v"
	KeyCycleGroup   = "g"
	KeyCycleSort    = "s"
	KeyFlipSort     = "S"
	KeySearch       = "/"
	KeyCycleFilter  = "f"
	KeyFilterPicker = "F"
	KeyToggle       = " "
	KeySelectPrev   = "up"
	KeySelectPrevK  = "k"
	KeySelectNext   = "down"
	KeySelectNextJ  = "j"
	KeySelectFirst  = "home"
	KeySelectLast   = "end"
	KeyExpand       = "enter"
	KeyCollapse     = "esc"
	KeyToggleHelp   = "?"
)

// HandleKeyMsg processes keyboard input and returns the command to run.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if m.searching {
		return true, m.handleSearchKey(msg)
	}

	if m.picker != nil {
		return true, m.handlePickerKey(msg)
	}

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	if m.screen == ScreenDetail {
		switch key {
		case KeyCollapse:
			m.closeDetail()
			return true, nil
		case KeyQuit, KeyQuitAlt:
			m.quit()
			return true, tea.Quit
		case KeyPause:
			m.togglePause()
			return true, nil
		}
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return true, cmd
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quit()
		return true, tea.Quit

	case KeyPause:
		m.togglePause()
		return true, nil

	case KeyCycleView:
		m.prefs.ViewMode = m.prefs.ViewMode.Next()
		m.rebuild()
		m.savePrefs()
		return true, nil

	case KeyCycleGroup:
		m.prefs.GroupBy = m.nextGroupPreset()
		m.rebuild()
		m.savePrefs()
		return true, nil

	case KeyCycleSort:
		m.prefs.Sort.Field = nextSortField(m.prefs.Sort.Field)
		m.rebuild()
		m.savePrefs()
		return true, nil

	case KeyFlipSort:
		m.prefs.Sort.Desc = !m.prefs.Sort.Desc
		m.rebuild()
		m.savePrefs()
		return true, nil

	case KeyCycleFilter:
		m.statusFilter = nextStatusFilter(m.statusFilter)
		m.rebuild()
		return true, nil

	case KeyFilterPicker:
		m.openPicker()
		return true, nil

	case KeySearch:
		m.searching = true
		m.searchInput.SetValue(m.search)
		m.searchInput.CursorEnd()
		return true, m.searchInput.Focus()

	case KeyCollapse:
		if m.search != "" || m.statusFilter != "" || len(m.filters) > 0 {
			m.search = ""
			m.statusFilter = ""
			m.filters = nil
			m.rebuild()
		}
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
		return true, nil

	case KeySelectFirst:
		m.selected = 0
		return true, nil

	case KeySelectLast:
		if len(m.rows) > 0 {
			m.selected = len(m.rows) - 1
		}
		return true, nil

	case KeyExpand:
		m.openDetail()
		return true, nil
	}

	return false, nil
}

// handleSearchKey routes keys to the search input. The query follows the
// input as it is typed; enter keeps it, esc discards it.
func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case KeyExpand:
		m.searching = false
		m.searchInput.Blur()
		return nil
	case KeyCollapse:
		m.searching = false
		m.searchInput.Blur()
		m.search = ""
		m.rebuild()
		return nil
	case KeyQuitAlt:
		m.quit()
		return tea.Quit
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if v := m.searchInput.Value(); v != m.search {
		m.search = v
		m.rebuild()
	}
	return cmd
}
