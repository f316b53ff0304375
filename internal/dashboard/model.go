package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/poller"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
	"github.com/rileyhilliard/fleetwatch/internal/view"
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: identity and status only
	LayoutMinimal LayoutMode = iota
	// LayoutCompact is for terminals 80-120 columns
	LayoutCompact
	// LayoutStandard is for terminals 120+ columns
	LayoutStandard
)

// Width breakpoints for layout modes
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
)

// DefaultRefresh is the redraw cadence used when Deps.Refresh is unset.
const DefaultRefresh = 100 * time.Millisecond

// Deps wires the dashboard to the live fleet.
type Deps struct {
	Reconciler *fleet.Reconciler

	// Poller feeds the detail view. Optional.
	Poller *poller.Poller

	// Store persists preference changes. Optional.
	Store prefs.Store
	Prefs prefs.Preferences

	// GroupPresets are the grouping field lists cycled by the group key.
	GroupPresets [][]string

	Refresh time.Duration

	// StreamState reports the connection status for the header. Optional.
	StreamState func() stream.State

	Logger logger.Logger
	Now    func() time.Time
}

// Model is the Bubble Tea model for the fleet dashboard.
type Model struct {
	reconciler  *fleet.Reconciler
	registry    *fleet.Registry
	cues        *fleet.Cues
	poller      *poller.Poller
	store       prefs.Store
	prefs       prefs.Preferences
	presets     [][]string
	refresh     time.Duration
	streamState func() stream.State
	log         logger.Logger
	now         func() time.Time

	changes     <-chan struct{}
	unsubscribe func()

	result       view.Result
	rows         []fleet.Instance // selectable instances in display order
	selected     int
	statusFilter fleet.Status
	filters      []view.Filter // picker filters, ANDed with the status filter
	picker       *filterPicker
	search       string
	searching    bool
	searchInput  textinput.Model

	screen         Screen
	detail         fleet.Identity
	detailGone     bool
	detailViewport viewport.Model
	viewportReady  bool

	width      int
	height     int
	lastChange time.Time
	showHelp   bool
	quitting   bool
}

// tickMsg drives redraws for cue expiry, poller results and relative times.
type tickMsg time.Time

// changedMsg signals that the registry content changed.
type changedMsg struct{}

// NewModel creates a dashboard over the reconciler's registry and subscribes
// to its changes.
func NewModel(deps Deps) Model {
	m := Model{
		reconciler:  deps.Reconciler,
		registry:    deps.Reconciler.Registry(),
		cues:        deps.Reconciler.Cues(),
		poller:      deps.Poller,
		store:       deps.Store,
		prefs:       deps.Prefs,
		presets:     deps.GroupPresets,
		refresh:     deps.Refresh,
		streamState: deps.StreamState,
		log:         deps.Logger,
		now:         deps.Now,
	}
	if m.refresh <= 0 {
		m.refresh = DefaultRefresh
	}
	if m.log == nil {
		m.log = logger.Noop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.prefs.ViewMode == "" {
		m.prefs.ViewMode = view.ModeTable
	}
	if m.prefs.Sort.Field == "" {
		m.prefs.Sort = view.DefaultSort
	}
	if len(m.prefs.Columns) == 0 {
		m.prefs.Columns = append([]string(nil), view.DefaultColumns...)
	}
	if m.prefs.PollIntervals == nil {
		m.prefs.PollIntervals = poller.DefaultIntervals()
	}

	m.searchInput = textinput.New()
	m.searchInput.Prompt = "/"
	m.searchInput.Placeholder = "search id, labels, host, address, port"
	m.searchInput.CharLimit = 128

	m.changes, m.unsubscribe = m.registry.Subscribe()
	m.rebuild()
	return m
}

// Init starts the redraw timer and waits for registry changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		waitForChange(m.changes),
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		footerHeight := 2
		viewportHeight := m.height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}
		if !m.viewportReady {
			m.detailViewport = viewport.New(m.width, viewportHeight)
			m.detailViewport.YPosition = headerHeight
			m.viewportReady = true
		} else {
			m.detailViewport.Width = m.width
			m.detailViewport.Height = viewportHeight
		}
		if m.screen == ScreenDetail {
			m.updateDetailViewportContent()
		}

	case tickMsg:
		if m.screen == ScreenDetail {
			m.updateDetailViewportContent()
		}
		return m, m.tickCmd()

	case changedMsg:
		m.lastChange = m.now()
		m.rebuild()
		if m.screen == ScreenDetail {
			m.updateDetailViewportContent()
		}
		return m, waitForChange(m.changes)
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks until the registry signals a change.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Query returns the view controls currently applied.
func (m Model) Query() view.Query {
	q := view.Query{
		GroupBy: m.prefs.GroupBy,
		Search:  m.search,
		Sort:    m.prefs.Sort,
		Mode:    m.prefs.ViewMode,
	}
	if m.statusFilter != "" {
		q.Filters = []view.Filter{{Field: view.FieldStatus, Values: []string{string(m.statusFilter)}}}
	}
	for _, f := range m.filters {
		q.Filters = append(q.Filters, view.Filter{Field: f.Field, Values: append([]string(nil), f.Values...)})
	}
	return q
}

// Result returns the current derived view.
func (m Model) Result() view.Result {
	return m.result
}

// Prefs returns the preferences as currently applied.
func (m Model) Prefs() prefs.Preferences {
	return m.prefs
}

// rebuild derives the view from a fresh snapshot and keeps the selection
// on the same instance when it is still visible.
func (m *Model) rebuild() {
	var current fleet.Identity
	if inst, ok := m.SelectedInstance(); ok {
		current = inst.Identity()
	}

	m.result = view.Build(m.registry.Snapshot(), m.Query())
	if m.result.Grouped() {
		m.rows = view.Flatten(m.result.Groups)
	} else {
		m.rows = m.result.Instances
	}

	// A vanished selection keeps its position, clamped to the new list.
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if !current.IsZero() {
		for i, inst := range m.rows {
			if inst.Identity() == current {
				m.selected = i
				break
			}
		}
	}

	if m.screen == ScreenDetail {
		_, ok := m.registry.Get(m.detail)
		if !ok && !m.detailGone {
			m.detailGone = true
			if m.poller != nil {
				m.poller.StopInstance(m.detail)
			}
		}
	}
}

// SelectedInstance returns the instance under the cursor.
func (m Model) SelectedInstance() (fleet.Instance, bool) {
	if m.selected >= 0 && m.selected < len(m.rows) {
		return m.rows[m.selected], true
	}
	return fleet.Instance{}, false
}

// openDetail expands the selected instance and starts polling its
// secondary data.
func (m *Model) openDetail() {
	inst, ok := m.SelectedInstance()
	if !ok {
		return
	}
	m.screen = ScreenDetail
	m.detail = inst.Identity()
	m.detailGone = false
	if m.poller != nil {
		m.poller.StartAll(m.detail, m.prefs.PollIntervals)
	}
	m.detailViewport.GotoTop()
	m.updateDetailViewportContent()
}

// closeDetail collapses the detail view and stops its polling.
func (m *Model) closeDetail() {
	if m.screen != ScreenDetail {
		return
	}
	if m.poller != nil && !m.detailGone {
		m.poller.StopInstance(m.detail)
	}
	m.screen = ScreenFleet
	m.detail = fleet.Identity{}
	m.detailGone = false
}

func (m *Model) togglePause() {
	m.reconciler.SetPaused(!m.reconciler.Paused())
	// Resuming replays in one update; the change signal arrives separately.
	m.rebuild()
}

func (m *Model) quit() {
	m.quitting = true
	m.closeDetail()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// nextGroupPreset cycles: no grouping -> each preset -> no grouping. A
// custom grouping not among the presets moves to the first preset.
func (m Model) nextGroupPreset() []string {
	if len(m.presets) == 0 {
		return []string{}
	}
	if len(m.prefs.GroupBy) == 0 {
		return append([]string(nil), m.presets[0]...)
	}
	for i, p := range m.presets {
		if equalFields(p, m.prefs.GroupBy) {
			if i+1 < len(m.presets) {
				return append([]string(nil), m.presets[i+1]...)
			}
			return []string{}
		}
	}
	return append([]string(nil), m.presets[0]...)
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// savePrefs persists the current preferences. Failures are logged only.
func (m *Model) savePrefs() {
	if m.store == nil {
		return
	}
	if err := prefs.Save(m.store, m.prefs); err != nil {
		m.log.Warn("save preferences: %v", err)
	}
}

// StreamState returns the connection state shown in the header.
func (m Model) StreamState() stream.State {
	if m.streamState == nil {
		return stream.StateLive
	}
	return m.streamState()
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointStandard:
		return LayoutStandard
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// cueFor returns the active attention cue for id.
func (m Model) cueFor(id fleet.Identity) (fleet.Cue, bool) {
	if m.cues == nil {
		return fleet.Cue{}, false
	}
	return m.cues.Active(id)
}
