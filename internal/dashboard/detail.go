package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/poller"
)

// maxEndpoints caps the endpoint rows shown in the request stats section.
const maxEndpoints = 8

var detailContainerStyle = lipgloss.NewStyle().Padding(0, 1)

// renderDetailScreen renders the expanded single-instance view.
func (m Model) renderDetailScreen() string {
	var b strings.Builder
	b.WriteString(m.renderDetailHeader())
	b.WriteString("\n\n")
	if m.viewportReady {
		b.WriteString(m.detailViewport.View())
	} else {
		b.WriteString(m.renderDetailContent())
	}
	b.WriteString("\n")
	b.WriteString(m.renderDetailFooter())
	return b.String()
}

// updateDetailViewportContent refreshes the scrollable detail content.
func (m *Model) updateDetailViewportContent() {
	if !m.viewportReady {
		return
	}
	m.detailViewport.SetContent(detailContainerStyle.Render(m.renderDetailContent()))
}

func (m Model) renderDetailHeader() string {
	title := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(m.detail.String())

	if m.detailGone {
		return HeaderStyle.Render(title + " " + ErrorTextStyle.Render("removed from fleet"))
	}

	inst, ok := m.registry.Get(m.detail)
	if !ok {
		return HeaderStyle.Render(title)
	}
	cue, active := m.cueFor(inst.Identity())
	status := StatusStyle(inst.Status).Render(StatusGlyph(inst.Status) + " " + string(inst.Status))
	out := HeaderStyle.Render(title + " " + CueMarker(cue, active) + status)
	if m.reconciler.Paused() {
		out += " " + PausedStyle.Render(fmt.Sprintf("PAUSED %d pending", m.reconciler.Pending()))
	}
	return out
}

func (m Model) renderDetailFooter() string {
	hints := []string{"esc back", "↑↓ scroll", "p pause", "q quit"}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

// renderDetailContent renders every detail section.
func (m Model) renderDetailContent() string {
	width := m.contentWidth() - 4
	if width < 40 {
		width = 40
	}

	inst, ok := m.registry.Get(m.detail)
	if !ok {
		return LabelStyle.Render("This instance is no longer part of the fleet. Press esc to go back.")
	}

	sections := []string{m.renderOverviewSection(inst, width)}
	for _, kind := range poller.Kinds {
		sections = append(sections, m.renderSlotSection(kind, width))
	}
	return strings.Join(sections, "\n")
}

func (m Model) renderOverviewSection(inst fleet.Instance, width int) string {
	var lines []string
	add := func(label, value string) {
		if value == "" {
			return
		}
		lines = append(lines, LabelStyle.Render(fit(label, 10))+ValueStyle.Render(value))
	}

	add("host", inst.Hostname)
	add("external", inst.ExternalAddress)
	add("internal", inst.InternalAddress)
	add("ports", strings.Join(inst.PortPairs(), ", "))
	if !inst.CreatedAt.IsZero() {
		add("created", fmt.Sprintf("%s (%s)", inst.CreatedAt.Local().Format("2006-01-02 15:04:05"), m.ago(inst.CreatedAt)))
	}
	if !inst.UpdatedAt.IsZero() {
		add("updated", m.ago(inst.UpdatedAt))
	}
	for _, key := range sortedLabelKeys(inst) {
		add(key, inst.Labels[key])
	}
	if len(inst.Meta) > 0 {
		add("meta", formatAnyMap(inst.Meta))
	}
	if len(inst.Stats) > 0 {
		add("stats", formatAnyMap(inst.Stats))
	}

	return renderSection("Instance", inst.ID, lines, width)
}

// renderSlotSection renders one poller feed.
func (m Model) renderSlotSection(kind poller.Kind, width int) string {
	if m.poller == nil || m.detailGone {
		return renderSection(kind.Label(), "off", []string{MutedStyle.Render("not polling")}, width)
	}
	slot, ok := m.poller.Slot(m.detail, kind)
	if !ok {
		return renderSection(kind.Label(), "off", []string{MutedStyle.Render("not polling")}, width)
	}

	value := "once"
	if slot.Interval > poller.Off {
		value = "every " + slot.Interval.String()
	}
	if slot.Latency > 0 {
		value += " · " + slot.Latency.Round(time.Millisecond).String()
	}

	var lines []string
	switch {
	case slot.Payload == nil && slot.Err == "":
		lines = append(lines, MutedStyle.Render("loading..."))
	case slot.Payload != nil:
		lines = append(lines, m.renderPayload(slot)...)
	}
	if slot.Err != "" {
		lines = append(lines, ErrorTextStyle.Render(fit("error: "+slot.Err, width-4)))
	}
	if !slot.LastSuccess.IsZero() {
		lines = append(lines, MutedStyle.Render("updated "+m.ago(slot.LastSuccess)))
	}
	if len(slot.Samples) > 1 {
		lines = append(lines, LabelStyle.Render("latency ")+RenderSparkline(slot.Samples, width-14))
	}

	return renderSection(kind.Label(), value, lines, width)
}

func (m Model) renderPayload(slot poller.Slot) []string {
	if c, ok := slot.Cache(); ok {
		return m.renderCache(c)
	}
	if s, ok := slot.Stats(); ok {
		return renderRequestStats(s)
	}
	if h, ok := slot.Health(); ok {
		return renderHealth(h)
	}
	return []string{MutedStyle.Render(fmt.Sprintf("%v", slot.Payload))}
}

func (m Model) renderCache(c poller.CacheSummary) []string {
	lines := []string{
		LabelStyle.Render("status   ") + ValueStyle.Render(c.Status),
		LabelStyle.Render("entries  ") + ValueStyle.Render(humanize.Comma(int64(c.Total()))),
		LabelStyle.Render("evicted  ") + ValueStyle.Render(humanize.Comma(c.Invalidations)),
	}
	if !c.LastRefresh.IsZero() {
		lines = append(lines, LabelStyle.Render("refreshed ")+ValueStyle.Render(m.ago(c.LastRefresh)))
	}

	categories := make([]string, 0, len(c.Counts))
	for cat := range c.Counts {
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	for _, cat := range categories {
		envs := c.Counts[cat]
		names := make([]string, 0, len(envs))
		for env := range envs {
			names = append(names, env)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, env := range names {
			parts = append(parts, fmt.Sprintf("%s=%d", env, envs[env]))
		}
		lines = append(lines, MutedStyle.Render("  "+cat+": "+strings.Join(parts, " ")))
	}
	return lines
}

func renderRequestStats(s poller.RequestStats) []string {
	lines := []string{
		LabelStyle.Render("uptime   ") + ValueStyle.Render(s.Uptime().Round(time.Second).String()),
		LabelStyle.Render("requests ") + ValueStyle.Render(humanize.Comma(s.TotalRequests)),
	}

	if len(s.StatusCodes) > 0 {
		codes := make([]string, 0, len(s.StatusCodes))
		for code := range s.StatusCodes {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		parts := make([]string, 0, len(codes))
		for _, code := range codes {
			parts = append(parts, fmt.Sprintf("%s=%s", code, humanize.Comma(s.StatusCodes[code])))
		}
		lines = append(lines, LabelStyle.Render("codes    ")+ValueStyle.Render(strings.Join(parts, " ")))
	}

	endpoints := append([]poller.EndpointStats(nil), s.Endpoints...)
	sort.SliceStable(endpoints, func(i, j int) bool {
		return endpoints[i].Count > endpoints[j].Count
	})
	if len(endpoints) > maxEndpoints {
		endpoints = endpoints[:maxEndpoints]
	}
	for _, e := range endpoints {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("  %-24s %8s req  p50 %.0fms p90 %.0fms p99 %.0fms  in %s out %s",
			truncate(e.Path, 24), humanize.Comma(e.Count), e.P50, e.P90, e.P99,
			humanize.Bytes(nonNegative(e.BytesIn)), humanize.Bytes(nonNegative(e.BytesOut)))))
	}
	return lines
}

func renderHealth(h poller.HealthProbe) []string {
	state := lipgloss.NewStyle().Foreground(ColorHealthy).Render(GlyphReady + " healthy")
	if !h.Healthy {
		state = ErrorTextStyle.Render(GlyphDown + " unhealthy")
	}
	lines := []string{state + MutedStyle.Render(" in "+h.Latency.Round(time.Millisecond).String())}
	if h.Error != "" {
		lines = append(lines, ErrorTextStyle.Render(h.Error))
	}
	return lines
}

// renderSection wraps lines in a titled box.
func renderSection(title, value string, lines []string, width int) string {
	out := []string{SectionHeader(title, value, width)}
	for _, line := range lines {
		out = append(out, SectionContentLine(line, width))
	}
	out = append(out, SectionFooter(width))
	return strings.Join(out, "\n")
}

func sortedLabelKeys(inst fleet.Instance) []string {
	keys := make([]string, 0, len(inst.Labels))
	for k := range inst.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatAnyMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n || n <= 3 {
		return s
	}
	return s[:n-3] + "..."
}

func nonNegative(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
