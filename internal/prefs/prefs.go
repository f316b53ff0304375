package prefs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/poller"
	"github.com/rileyhilliard/fleetwatch/internal/view"
)

// Preference names.
const (
	NameGroupBy       = "fleet.groupBy"
	NamePollIntervals = "fleet.pollIntervals"
	NameColumns       = "fleet.columns"
	NameViewMode      = "fleet.viewMode"
	NameSort          = "fleet.sort"
)

// Names lists every preference name.
var Names = []string{NameGroupBy, NamePollIntervals, NameColumns, NameViewMode, NameSort}

// Preferences is the typed view of every stored preference.
type Preferences struct {
	GroupBy       []string         `json:"groupBy" yaml:"groupBy"`
	PollIntervals poller.Intervals `json:"pollIntervals" yaml:"pollIntervals"`
	Columns       []string         `json:"columns" yaml:"columns"`
	ViewMode      view.Mode        `json:"viewMode" yaml:"viewMode"`
	Sort          view.SortSpec    `json:"sort" yaml:"sort"`
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Preferences {
	return Preferences{
		GroupBy:       []string{},
		PollIntervals: poller.DefaultIntervals(),
		Columns:       append([]string(nil), view.DefaultColumns...),
		ViewMode:      view.ModeTable,
		Sort:          view.DefaultSort,
	}
}

// Load reads every preference from store. Absent values keep their
// defaults; values that fail to decode or validate are cleared from the
// store and logged, never returned as errors.
func Load(store Store, log logger.Logger) Preferences {
	if log == nil {
		log = logger.Noop()
	}
	p := Defaults()

	discard := func(name string, err error) {
		log.Warn("discarding stored preference %s: %v", name, err)
		if cerr := store.Clear(name); cerr != nil {
			log.Warn("clear preference %s: %v", name, cerr)
		}
	}

	var groupBy []string
	if ok, err := store.Get(NameGroupBy, &groupBy); err != nil {
		discard(NameGroupBy, err)
	} else if ok {
		p.GroupBy = cleanList(groupBy)
	}

	var intervals map[string]string
	if ok, err := store.Get(NamePollIntervals, &intervals); err != nil {
		discard(NamePollIntervals, err)
	} else if ok {
		if iv, err := DecodeIntervals(intervals); err != nil {
			discard(NamePollIntervals, err)
		} else {
			p.PollIntervals = iv
		}
	}

	var columns []string
	if ok, err := store.Get(NameColumns, &columns); err != nil {
		discard(NameColumns, err)
	} else if ok {
		if cols := cleanList(columns); len(cols) == 0 {
			discard(NameColumns, fmt.Errorf("no columns"))
		} else {
			p.Columns = cols
		}
	}

	var mode string
	if ok, err := store.Get(NameViewMode, &mode); err != nil {
		discard(NameViewMode, err)
	} else if ok {
		if m, err := view.ParseMode(mode); err != nil {
			discard(NameViewMode, err)
		} else {
			p.ViewMode = m
		}
	}

	var spec view.SortSpec
	if ok, err := store.Get(NameSort, &spec); err != nil {
		discard(NameSort, err)
	} else if ok {
		if spec.Field == "" {
			discard(NameSort, fmt.Errorf("no sort field"))
		} else {
			p.Sort = spec
		}
	}

	return p
}

// Save writes every preference to store.
func Save(store Store, p Preferences) error {
	for _, name := range Names {
		if err := store.Set(name, p.stored(name)); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears every preference from store.
func Reset(store Store) error {
	for _, name := range Names {
		if err := store.Clear(name); err != nil {
			return err
		}
	}
	return nil
}

// stored returns the JSON shape persisted under name.
func (p Preferences) stored(name string) any {
	switch name {
	case NameGroupBy:
		if p.GroupBy == nil {
			return []string{}
		}
		return p.GroupBy
	case NamePollIntervals:
		return EncodeIntervals(p.PollIntervals)
	case NameColumns:
		return p.Columns
	case NameViewMode:
		return string(p.ViewMode)
	case NameSort:
		return p.Sort
	default:
		return nil
	}
}

// Format renders the value of name for display and for SetString.
func (p Preferences) Format(name string) (string, error) {
	switch name {
	case NameGroupBy:
		return strings.Join(p.GroupBy, ","), nil
	case NamePollIntervals:
		enc := EncodeIntervals(p.PollIntervals)
		parts := make([]string, 0, len(enc))
		for _, k := range poller.Kinds {
			parts = append(parts, string(k)+"="+enc[string(k)])
		}
		return strings.Join(parts, ","), nil
	case NameColumns:
		return strings.Join(p.Columns, ","), nil
	case NameViewMode:
		return string(p.ViewMode), nil
	case NameSort:
		return p.Sort.String(), nil
	default:
		return "", unknownName(name)
	}
}

// SetString parses value in the Format syntax and assigns it to name.
//
//	fleet.groupBy        region,role        (empty for no grouping)
//	fleet.pollIntervals  cache=30s,health=off
//	fleet.columns        service,id,status
//	fleet.viewMode       table|list|grid|card
//	fleet.sort           createdAt asc | -id
func (p *Preferences) SetString(name, value string) error {
	value = strings.TrimSpace(value)
	switch name {
	case NameGroupBy:
		p.GroupBy = cleanList(strings.Split(value, ","))
	case NamePollIntervals:
		raw := make(map[string]string)
		for _, part := range cleanList(strings.Split(value, ",")) {
			k, v, ok := strings.Cut(part, "=")
			if !ok {
				return fmt.Errorf("invalid interval %q: want kind=duration", part)
			}
			raw[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		iv, err := DecodeIntervals(raw)
		if err != nil {
			return err
		}
		merged := poller.Intervals{}
		for k, d := range p.PollIntervals {
			merged[k] = d
		}
		for k, d := range iv {
			merged[k] = d
		}
		p.PollIntervals = merged
	case NameColumns:
		cols := cleanList(strings.Split(value, ","))
		if len(cols) == 0 {
			return fmt.Errorf("at least one column is required")
		}
		p.Columns = cols
	case NameViewMode:
		m, err := view.ParseMode(value)
		if err != nil {
			return err
		}
		p.ViewMode = m
	case NameSort:
		spec, err := view.ParseSort(value)
		if err != nil {
			return err
		}
		p.Sort = spec
	default:
		return unknownName(name)
	}
	return nil
}

func unknownName(name string) error {
	return fmt.Errorf("unknown preference %q (valid: %s)", name, strings.Join(Names, ", "))
}

// EncodeIntervals renders intervals as duration strings, "off" for poller.Off.
func EncodeIntervals(iv poller.Intervals) map[string]string {
	out := make(map[string]string, len(poller.Kinds))
	for _, k := range poller.Kinds {
		d := iv.Get(k)
		if d <= poller.Off {
			out[string(k)] = "off"
			continue
		}
		out[string(k)] = d.String()
	}
	return out
}

// DecodeIntervals parses the stored interval map. Kinds not present keep
// their defaults.
func DecodeIntervals(raw map[string]string) (poller.Intervals, error) {
	iv := poller.DefaultIntervals()
	kinds := make([]string, 0, len(raw))
	for k := range raw {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, name := range kinds {
		kind, err := poller.ParseKind(name)
		if err != nil {
			return nil, err
		}
		value := strings.TrimSpace(raw[name])
		if value == "off" || value == "0" {
			iv[kind] = poller.Off
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s interval %q: %w", name, value, err)
		}
		if d < time.Second {
			return nil, fmt.Errorf("invalid %s interval %q: minimum is 1s", name, value)
		}
		iv[kind] = d
	}
	return iv, nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
