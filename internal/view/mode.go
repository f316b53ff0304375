package view

import "fmt"

// Mode is the display mode of the fleet view.
type Mode string

const (
	ModeTable Mode = "table"
	ModeList  Mode = "list"
	ModeGrid  Mode = "grid"
	ModeCard  Mode = "card"
)

// Modes lists every mode in cycle order.
var Modes = []Mode{ModeTable, ModeList, ModeGrid, ModeCard}

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Next cycles to the next mode.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeTable
}

// FixedOrder reports whether the mode ignores the user sort. Grid and card
// layouts keep creation order so new instances append instead of reshuffling.
func (m Mode) FixedOrder() bool {
	return m == ModeGrid || m == ModeCard
}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	for _, mode := range Modes {
		if string(mode) == s {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown view mode %q (valid: table, list, grid, card)", s)
}
