// Package ui provides the styled line output used by fleetwatch's one-shot
// commands: colors, status symbols, a spinner for waits, a branded header,
// and plain-text tables.
//
// The interactive dashboard has its own styles in the dashboard package;
// everything here writes ordinary lines that stay readable when piped.
//
// Use DisableColors() to switch to monochrome output (for --no-color or a
// non-terminal stdout).
package ui
