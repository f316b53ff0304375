package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/fleetwatch/internal/prefs"
)

// PrefsFileCheck reads the stored preference document.
type PrefsFileCheck struct {
	Store *prefs.FileStore
}

func (c *PrefsFileCheck) Name() string     { return "prefs_file" }
func (c *PrefsFileCheck) Category() string { return CategoryPrefs }

func (c *PrefsFileCheck) Run(context.Context) CheckResult {
	path := c.Store.Path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return pass(c.Name(), "Preferences: defaults (nothing saved yet)")
	}

	names, err := c.Store.Names()
	if err != nil {
		return warn(c.Name(),
			fmt.Sprintf("Preferences unreadable: %v", err),
			"Defaults are used until the next save replaces the file. Run 'fleetwatch prefs reset' to do it now.")
	}

	var unknown []string
	for _, name := range names {
		if !known(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return warn(c.Name(),
			fmt.Sprintf("Preferences file has unknown entries: %s", strings.Join(unknown, ", ")),
			"They are ignored. Edit "+path+" to remove them.")
	}
	return pass(c.Name(), fmt.Sprintf("Preferences: %d saved in %s", len(names), path))
}

func known(name string) bool {
	for _, n := range prefs.Names {
		if n == name {
			return true
		}
	}
	return false
}
