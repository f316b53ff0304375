package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/rileyhilliard/fleetwatch/internal/view"
)

var prefsShowOutput string

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change saved view preferences",
	Long: `Manage the preferences the dashboard restores on start: grouping, poll
intervals, visible columns, view mode, and sort order.

Preferences are stored in prefs.path from your config (default: the
per-user config directory).

Examples:
  fleetwatch prefs show
  fleetwatch prefs set fleet.groupBy region,service
  fleetwatch prefs set fleet.pollIntervals health=2s,cache=off
  fleetwatch prefs edit
  fleetwatch prefs reset`,
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkOutputFormat(prefsShowOutput); err != nil {
			return err
		}
		store, err := prefsStore()
		if err != nil {
			return err
		}
		return prefsShow(cmd.OutOrStdout(), store, prefsShowOutput)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Change one preference",
	Long: `Change one preference. Names and value syntax:

  fleet.groupBy        region,role        (empty for no grouping)
  fleet.pollIntervals  cache=30s,health=off
  fleet.columns        service,id,status
  fleet.viewMode       table|list|grid|card
  fleet.sort           "createdAt asc" or -id`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: prefs.Names,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefsStore()
		if err != nil {
			return err
		}
		if err := prefsSet(store, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s updated\n", ui.SuccessStyle().Render(ui.SymbolSuccess), args[0])
		return nil
	},
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget every saved preference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefsStore()
		if err != nil {
			return err
		}
		if err := prefs.Reset(store); err != nil {
			return errors.WrapWithCode(err, errors.ErrPrefs,
				"Couldn't reset preferences",
				"Check the preference file is writable.")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s preferences reset to defaults\n", ui.SuccessStyle().Render(ui.SymbolSuccess))
		return nil
	},
}

var prefsEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit preferences interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefsStore()
		if err != nil {
			return err
		}
		return prefsEdit(cmd.OutOrStdout(), store)
	},
}

func init() {
	prefsShowCmd.Flags().StringVarP(&prefsShowOutput, "output", "o", OutputText, "output format: text, json, or yaml")
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd, prefsResetCmd, prefsEditCmd)
	rootCmd.AddCommand(prefsCmd)
}

func prefsStore() (prefs.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openPrefsStore(cfg), nil
}

func loadPrefs(store prefs.Store) prefs.Preferences {
	return prefs.Load(store, logger.For(logger.ComponentPrefs))
}

func prefsShow(w io.Writer, store prefs.Store, format string) error {
	p := loadPrefs(store)
	values := make(map[string]string, len(prefs.Names))
	pairs := make([][2]string, 0, len(prefs.Names)+1)
	for _, name := range prefs.Names {
		v, err := p.Format(name)
		if err != nil {
			return err
		}
		values[name] = v
		if v == "" {
			v = ui.MutedStyle().Render("(none)")
		}
		pairs = append(pairs, [2]string{name, v})
	}

	switch format {
	case OutputJSON:
		return WriteJSONSuccess(w, values)
	case OutputYAML:
		return writeYAML(w, values)
	}

	if fs, ok := store.(*prefs.FileStore); ok {
		pairs = append(pairs, [2]string{"file", ui.MutedStyle().Render(fs.Path())})
	}
	_, err := io.WriteString(w, ui.RenderKeyValues(pairs, ""))
	return err
}

func prefsSet(store prefs.Store, name, value string) error {
	p := loadPrefs(store)
	if err := p.SetString(name, value); err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs,
			fmt.Sprintf("Invalid value for %s", name),
			"Run 'fleetwatch prefs set --help' for the accepted syntax.")
	}
	if err := prefs.Save(store, p); err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs,
			"Couldn't save preferences",
			"Check the preference file is writable.")
	}
	return nil
}

// prefsForm holds the editable preference values as text.
type prefsForm struct {
	values map[string]*string
}

func newPrefsForm(p prefs.Preferences) (*prefsForm, error) {
	f := &prefsForm{values: make(map[string]*string, len(prefs.Names))}
	for _, name := range prefs.Names {
		v, err := p.Format(name)
		if err != nil {
			return nil, err
		}
		f.values[name] = &v
	}
	return f, nil
}

// validator checks a single field by applying it to a scratch copy of base.
func validator(base prefs.Preferences, name string) func(string) error {
	return func(s string) error {
		scratch := base
		return scratch.SetString(name, s)
	}
}

// apply writes every form value onto p.
func (f *prefsForm) apply(p *prefs.Preferences) error {
	for _, name := range prefs.Names {
		if err := p.SetString(name, *f.values[name]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (f *prefsForm) build(base prefs.Preferences) *huh.Form {
	modes := make([]huh.Option[string], 0, len(view.Modes))
	for _, m := range view.Modes {
		modes = append(modes, huh.NewOption(m.String(), m.String()))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("View mode").
				Options(modes...).
				Value(f.values[prefs.NameViewMode]),
			huh.NewInput().
				Title("Group by").
				Description("Grouping fields, outermost first. Empty for a flat list.").
				Placeholder("region,service").
				Value(f.values[prefs.NameGroupBy]).
				Validate(validator(base, prefs.NameGroupBy)),
			huh.NewInput().
				Title("Sort").
				Description(`A field and direction, e.g. "createdAt asc" or -id`).
				Value(f.values[prefs.NameSort]).
				Validate(validator(base, prefs.NameSort)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Columns").
				Description("Visible columns in order. Labels work too.").
				Value(f.values[prefs.NameColumns]).
				Validate(validator(base, prefs.NameColumns)),
			huh.NewInput().
				Title("Poll intervals").
				Description("kind=duration for cache, stats, health. Use off to disable.").
				Value(f.values[prefs.NamePollIntervals]).
				Validate(validator(base, prefs.NamePollIntervals)),
		),
	)
}

func prefsEdit(w io.Writer, store prefs.Store) error {
	p := loadPrefs(store)
	form, err := newPrefsForm(p)
	if err != nil {
		return err
	}

	if err := form.build(p).Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(w, ui.MutedStyle().Render("No changes saved."))
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrPrefs,
			"Failed to get user input",
			"Check terminal compatibility or use 'fleetwatch prefs set'.")
	}

	before := p
	if err := form.apply(&p); err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs, "Invalid preference", "")
	}
	changed := changedNames(before, p)
	if len(changed) == 0 {
		fmt.Fprintln(w, ui.MutedStyle().Render("No changes saved."))
		return nil
	}
	if err := prefs.Save(store, p); err != nil {
		return errors.WrapWithCode(err, errors.ErrPrefs,
			"Couldn't save preferences",
			"Check the preference file is writable.")
	}

	fmt.Fprintf(w, "%s saved %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), strings.Join(changed, ", "))
	return nil
}

// changedNames lists the preferences whose formatted values differ.
func changedNames(before, after prefs.Preferences) []string {
	var out []string
	for _, name := range prefs.Names {
		a, _ := before.Format(name)
		b, _ := after.Format(name)
		if strings.TrimSpace(a) != strings.TrimSpace(b) {
			out = append(out, name)
		}
	}
	return out
}
