package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/dashboard"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/poller"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
)

// LogEnv names a file that receives log output while the dashboard owns the
// terminal.
const LogEnv = "FLEETWATCH_LOG"

// viewFlags are the preference overrides shared by watch and snapshot.
type viewFlags struct {
	mode    string
	groupBy []string
	sort    string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "view", "", "view mode: table, list, grid, or card")
	cmd.Flags().StringSliceVar(&f.groupBy, "group-by", nil, "grouping fields, outermost first (e.g. region,service)")
	cmd.Flags().StringVar(&f.sort, "sort", "", `sort order, e.g. "createdAt desc" or -id`)
}

// apply overrides p with the flags that were set.
func (f viewFlags) apply(cmd *cobra.Command, p *prefs.Preferences) error {
	set := []struct {
		flag, name, value string
	}{
		{"view", prefs.NameViewMode, f.mode},
		{"sort", prefs.NameSort, f.sort},
	}
	for _, s := range set {
		if !cmd.Flags().Changed(s.flag) {
			continue
		}
		if err := p.SetString(s.name, s.value); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid --%s value %q", s.flag, s.value),
				"Run 'fleetwatch "+cmd.Name()+" --help' for accepted values.")
		}
	}
	if cmd.Flags().Changed("group-by") {
		p.GroupBy = append([]string{}, f.groupBy...)
	}
	return nil
}

var watchFlags viewFlags

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive fleet dashboard",
	Long: `Connect to the fleet event stream and show a live, grouped view of every
instance. Changes are highlighted as they arrive.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  p           Pause / resume live updates
  v           Cycle view mode (table, list, grid, card)
  g           Cycle grouping preset
  s / S       Cycle sort field / flip direction
  /           Search
  f           Cycle status filter
  Enter       Open instance detail (starts polling)
  Esc         Back
  ?           Help

Set FLEETWATCH_LOG=/path/to/file to keep logs while the dashboard runs.

Examples:
  fleetwatch watch
  fleetwatch watch --group-by region,service
  fleetwatch watch --view card`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchCommand(cmd, watchFlags)
	},
}

func init() {
	watchFlags.register(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func watchCommand(cmd *cobra.Command, flags viewFlags) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	closeLog, err := redirectLog()
	if err != nil {
		return err
	}
	defer closeLog()

	store := openPrefsStore(cfg)
	p := prefs.Load(store, logger.For(logger.ComponentPrefs))
	if err := flags.apply(cmd, &p); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cues := fleet.NewCues()
	defer cues.Stop()
	reconciler := fleet.NewReconciler(fleet.NewRegistry(), cues)
	reconciler.SetLogger(logger.For(logger.ComponentFleet))

	var pl *poller.Poller
	if cfg.Source.APIURL != "" {
		fetcher := poller.NewHTTPFetcher(cfg.Source.APIURL, cfg.Source.RequestTimeout)
		pl = poller.New(fetcher, poller.Options{
			RequestTimeout: cfg.Source.RequestTimeout,
			Logger:         logger.For(logger.ComponentPoller),
		})
		defer pl.Close()
	}

	sess := startSession(ctx, cfg.Source, reconciler, logger.For(logger.ComponentStream))
	defer sess.Stop()

	model := dashboard.NewModel(dashboard.Deps{
		Reconciler:   reconciler,
		Poller:       pl,
		Store:        store,
		Prefs:        p,
		GroupPresets: cfg.Dashboard.GroupPresets,
		Refresh:      cfg.Dashboard.Refresh,
		StreamState:  sess.State,
		Logger:       logger.For(logger.ComponentDashboard),
	})

	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Dashboard failed",
			"Run from an interactive terminal, or use 'fleetwatch snapshot' for scripts.")
	}
	return nil
}

// redirectLog keeps log output off the dashboard's screen.
func redirectLog() (func(), error) {
	path := os.Getenv(LogEnv)
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(os.Stderr) }, nil
	}
	f, err := tea.LogToFile(config.ExpandTilde(path), "fleetwatch")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't open log file "+path,
			"Check "+LogEnv+" points to a writable location.")
	}
	return func() {
		_ = f.Close()
		log.SetOutput(os.Stderr)
		log.SetPrefix("")
	}, nil
}

// openPrefsStore returns the preference document configured by prefs.path.
func openPrefsStore(cfg *config.Config) *prefs.FileStore {
	path := cfg.Prefs.Path
	if path == "" {
		path = prefs.DefaultPath()
	}
	return prefs.NewFileStore(config.ExpandTilde(path))
}
