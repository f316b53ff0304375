package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/doctor"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
)

var (
	doctorOutput  string
	doctorTimeout time.Duration
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config, fleet source, and saved preferences",
	Long: `Run diagnostics: the config file loads and validates, the event stream
delivers an init event, the REST API answers a health request for one
instance, and the preference file is readable.

Examples:
  fleetwatch doctor
  fleetwatch doctor -o json
  fleetwatch doctor --timeout 2s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkOutputFormat(doctorOutput); err != nil {
			return err
		}
		return doctorCommand(cmd.Context(), cmd.OutOrStdout(), doctorOutput, doctorTimeout)
	},
}

func init() {
	doctorCmd.Flags().StringVarP(&doctorOutput, "output", "o", OutputText, "output format: text, json, or yaml")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", doctor.DefaultSourceTimeout, "how long each source check waits")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorReport is the structured doctor output.
type DoctorReport struct {
	Categories []DoctorCategory `json:"categories" yaml:"categories"`
	Summary    DoctorSummary    `json:"summary" yaml:"summary"`
}

// DoctorCategory holds the results of one category of checks.
type DoctorCategory struct {
	Name    string               `json:"name" yaml:"name"`
	Results []doctor.CheckResult `json:"results" yaml:"results"`
}

// DoctorSummary counts the check results.
type DoctorSummary struct {
	Pass     int  `json:"pass" yaml:"pass"`
	Warn     int  `json:"warn" yaml:"warn"`
	Fail     int  `json:"fail" yaml:"fail"`
	AllClear bool `json:"all_clear" yaml:"all_clear"`
}

// collectChecks builds the checks. Source checks use the loaded config, or
// defaults when it fails to load so the config checks can report why.
func collectChecks(cfgPath string, timeout time.Duration) []doctor.Check {
	checks := []doctor.Check{
		&doctor.ConfigFileCheck{ConfigPath: cfgPath},
		&doctor.ConfigSchemaCheck{ConfigPath: cfgPath},
	}

	cfg, _, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	checks = append(checks, doctor.NewSourceChecks(&doctor.SourceProbe{
		Source:  cfg.Source,
		Timeout: timeout,
	})...)
	checks = append(checks, &doctor.PrefsFileCheck{Store: openPrefsStore(cfg)})
	return checks
}

func doctorCommand(ctx context.Context, w io.Writer, format string, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	checks := collectChecks(Config(), timeout)
	results := doctor.RunAll(ctx, checks)

	switch format {
	case OutputJSON:
		return WriteJSONSuccess(w, buildDoctorReport(checks, results))
	case OutputYAML:
		return writeYAML(w, buildDoctorReport(checks, results))
	}
	return writeDoctorText(w, checks, results)
}

func buildDoctorReport(checks []doctor.Check, results []doctor.CheckResult) DoctorReport {
	grouped := doctor.GroupByCategory(checks)
	report := DoctorReport{}
	for _, cat := range doctor.Categories {
		indices := grouped[cat]
		if len(indices) == 0 {
			continue
		}
		c := DoctorCategory{Name: cat}
		for _, idx := range indices {
			c.Results = append(c.Results, results[idx])
		}
		report.Categories = append(report.Categories, c)
	}

	counts := doctor.CountByStatus(results)
	report.Summary = DoctorSummary{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
	return report
}

func writeDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	headerStyle := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("fleetwatch diagnostic report"))
	b.WriteString("\n\n")

	grouped := doctor.GroupByCategory(checks)
	for _, cat := range doctor.Categories {
		indices := grouped[cat]
		if len(indices) == 0 {
			continue
		}
		b.WriteString(headerStyle.Render(cat))
		b.WriteString("\n")
		for _, idx := range indices {
			renderCheckResult(&b, results[idx])
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("━", 60))
	b.WriteString("\n\n")

	if doctor.HasIssues(results) {
		fmt.Fprintf(&b, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(&b, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderCheckResult(b *strings.Builder, result doctor.CheckResult) {
	var symbol string
	var style lipgloss.Style

	switch result.Status {
	case doctor.StatusPass:
		symbol, style = ui.SymbolComplete, ui.SuccessStyle()
	case doctor.StatusWarn:
		symbol, style = ui.SymbolWarning, ui.WarningStyle()
	default:
		symbol, style = ui.SymbolFail, ui.ErrorStyle()
	}

	fmt.Fprintf(b, "  %s %s\n", style.Render(symbol), result.Message)

	if result.Suggestion != "" && result.Status != doctor.StatusPass {
		for _, line := range strings.Split(result.Suggestion, "\n") {
			fmt.Fprintf(b, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
