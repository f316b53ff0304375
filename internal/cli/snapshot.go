package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/fleetwatch/internal/config"
	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/prefs"
	"github.com/rileyhilliard/fleetwatch/internal/ui"
	"github.com/rileyhilliard/fleetwatch/internal/view"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// DefaultSnapshotTimeout bounds the wait for the initial fleet.
const DefaultSnapshotTimeout = 10 * time.Second

type snapshotOptions struct {
	viewFlags
	output  string
	search  string
	filters []string
	columns []string
	values  string
	timeout time.Duration
}

var snapshotOpts snapshotOptions

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the current fleet once and exit",
	Long: `Connect to the fleet event stream, wait for the initial fleet, print it
with your saved grouping and sort (or the flags below), and exit.

Filters take field=value. Repeat a field to accept several values; different
fields must all match. Instances without the field match "Unknown".

Examples:
  fleetwatch snapshot
  fleetwatch snapshot --group-by region --filter status=ready
  fleetwatch snapshot --search eu-west --output json
  fleetwatch snapshot --values region`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := snapshotCommand(cmd, snapshotOpts)
		if err != nil && snapshotOpts.output == OutputJSON {
			_ = WriteJSONFromError(cmd.OutOrStdout(), err)
		}
		return err
	},
}

func init() {
	snapshotOpts.register(snapshotCmd)
	flags := snapshotCmd.Flags()
	flags.StringVarP(&snapshotOpts.output, "output", "o", OutputText, "output format: text, json, or yaml")
	flags.StringVar(&snapshotOpts.search, "search", "", "case-insensitive substring match on id, labels, host, addresses, ports")
	flags.StringArrayVar(&snapshotOpts.filters, "filter", nil, "field=value filter (repeatable)")
	flags.StringSliceVar(&snapshotOpts.columns, "columns", nil, "columns for text output (default: saved columns)")
	flags.StringVar(&snapshotOpts.values, "values", "", "list the distinct values of a field instead of instances")
	flags.DurationVar(&snapshotOpts.timeout, "timeout", DefaultSnapshotTimeout, "how long to wait for the initial fleet")
	rootCmd.AddCommand(snapshotCmd)
}

func snapshotCommand(cmd *cobra.Command, opts snapshotOptions) error {
	if err := checkOutputFormat(opts.output); err != nil {
		return err
	}
	filters, err := parseFilters(opts.filters)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	p := prefs.Load(openPrefsStore(cfg), logger.For(logger.ComponentPrefs))
	if err := opts.apply(cmd, &p); err != nil {
		return err
	}
	if cmd.Flags().Changed("columns") {
		p.Columns = opts.columns
	}

	progress := opts.output == OutputText && isTerminal(os.Stderr)
	instances, err := fetchSnapshot(cmd.Context(), cfg.Source, opts.timeout, progress)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if opts.values != "" {
		return writeValues(w, opts.output, opts.values, view.DistinctValues(instances, opts.values))
	}

	q := view.Query{
		GroupBy: p.GroupBy,
		Filters: filters,
		Search:  opts.search,
		Sort:    p.Sort,
		Mode:    p.ViewMode,
	}
	res := view.Build(instances, q)
	return writeSnapshot(w, opts.output, cfg.Source.StreamURL, q, res, p.Columns)
}

func checkOutputFormat(format string) error {
	switch format {
	case OutputText, OutputJSON, OutputYAML:
		return nil
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown output format %q", format),
		"Use --output text, json, or yaml.")
}

// parseFilters turns field=value pairs into filters, merging repeated fields
// in first-seen order.
func parseFilters(raw []string) ([]view.Filter, error) {
	var out []view.Filter
	index := make(map[string]int)
	for _, r := range raw {
		field, value, ok := strings.Cut(r, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid filter %q", r),
				"Filters look like field=value, e.g. --filter status=ready")
		}
		value = strings.TrimSpace(value)
		if i, seen := index[field]; seen {
			out[i].Values = append(out[i].Values, value)
			continue
		}
		index[field] = len(out)
		out = append(out, view.Filter{Field: field, Values: []string{value}})
	}
	return out, nil
}

// fetchSnapshot connects to the stream and returns the fleet delivered by
// the first init event.
func fetchSnapshot(ctx context.Context, src config.SourceConfig, timeout time.Duration, progress bool) ([]fleet.Instance, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reconciler := fleet.NewReconciler(fleet.NewRegistry(), nil)
	reconciler.SetLogger(logger.For(logger.ComponentFleet))
	sess := startSession(ctx, src, reconciler, logger.Noop())
	defer sess.Stop()

	var spin *ui.Spinner
	if progress {
		spin = ui.NewSpinner("Waiting for fleet from " + src.StreamURL)
		spin.Start()
	}

	select {
	case <-sess.Ready():
		if spin != nil {
			spin.Success()
		}
		return reconciler.Registry().Snapshot(), nil
	case <-ctx.Done():
	}

	if spin != nil {
		spin.Fail()
	}
	msg := fmt.Sprintf("No fleet received from %s within %s", src.StreamURL, timeout)
	suggestion := "Check source.stream_url, or start a local source with 'fleetwatch simulate'."
	if err := sess.LastError(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStream, msg, suggestion)
	}
	return nil, errors.New(errors.ErrStream, msg, suggestion)
}

// snapshotReport is the machine-readable form of a snapshot.
type snapshotReport struct {
	Source    string           `json:"source" yaml:"source"`
	Total     int              `json:"total" yaml:"total"`
	Matched   int              `json:"matched" yaml:"matched"`
	Sort      string           `json:"sort" yaml:"sort"`
	GroupBy   []string         `json:"groupBy,omitempty" yaml:"groupBy,omitempty"`
	Groups    []snapshotGroup  `json:"groups,omitempty" yaml:"groups,omitempty"`
	Instances []fleet.Instance `json:"instances,omitempty" yaml:"instances,omitempty"`
}

type snapshotGroup struct {
	Field     string           `json:"field" yaml:"field"`
	Value     string           `json:"value" yaml:"value"`
	Count     int              `json:"count" yaml:"count"`
	Groups    []snapshotGroup  `json:"groups,omitempty" yaml:"groups,omitempty"`
	Instances []fleet.Instance `json:"instances,omitempty" yaml:"instances,omitempty"`
}

func newSnapshotReport(source string, q view.Query, res view.Result) snapshotReport {
	r := snapshotReport{
		Source:  source,
		Total:   res.Total,
		Matched: len(res.Instances),
		Sort:    res.Sort.String(),
	}
	if res.Grouped() {
		r.GroupBy = q.GroupBy
		r.Groups = reportGroups(res.Groups)
	} else {
		r.Instances = res.Instances
	}
	return r
}

func reportGroups(nodes []*view.Node) []snapshotGroup {
	out := make([]snapshotGroup, 0, len(nodes))
	for _, n := range nodes {
		g := snapshotGroup{Field: n.Field, Value: n.DisplayName, Count: n.Count}
		if n.Leaf() {
			g.Instances = n.Instances
		} else {
			g.Groups = reportGroups(n.Children)
		}
		out = append(out, g)
	}
	return out
}

func writeSnapshot(w io.Writer, format, source string, q view.Query, res view.Result, columns []string) error {
	switch format {
	case OutputJSON:
		return WriteJSONSuccess(w, newSnapshotReport(source, q, res))
	case OutputYAML:
		return writeYAML(w, newSnapshotReport(source, q, res))
	}

	var b strings.Builder
	b.WriteString(ui.RenderHeader(ui.HeaderInfo{
		Title:   "snapshot",
		Version: formatVersion(version),
		Source:  source,
	}))
	b.WriteString(snapshotSummary(q, res) + "\n\n")

	cols := view.Columns(columns)
	switch {
	case len(res.Instances) == 0:
		b.WriteString(ui.MutedStyle().Render("No instances match.") + "\n")
	case res.Grouped():
		writeGroups(&b, res.Groups, cols)
	default:
		b.WriteString(ui.RenderTable(tableColumns(cols), tableRows(res.Instances, cols), ""))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func snapshotSummary(q view.Query, res view.Result) string {
	parts := []string{fmt.Sprintf("%s of %s instances",
		humanize.Comma(int64(len(res.Instances))), humanize.Comma(int64(res.Total)))}
	if res.Grouped() {
		parts = append(parts, "grouped by "+strings.Join(q.GroupBy, " › "))
	}
	parts = append(parts, "sorted by "+res.Sort.String())
	if s := strings.TrimSpace(q.Search); s != "" {
		parts = append(parts, fmt.Sprintf("search %q", s))
	}
	return ui.MutedStyle().Render(strings.Join(parts, " · "))
}

func writeGroups(b *strings.Builder, nodes []*view.Node, cols []view.Column) {
	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Level)
		header := fmt.Sprintf("▾ %s: %s (%d)", n.Field, n.DisplayName, n.Count)
		b.WriteString(indent + ui.InfoStyle().Bold(true).Render(header) + "\n")
		if n.Leaf() {
			b.WriteString(ui.RenderTable(tableColumns(cols), tableRows(n.Instances, cols), indent+"  "))
			continue
		}
		writeGroups(b, n.Children, cols)
	}
}

func tableColumns(cols []view.Column) []ui.TableColumn {
	out := make([]ui.TableColumn, len(cols))
	for i, c := range cols {
		out[i] = ui.TableColumn{Title: c.Title}
	}
	return out
}

func tableRows(instances []fleet.Instance, cols []view.Column) [][]string {
	rows := make([][]string, len(instances))
	for i, inst := range instances {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = view.CellValue(inst, c.Name)
		}
		rows[i] = row
	}
	return rows
}

func writeValues(w io.Writer, format, field string, values []string) error {
	data := struct {
		Field  string   `json:"field" yaml:"field"`
		Values []string `json:"values" yaml:"values"`
	}{Field: field, Values: values}

	switch format {
	case OutputJSON:
		return WriteJSONSuccess(w, data)
	case OutputYAML:
		return writeYAML(w, data)
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
