// Package pipeline wires the whole sweep-to-table flow: discover run
// directories, pull metric series out of them, aggregate across seeds,
// rank configurations and format the result grid. Everything is
// recomputed from the logs on every invocation; nothing aggregated is
// ever persisted.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"

	"github.com/borkh/paper-prep/internal/aggregate"
	"github.com/borkh/paper-prep/internal/config"
	"github.com/borkh/paper-prep/internal/discovery"
	"github.com/borkh/paper-prep/internal/eventlog"
	"github.com/borkh/paper-prep/internal/extract"
	"github.com/borkh/paper-prep/internal/hparams"
	"github.com/borkh/paper-prep/internal/latex"
	"github.com/borkh/paper-prep/internal/selection"
)

// Options configures one pipeline run.
type Options struct {
	Config *config.Config
	Reader eventlog.Reader // nil picks the store per run directory
}

// MetricColumn is one metric's full treatment: its direction, how the
// direction was decided and the ranking over every configuration.
type MetricColumn struct {
	Name     string
	Display  string
	Dir      selection.Direction
	Inferred bool
	Result   selection.Result
}

// MetricValue pairs a display name with one group's aggregate.
type MetricValue struct {
	Display string
	Metric  aggregate.Metric
}

// WinnerDetail carries what the winner sections render: the ranked
// entry, its aggregates per metric and the hyperparameters of its
// lowest seed.
type WinnerDetail struct {
	Entry   selection.Entry
	Metrics []MetricValue
	Hparams []hparams.Param
}

// RunSeries is one seed's raw series, kept for plotting.
type RunSeries struct {
	Seed   int
	Series eventlog.Series
}

// Outcome is everything a command needs after one pipeline run.
type Outcome struct {
	Snapshot    *discovery.Snapshot
	Columns     []MetricColumn
	RowKeys     []string // every group, ranked by the first metric
	Table       latex.Table
	Winners     []WinnerDetail
	Diagnostics []string

	series map[string]map[string][]RunSeries
}

// Primary is the ranking on the first configured metric.
func (o *Outcome) Primary() selection.Result {
	return o.Columns[0].Result
}

// Curves returns the per-seed series of one group and metric, seeds
// ascending.
func (o *Outcome) Curves(key, metric string) []RunSeries {
	return o.series[key][metric]
}

// Run executes the pipeline.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	cfg := opts.Config
	if cfg.Root == "" {
		return nil, fmt.Errorf("no experiment root configured")
	}

	conv, err := discovery.CompileConvention(cfg.SeedPattern)
	if err != nil {
		return nil, err
	}
	snap, err := discovery.Scan(cfg.Root, conv, ScanExcludes(cfg))
	if err != nil {
		return nil, err
	}
	if snap.Runs() == 0 {
		return nil, fmt.Errorf("no run directories found under %s", cfg.Root)
	}

	directions, inferred, err := resolveDirections(cfg)
	if err != nil {
		return nil, err
	}

	outcomes := extract.All(ctx, buildTasks(snap, cfg), extract.Options{
		Reader:  opts.Reader,
		Workers: workers(cfg),
		Timeout: cfg.RunTimeout(),
	})

	out := &Outcome{
		Snapshot: snap,
		series:   make(map[string]map[string][]RunSeries),
	}
	collectDiagnostics(out, snap, outcomes)

	dispersion, err := aggregate.ParseDispersion(cfg.Dispersion)
	if err != nil {
		return nil, err
	}

	// outcomes are ordered group-major, run-minor, metric-innermost;
	// walk them back into per-group per-metric inputs.
	idx := 0
	inputs := make(map[string]map[string][]aggregate.Input)
	for _, g := range snap.Groups {
		inputs[g.Key] = make(map[string][]aggregate.Input)
		out.series[g.Key] = make(map[string][]RunSeries)
		for range g.Runs {
			for _, m := range cfg.Metrics {
				oc := outcomes[idx]
				idx++
				inputs[g.Key][m.Name] = append(inputs[g.Key][m.Name], aggregate.Input{
					Seed:    oc.Run.Seed,
					Series:  oc.Series,
					Corrupt: oc.Err != nil,
				})
				out.series[g.Key][m.Name] = append(out.series[g.Key][m.Name], RunSeries{
					Seed:   oc.Run.Seed,
					Series: oc.Series,
				})
			}
		}
	}

	for i, m := range cfg.Metrics {
		dir := directions[i]
		policy, err := aggregate.ParsePolicy(cfg.Reduction.Kind, cfg.Reduction.Window, dir == selection.Maximize)
		if err != nil {
			return nil, err
		}
		cands := make([]selection.Candidate, 0, len(snap.Groups))
		for _, g := range snap.Groups {
			cands = append(cands, selection.Candidate{
				Group:  g,
				Metric: aggregate.Across(inputs[g.Key][m.Name], policy, dispersion),
			})
		}
		out.Columns = append(out.Columns, MetricColumn{
			Name:     m.Name,
			Display:  cfg.DisplayMetric(m.Name),
			Dir:      dir,
			Inferred: inferred[i],
			Result:   selection.Rank(cands, dir, cfg.MinSeeds),
		})
	}

	for _, e := range out.Primary().Entries {
		out.RowKeys = append(out.RowKeys, e.Group.Key)
	}

	table, err := buildTable(out, cfg)
	if err != nil {
		return nil, err
	}
	out.Table = table

	buildWinners(out, cfg)
	return out, nil
}

// ScanExcludes is the directory exclude list a scan of cfg.Root should
// use: the configured names, the best_model link and, when the output
// directory defaults to living under the root, that too.
func ScanExcludes(cfg *config.Config) []string {
	exclude := append([]string{}, cfg.Exclude...)
	exclude = append(exclude, "best_model")
	if cfg.OutputDir == "" {
		exclude = append(exclude, "paper")
	}
	return exclude
}

func workers(cfg *config.Config) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.NumCPU()
}

// resolveDirections decides each metric's direction: explicit config
// wins, then the tag vocabulary; a metric neither settles is an error
// because ranking the wrong way round is worse than stopping.
func resolveDirections(cfg *config.Config) ([]selection.Direction, []bool, error) {
	dirs := make([]selection.Direction, len(cfg.Metrics))
	inferred := make([]bool, len(cfg.Metrics))
	for i, m := range cfg.Metrics {
		if m.Direction != "" {
			d, err := selection.ParseDirection(m.Direction)
			if err != nil {
				return nil, nil, fmt.Errorf("metric %q: %w", m.Name, err)
			}
			dirs[i] = d
			continue
		}
		d, ok := selection.InferDirection(m.Name)
		if !ok {
			return nil, nil, fmt.Errorf("metric %q: cannot infer direction, set one in the config", m.Name)
		}
		dirs[i] = d
		inferred[i] = true
	}
	return dirs, inferred, nil
}

func buildTasks(snap *discovery.Snapshot, cfg *config.Config) []extract.Task {
	var tasks []extract.Task
	for _, g := range snap.Groups {
		for _, r := range g.Runs {
			for _, m := range cfg.Metrics {
				tasks = append(tasks, extract.Task{Run: r, Metric: m.Name, Split: cfg.Split})
			}
		}
	}
	return tasks
}

func collectDiagnostics(out *Outcome, snap *discovery.Snapshot, outcomes []extract.Outcome) {
	for _, s := range snap.Skipped {
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("skipped %s: %s", s.Path, s.Reason))
	}
	for _, oc := range outcomes {
		if oc.Err != nil {
			out.Diagnostics = append(out.Diagnostics, oc.Err.Error())
		}
	}
}

func buildTable(out *Outcome, cfg *config.Config) (latex.Table, error) {
	format := latex.Format{
		SigDigits:    cfg.SigDigits,
		DecimalComma: cfg.DecimalComma(),
		Placeholder:  cfg.Placeholder,
	}
	t := latex.Table{Rows: out.RowKeys}
	for _, col := range out.Columns {
		t.Cols = append(t.Cols, col.Display)
	}

	byKey := make([]map[string]aggregate.Metric, len(out.Columns))
	for ci, col := range out.Columns {
		byKey[ci] = make(map[string]aggregate.Metric, len(col.Result.Entries))
		for _, e := range col.Result.Entries {
			byKey[ci][e.Group.Key] = e.Metric
		}
	}

	for _, key := range out.RowKeys {
		row := make([]latex.Cell, 0, len(out.Columns))
		for ci, col := range out.Columns {
			m := byKey[ci][key]
			cell, err := latex.FormatCell(m.Estimate, m.Dispersion, m.Defined, col.Result.IsWinner(key), format)
			if err != nil {
				return latex.Table{}, fmt.Errorf("formatting %s / %s: %w", key, col.Name, err)
			}
			row = append(row, cell)
		}
		t.Cells = append(t.Cells, row)
	}
	return t, nil
}

func buildWinners(out *Outcome, cfg *config.Config) {
	for _, e := range out.Primary().Top(cfg.TopK) {
		detail := WinnerDetail{Entry: e}
		for _, col := range out.Columns {
			for _, ce := range col.Result.Entries {
				if ce.Group.Key == e.Group.Key {
					detail.Metrics = append(detail.Metrics, MetricValue{Display: col.Display, Metric: ce.Metric})
					break
				}
			}
		}
		if len(e.Group.Runs) > 0 {
			params, err := hparams.Load(e.Group.Runs[0].Path)
			if err != nil {
				log.Printf("warning: %v", err)
				out.Diagnostics = append(out.Diagnostics, err.Error())
			}
			for i := range params {
				params[i].Name = cfg.DisplayHparam(params[i].Name)
			}
			sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
			detail.Hparams = params
		}
		out.Winners = append(out.Winners, detail)
	}
}
