// Package report renders a pipeline outcome for the terminal: the
// ranked configurations with their aggregated metrics, as an aligned
// table, markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/borkh/paper-prep/internal/pipeline"
	"github.com/borkh/paper-prep/internal/selection"
)

type MetricSummary struct {
	Metric     string   `json:"metric"`
	Estimate   *float64 `json:"estimate,omitempty"`
	Dispersion *float64 `json:"dispersion,omitempty"`
	Seeds      int      `json:"seeds"`
	Expected   int      `json:"expected"`
	Partial    bool     `json:"partial,omitempty"`
	Best       bool     `json:"best,omitempty"`
}

type GroupSummary struct {
	Rank          int             `json:"rank"`
	Configuration string          `json:"configuration"`
	Eligible      bool            `json:"eligible"`
	Metrics       []MetricSummary `json:"metrics"`
}

// Generate writes the ranking in the requested format. Rows follow the
// primary ranking; every discovered configuration appears.
func Generate(out *pipeline.Outcome, format string, w io.Writer) error {
	summaries := summarize(out)
	switch format {
	case "markdown":
		return writeMarkdown(out, summaries, w)
	case "json":
		return writeJSON(summaries, w)
	case "table", "":
		return writeTable(out, summaries, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func summarize(out *pipeline.Outcome) []GroupSummary {
	var summaries []GroupSummary
	for i, key := range out.RowKeys {
		s := GroupSummary{Rank: i + 1, Configuration: key}
		for _, col := range out.Columns {
			entry, ok := entryFor(col.Result, key)
			if !ok {
				continue
			}
			ms := MetricSummary{
				Metric:   col.Display,
				Seeds:    entry.Metric.Seeds,
				Expected: entry.Metric.Expected,
				Partial:  entry.Metric.Partial,
				Best:     col.Result.IsWinner(key),
			}
			if entry.Metric.Defined {
				est, disp := entry.Metric.Estimate, entry.Metric.Dispersion
				ms.Estimate, ms.Dispersion = &est, &disp
			}
			s.Metrics = append(s.Metrics, ms)
		}
		if entry, ok := entryFor(out.Primary(), key); ok {
			s.Eligible = entry.Eligible
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func entryFor(res selection.Result, key string) (selection.Entry, bool) {
	for _, e := range res.Entries {
		if e.Group.Key == key {
			return e, true
		}
	}
	return selection.Entry{}, false
}

// cellText formats one aggregate for the terminal. Partial aggregates
// get a trailing marker; the seed ratio shows how many runs
// contributed.
func cellText(ms MetricSummary) string {
	if ms.Estimate == nil {
		return "-"
	}
	s := fmt.Sprintf("%.4g ±%.4g (%d/%d)", *ms.Estimate, *ms.Dispersion, ms.Seeds, ms.Expected)
	if ms.Partial {
		s += "*"
	}
	return s
}

func writeTable(out *pipeline.Outcome, summaries []GroupSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "RANK\tCONFIGURATION"
	for _, col := range out.Columns {
		header += "\t" + strings.ToUpper(col.Display)
	}
	fmt.Fprintln(tw, header)
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%s", s.Rank, s.Configuration)
		for _, ms := range s.Metrics {
			text := cellText(ms)
			if ms.Best {
				text += " <"
			}
			fmt.Fprintf(tw, "\t%s", text)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeMarkdown(out *pipeline.Outcome, summaries []GroupSummary, w io.Writer) error {
	fmt.Fprint(w, "| Rank | Configuration |")
	for _, col := range out.Columns {
		fmt.Fprintf(w, " %s |", col.Display)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, "|---|---|")
	for range out.Columns {
		fmt.Fprint(w, "---|")
	}
	fmt.Fprintln(w)
	for _, s := range summaries {
		fmt.Fprintf(w, "| %d | %s |", s.Rank, s.Configuration)
		for _, ms := range s.Metrics {
			text := cellText(ms)
			if ms.Best {
				text = "**" + text + "**"
			}
			fmt.Fprintf(w, " %s |", text)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeJSON(summaries []GroupSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
