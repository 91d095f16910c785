package latex

import (
	"fmt"
	"strings"
)

// KV is one name/value line of a detail table. Values arrive already
// formatted; names are escaped here.
type KV struct {
	Name  string
	Value string
}

// Detail describes one winner section: training curves side by side,
// the aggregated metrics and the hyperparameters that produced them.
type Detail struct {
	Title   string
	Label   string
	Images  []string // paths relative to the emitted .tex file
	Metrics []KV
	Hparams []KV
}

// Section renders a winner detail fragment: a section heading, a
// figure pairing the images two per row, and the metric and
// hyperparameter tables.
func Section(d Detail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\\section{%s}\n\n", Escape(d.Title))

	if len(d.Images) > 0 {
		b.WriteString("\\begin{figure}[ht]\n\\centering\n")
		for i, img := range d.Images {
			b.WriteString("\\begin{minipage}[b]{0.48\\textwidth}\n")
			fmt.Fprintf(&b, "\\includegraphics[width=\\textwidth]{%s}\n", img)
			b.WriteString("\\end{minipage}")
			switch {
			case i == len(d.Images)-1:
				b.WriteString("\n")
			case i%2 == 0:
				b.WriteString("\\hfill\n")
			default:
				b.WriteString("\\\\[1ex]\n")
			}
		}
		fmt.Fprintf(&b, "\\caption{Training curves for %s.}\n", Escape(d.Title))
		if d.Label != "" {
			fmt.Fprintf(&b, "\\label{fig:%s}\n", d.Label)
		}
		b.WriteString("\\end{figure}\n\n")
	}

	if len(d.Metrics) > 0 {
		b.WriteString(kvTable(d.Metrics, "Metric", "Value"))
		b.WriteString("\n")
	}
	if len(d.Hparams) > 0 {
		b.WriteString(kvTable(d.Hparams, "Hyperparameter", "Value"))
		b.WriteString("\n")
	}
	return b.String()
}

func kvTable(kvs []KV, nameHead, valueHead string) string {
	var b strings.Builder
	b.WriteString("\\begin{table}[ht]\n\\centering\n\\begin{tabular}{ll}\n\\toprule\n")
	fmt.Fprintf(&b, "%s & %s \\\\\n\\midrule\n", Escape(nameHead), Escape(valueHead))
	for _, kv := range kvs {
		fmt.Fprintf(&b, "%s & %s \\\\\n", Escape(kv.Name), kv.Value)
	}
	b.WriteString("\\bottomrule\n\\end{tabular}\n\\end{table}\n")
	return b.String()
}
