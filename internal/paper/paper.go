// Package paper writes the pipeline's artifacts into the output
// directory: table fragments, winner sections, the assembled report
// include, diagnostics and the best_model convenience symlink. Layout:
//
//	paper/
//	  report.tex        inputs everything below
//	  tables/results.tex
//	  sections/winner-1.tex
//	  images/<slug>/*.png
//	  diagnostics.txt
//	  best_model -> winning run directory
package paper

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/borkh/paper-prep/internal/config"
	"github.com/borkh/paper-prep/internal/latex"
	"github.com/borkh/paper-prep/internal/pipeline"
)

type Writer struct {
	OutDir string
	cfg    *config.Config
}

// New resolves the output directory, <root>/paper unless configured.
func New(cfg *config.Config) *Writer {
	out := cfg.OutputDir
	if out == "" {
		out = filepath.Join(cfg.Root, "paper")
	}
	return &Writer{OutDir: out, cfg: cfg}
}

// EnsureLayout creates the directory skeleton.
func (w *Writer) EnsureLayout() error {
	for _, sub := range []string{"", "tables", "sections", "images"} {
		if err := os.MkdirAll(filepath.Join(w.OutDir, sub), 0o755); err != nil {
			return fmt.Errorf("creating output layout: %w", err)
		}
	}
	return nil
}

// Slug turns a canonical key or metric tag into a file-system and
// label safe name.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	s = strings.Trim(b.String(), "-")
	if s == "" || s == "." {
		return "root"
	}
	return s
}

// ImagesDir is where the plots of one configuration belong.
func (w *Writer) ImagesDir(key string) string {
	return filepath.Join(w.OutDir, "images", Slug(key))
}

// WriteTable writes the combined results fragment and returns its
// path.
func (w *Writer) WriteTable(out *pipeline.Outcome) (string, error) {
	frag, err := latex.Fragment(out.Table,
		"Mean and dispersion across seeds for every configuration; the best configuration per metric is bold.",
		"results")
	if err != nil {
		return "", err
	}
	path := filepath.Join(w.OutDir, "tables", "results.tex")
	if err := os.WriteFile(path, []byte(frag), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// WriteSections writes one detail fragment per winner and returns the
// paths. Images already rendered into the winner's image directory are
// picked up automatically.
func (w *Writer) WriteSections(out *pipeline.Outcome) ([]string, error) {
	format := latex.Format{
		SigDigits:    w.cfg.SigDigits,
		DecimalComma: w.cfg.DecimalComma(),
		Placeholder:  w.cfg.Placeholder,
	}
	var paths []string
	for i, detail := range out.Winners {
		label := fmt.Sprintf("winner-%d", i+1)
		d := latex.Detail{
			Title:  detail.Entry.Group.Key,
			Label:  label,
			Images: w.sectionImages(detail.Entry.Group.Key),
		}
		for _, mv := range detail.Metrics {
			cell, err := latex.FormatCell(mv.Metric.Estimate, mv.Metric.Dispersion, mv.Metric.Defined, false, format)
			if err != nil {
				return nil, fmt.Errorf("formatting winner metric %q: %w", mv.Display, err)
			}
			d.Metrics = append(d.Metrics, latex.KV{Name: mv.Display, Value: cell.Text})
		}
		for _, p := range detail.Hparams {
			d.Hparams = append(d.Hparams, latex.KV{Name: p.Name, Value: latex.Escape(p.Value)})
		}
		path := filepath.Join(w.OutDir, "sections", label+".tex")
		if err := os.WriteFile(path, []byte(latex.Section(d)), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// sectionImages lists a winner's plots relative to the output
// directory, where report.tex and the compile check resolve them from.
func (w *Writer) sectionImages(key string) []string {
	matches, err := filepath.Glob(filepath.Join(w.ImagesDir(key), "*.png"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	var rels []string
	for _, m := range matches {
		rel, err := filepath.Rel(w.OutDir, m)
		if err != nil {
			continue
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	return rels
}

// WriteReport writes report.tex, the single file a paper inputs.
func (w *Writer) WriteReport(out *pipeline.Outcome) (string, error) {
	var b strings.Builder
	b.WriteString("% Assembled results. \\input this file, or the fragments below individually.\n")
	b.WriteString("\\input{tables/results}\n")
	for i := range out.Winners {
		fmt.Fprintf(&b, "\\input{sections/winner-%d}\n", i+1)
	}
	path := filepath.Join(w.OutDir, "report.tex")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// WriteDiagnostics records skipped and corrupt runs next to the
// tables so nobody has to scroll back through terminal output.
func (w *Writer) WriteDiagnostics(out *pipeline.Outcome) (string, error) {
	path := filepath.Join(w.OutDir, "diagnostics.txt")
	if len(out.Diagnostics) == 0 {
		os.Remove(path)
		return "", nil
	}
	var b strings.Builder
	for _, d := range out.Diagnostics {
		b.WriteString(d)
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// LinkBestModel points a best_model symlink at the winning run. No
// winner or an unsupported filesystem only costs the link.
func (w *Writer) LinkBestModel(out *pipeline.Outcome) (string, error) {
	if len(out.Winners) == 0 || len(out.Winners[0].Entry.Group.Runs) == 0 {
		return "", nil
	}
	target := out.Winners[0].Entry.Group.Runs[0].Path
	link := filepath.Join(w.OutDir, "best_model")
	os.Remove(link)
	if err := os.Symlink(target, link); err != nil {
		return "", fmt.Errorf("linking best model: %w", err)
	}
	return link, nil
}

// WriteAll runs the full artifact flow and returns the report path.
func (w *Writer) WriteAll(out *pipeline.Outcome) (string, error) {
	if err := w.EnsureLayout(); err != nil {
		return "", err
	}
	if _, err := w.WriteTable(out); err != nil {
		return "", err
	}
	if _, err := w.WriteSections(out); err != nil {
		return "", err
	}
	report, err := w.WriteReport(out)
	if err != nil {
		return "", err
	}
	if _, err := w.WriteDiagnostics(out); err != nil {
		return "", err
	}
	if _, err := w.LinkBestModel(out); err != nil {
		log.Printf("warning: %v", err)
	}
	return report, nil
}
