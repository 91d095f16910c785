// Package eventlog reads scalar metric series out of training run
// directories. A run directory holds one scalar store: a metrics.jsonl
// stream or a Lightning-style metrics.csv. Binary event files written
// by tracking frameworks are recognized but not decoded; runs that
// carry only those surface as corrupt so they stay visible downstream
// instead of silently vanishing.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrCorrupt marks a run whose scalar store cannot be decoded. Callers
// match it with errors.Is and treat the run as unusable for the
// requested metric rather than failing the whole batch.
var ErrCorrupt = errors.New("corrupt scalar store")

// Point is one logged scalar observation.
type Point struct {
	Step  int64
	Value float64
}

// Series is the ordered observations of one tag within one run.
type Series []Point

// LastStep returns the highest step in the series, or -1 when empty.
func (s Series) LastStep() int64 {
	if len(s) == 0 {
		return -1
	}
	return s[len(s)-1].Step
}

// Values copies out the raw scalar values in step order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Reader pulls one named scalar series out of a run directory.
// An unknown tag yields an empty series and no error; a store that
// cannot be decoded yields an error wrapping ErrCorrupt.
type Reader interface {
	ReadSeries(ctx context.Context, runPath, tag string) (Series, error)
}

const (
	jsonlName = "metrics.jsonl"
	csvName   = "metrics.csv"
)

// HasStore reports whether dir contains something we recognize as a
// scalar store, decodable or not. Discovery uses it to tell run
// directories apart from grouping directories.
func HasStore(dir string) bool {
	for _, name := range []string{jsonlName, csvName} {
		if fi, err := os.Stat(filepath.Join(dir, name)); err == nil && !fi.IsDir() {
			return true
		}
	}
	return hasBinaryEvents(dir)
}

func hasBinaryEvents(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), "tfevents") {
			return true
		}
	}
	return false
}

// Auto returns a Reader that picks the store format per run directory:
// metrics.jsonl wins over metrics.csv when both exist.
func Auto() Reader {
	return autoReader{}
}

type autoReader struct{}

func (autoReader) ReadSeries(ctx context.Context, runPath, tag string) (Series, error) {
	if _, err := os.Stat(filepath.Join(runPath, jsonlName)); err == nil {
		return JSONLReader{}.ReadSeries(ctx, runPath, tag)
	}
	if _, err := os.Stat(filepath.Join(runPath, csvName)); err == nil {
		return CSVReader{}.ReadSeries(ctx, runPath, tag)
	}
	if hasBinaryEvents(runPath) {
		return nil, fmt.Errorf("%s: binary event files need exporting to %s or %s first: %w",
			runPath, jsonlName, csvName, ErrCorrupt)
	}
	return nil, fmt.Errorf("%s: no scalar store found: %w", runPath, ErrCorrupt)
}
