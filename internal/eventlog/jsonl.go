package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// JSONLReader decodes metrics.jsonl: one JSON object per line with a
// step, a tag and a scalar value. Lines carrying other tags are
// skipped; a line that is not valid JSON marks the store corrupt.
type JSONLReader struct{}

type jsonlRecord struct {
	Step  *int64   `json:"step"`
	Tag   string   `json:"tag"`
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

func (JSONLReader) ReadSeries(ctx context.Context, runPath, tag string) (Series, error) {
	path := filepath.Join(runPath, jsonlName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, ErrCorrupt)
	}
	defer f.Close()

	var series Series
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if line%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %v: %w", path, line, err, ErrCorrupt)
		}
		name := rec.Tag
		if name == "" {
			name = rec.Name
		}
		if name != tag {
			continue
		}
		if rec.Value == nil {
			continue
		}
		var step int64
		if rec.Step != nil {
			step = *rec.Step
		} else {
			step = int64(len(series))
		}
		series = append(series, Point{Step: step, Value: *rec.Value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %v: %w", path, err, ErrCorrupt)
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Step < series[j].Step })
	return series, nil
}
