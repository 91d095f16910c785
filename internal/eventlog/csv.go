package eventlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// CSVReader decodes Lightning-style metrics.csv: a header row naming
// the logged tags plus a step column, then one row per logging event
// with blank cells for tags not logged at that step.
type CSVReader struct{}

func (CSVReader) ReadSeries(ctx context.Context, runPath, tag string) (Series, error) {
	path := filepath.Join(runPath, csvName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, ErrCorrupt)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %v: %w", path, err, ErrCorrupt)
	}
	tagCol, stepCol := -1, -1
	for i, name := range header {
		switch name {
		case tag:
			tagCol = i
		case "step":
			stepCol = i
		}
	}
	if tagCol == -1 {
		// Tag never logged in this run; absence is not an error.
		return nil, nil
	}

	var series Series
	row := 0
	for {
		row++
		if row%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %v: %w", path, row, err, ErrCorrupt)
		}
		cell := rec[tagCol]
		if cell == "" {
			continue
		}
		val, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d column %q: %v: %w", path, row, tag, err, ErrCorrupt)
		}
		step := int64(row - 1)
		if stepCol != -1 && rec[stepCol] != "" {
			s, err := strconv.ParseFloat(rec[stepCol], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad step %q: %w", path, row, rec[stepCol], ErrCorrupt)
			}
			step = int64(s)
		}
		series = append(series, Point{Step: step, Value: val})
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Step < series[j].Step })
	return series, nil
}
