package extract_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/borkh/paper-prep/internal/discovery"
	"github.com/borkh/paper-prep/internal/eventlog"
	"github.com/borkh/paper-prep/internal/extract"
)

func writeJSONL(t *testing.T, lines string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "metrics.jsonl"), []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCandidateTags(t *testing.T) {
	got := extract.CandidateTags("test", "accuracy")
	want := []string{"test/accuracy", "test_accuracy", "accuracy"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if got := extract.CandidateTags("", "accuracy"); len(got) != 1 || got[0] != "accuracy" {
		t.Errorf("without split: got %v", got)
	}
}

func TestSeriesTriesSplitSpellings(t *testing.T) {
	dir := writeJSONL(t, `{"step": 0, "tag": "test_accuracy", "value": 0.9}
`)
	s, tag, err := extract.Series(context.Background(), eventlog.Auto(), dir, "test", "accuracy")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if tag != "test_accuracy" {
		t.Errorf("tag: got %q, want test_accuracy", tag)
	}
	if len(s) != 1 || s[0].Value != 0.9 {
		t.Errorf("series: got %+v", s)
	}
}

func TestSeriesAbsentMetricIsEmptyNotError(t *testing.T) {
	dir := writeJSONL(t, `{"step": 0, "tag": "loss", "value": 1.0}
`)
	s, _, err := extract.Series(context.Background(), eventlog.Auto(), dir, "", "accuracy")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("got %d points, want 0", len(s))
	}
}

func TestAllPreservesTaskOrder(t *testing.T) {
	var tasks []extract.Task
	for i := 0; i < 8; i++ {
		dir := writeJSONL(t, fmt.Sprintf(`{"step": 0, "tag": "loss", "value": %d}
`, i))
		tasks = append(tasks, extract.Task{
			Run:    discovery.RunDir{Path: dir, Seed: i},
			Metric: "loss",
		})
	}
	outcomes := extract.All(context.Background(), tasks, extract.Options{Workers: 4})
	if len(outcomes) != len(tasks) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(tasks))
	}
	for i, out := range outcomes {
		if out.Err != nil {
			t.Fatalf("task %d: %v", i, out.Err)
		}
		if out.Run.Seed != i || out.Series[0].Value != float64(i) {
			t.Errorf("task %d out of order: seed %d value %f", i, out.Run.Seed, out.Series[0].Value)
		}
	}
}

func TestAllCarriesCorruptionInOutcome(t *testing.T) {
	good := writeJSONL(t, `{"step": 0, "tag": "loss", "value": 1.0}
`)
	bad := writeJSONL(t, `{"step": 0, "tag": "loss", `)
	outcomes := extract.All(context.Background(), []extract.Task{
		{Run: discovery.RunDir{Path: good}, Metric: "loss"},
		{Run: discovery.RunDir{Path: bad}, Metric: "loss"},
	}, extract.Options{Workers: 2})
	if outcomes[0].Err != nil {
		t.Errorf("good run: %v", outcomes[0].Err)
	}
	if !errors.Is(outcomes[1].Err, eventlog.ErrCorrupt) {
		t.Errorf("bad run: got %v, want ErrCorrupt", outcomes[1].Err)
	}
}

type slowReader struct {
	delay time.Duration
}

func (r slowReader) ReadSeries(ctx context.Context, runPath, tag string) (eventlog.Series, error) {
	select {
	case <-time.After(r.delay):
		return eventlog.Series{{Step: 0, Value: 1}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestAllTimesOutSlowRuns(t *testing.T) {
	outcomes := extract.All(context.Background(), []extract.Task{
		{Run: discovery.RunDir{Path: "slow"}, Metric: "loss"},
	}, extract.Options{
		Reader:  slowReader{delay: time.Second},
		Timeout: 10 * time.Millisecond,
	})
	if !errors.Is(outcomes[0].Err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", outcomes[0].Err)
	}
}

type countingReader struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (r *countingReader) ReadSeries(ctx context.Context, runPath, tag string) (eventlog.Series, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		seen := r.maxSeen.Load()
		if n <= seen || r.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return eventlog.Series{{Step: 0, Value: 1}}, nil
}

func TestAllHonorsWorkerLimit(t *testing.T) {
	reader := &countingReader{}
	tasks := make([]extract.Task, 16)
	for i := range tasks {
		tasks[i] = extract.Task{Run: discovery.RunDir{Path: "run"}, Metric: "loss"}
	}
	extract.All(context.Background(), tasks, extract.Options{Reader: reader, Workers: 2})
	if peak := reader.maxSeen.Load(); peak > 2 {
		t.Errorf("saw %d concurrent reads, want at most 2", peak)
	}
}
