// Package extract fans metric extraction out over run directories.
// Every (run, metric) pair becomes one task; tasks run concurrently
// under a worker limit and an optional per-run timeout. Failures never
// abort the batch, they ride along in the task's outcome.
package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/borkh/paper-prep/internal/discovery"
	"github.com/borkh/paper-prep/internal/eventlog"
)

// Task asks for one metric from one run.
type Task struct {
	Run    discovery.RunDir
	Metric string
	Split  string
}

// Outcome is the result of one task. A non-nil Err marks the run
// unusable for the metric; Tag records which tag actually matched.
type Outcome struct {
	Run    discovery.RunDir
	Metric string
	Tag    string
	Series eventlog.Series
	Err    error
}

// Options tunes the fan-out.
type Options struct {
	Reader  eventlog.Reader
	Workers int
	Timeout time.Duration // per task, 0 means none
}

// CandidateTags lists the tag spellings tried for a metric, most
// specific first. With split "test" and metric "accuracy" the loggers
// we read write either test/accuracy or test_accuracy.
func CandidateTags(split, metric string) []string {
	if split == "" {
		return []string{metric}
	}
	return []string{split + "/" + metric, split + "_" + metric, metric}
}

// Series reads one metric from one run, trying each candidate tag
// until one yields points. All candidates empty is not an error: the
// metric was never logged there.
func Series(ctx context.Context, r eventlog.Reader, runPath, split, metric string) (eventlog.Series, string, error) {
	tags := CandidateTags(split, metric)
	for _, tag := range tags {
		s, err := r.ReadSeries(ctx, runPath, tag)
		if err != nil {
			return nil, tag, err
		}
		if len(s) > 0 {
			return s, tag, nil
		}
	}
	return nil, tags[0], nil
}

// All runs every task and returns outcomes in task order.
func All(ctx context.Context, tasks []Task, opts Options) []Outcome {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	reader := opts.Reader
	if reader == nil {
		reader = eventlog.Auto()
	}

	outcomes := make([]Outcome, len(tasks))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx] = run(ctx, reader, tasks[idx], opts.Timeout)
		}(i)
	}
	wg.Wait()
	return outcomes
}

func run(ctx context.Context, r eventlog.Reader, t Task, timeout time.Duration) Outcome {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s, tag, err := Series(ctx, r, t.Run.Path, t.Split, t.Metric)
	out := Outcome{Run: t.Run, Metric: t.Metric, Tag: tag, Series: s}
	if err != nil {
		out.Err = fmt.Errorf("extracting %q from %s: %w", t.Metric, t.Run.Path, err)
	}
	return out
}
