// Package selection ranks aggregated configurations and picks a
// winner. Ranking is a deterministic total order: the same candidates
// produce the same order no matter how the input was arranged, and a
// sweep where nothing qualifies yields "no winner" as a value.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/borkh/paper-prep/internal/aggregate"
	"github.com/borkh/paper-prep/internal/discovery"
)

// Direction says whether larger or smaller metric values are better.
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

func (d Direction) String() string {
	if d == Minimize {
		return "minimize"
	}
	return "maximize"
}

// ParseDirection maps a config direction name onto a Direction.
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(name) {
	case "", "maximize", "max":
		return Maximize, nil
	case "minimize", "min":
		return Minimize, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want maximize or minimize)", name)
	}
}

var (
	minimizeTerms = []string{"loss", "mae", "mape", "mse", "rmse", "perplexity"}
	maximizeTerms = []string{"accuracy", "precision", "recall", "f1_score", "topk", "top_k"}
)

// InferDirection guesses the direction from a metric tag, e.g.
// "val/loss" minimizes and "test_accuracy" maximizes. The guess fails
// when the tag matches both vocabularies or neither.
func InferDirection(tag string) (Direction, bool) {
	lower := strings.ToLower(tag)
	min := containsAny(lower, minimizeTerms)
	max := containsAny(lower, maximizeTerms)
	switch {
	case min && !max:
		return Minimize, true
	case max && !min:
		return Maximize, true
	default:
		return Maximize, false
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Candidate pairs a configuration with its aggregated metric.
type Candidate struct {
	Group  discovery.Group
	Metric aggregate.Metric
}

// Entry is one ranked configuration.
type Entry struct {
	Group    discovery.Group
	Metric   aggregate.Metric
	Eligible bool
	Rank     int
}

// Result is a full ranking over every candidate. Eligible entries come
// first ordered best to worst, then defined entries below the seed
// threshold, then undefined entries; ties and undefined entries order
// by canonical key.
type Result struct {
	Direction Direction
	MinSeeds  int
	Entries   []Entry
}

// Rank orders the candidates. minSeeds below 1 is treated as 1; a
// defined aggregate always has at least one seed.
func Rank(cands []Candidate, dir Direction, minSeeds int) Result {
	if minSeeds < 1 {
		minSeeds = 1
	}
	entries := make([]Entry, len(cands))
	for i, c := range cands {
		entries[i] = Entry{
			Group:    c.Group,
			Metric:   c.Metric,
			Eligible: c.Metric.Defined && c.Metric.Seeds >= minSeeds,
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		sa, sb := stratum(a), stratum(b)
		if sa != sb {
			return sa < sb
		}
		if sa < 2 && a.Metric.Estimate != b.Metric.Estimate {
			if dir == Minimize {
				return a.Metric.Estimate < b.Metric.Estimate
			}
			return a.Metric.Estimate > b.Metric.Estimate
		}
		return a.Group.Key < b.Group.Key
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return Result{Direction: dir, MinSeeds: minSeeds, Entries: entries}
}

func stratum(e Entry) int {
	switch {
	case e.Eligible:
		return 0
	case e.Metric.Defined:
		return 1
	default:
		return 2
	}
}

// Winner returns the best eligible configuration. The second return is
// false when nothing in the sweep qualifies.
func (r Result) Winner() (Entry, bool) {
	if len(r.Entries) == 0 || !r.Entries[0].Eligible {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Top returns up to k best eligible entries.
func (r Result) Top(k int) []Entry {
	var top []Entry
	for _, e := range r.Entries {
		if !e.Eligible || len(top) == k {
			break
		}
		top = append(top, e)
	}
	return top
}

// IsWinner reports whether the given canonical key is the winner.
func (r Result) IsWinner(key string) bool {
	w, ok := r.Winner()
	return ok && w.Group.Key == key
}
