// Package aggregate reduces per-seed metric series to scalars and
// combines them across seeds. A configuration with zero usable seeds
// aggregates to an explicitly undefined Metric; undefined is a value
// here, never an error.
package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/borkh/paper-prep/internal/eventlog"
)

// Kind selects the per-seed reduction.
type Kind int

const (
	// Last takes the value at the final logged step.
	Last Kind = iota
	// BestMax takes the series maximum.
	BestMax
	// BestMin takes the series minimum.
	BestMin
	// MeanLastN averages the last Window logged values.
	MeanLastN
)

func (k Kind) String() string {
	switch k {
	case Last:
		return "last"
	case BestMax:
		return "best-max"
	case BestMin:
		return "best-min"
	case MeanLastN:
		return "mean-last"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Policy is a reduction kind plus its parameters.
type Policy struct {
	Kind   Kind
	Window int // MeanLastN only
}

// ParsePolicy maps a config reduction name onto a Policy. "best" picks
// the series maximum or minimum depending on the metric direction.
func ParsePolicy(kind string, window int, maximize bool) (Policy, error) {
	switch kind {
	case "", "last":
		return Policy{Kind: Last}, nil
	case "best":
		if maximize {
			return Policy{Kind: BestMax}, nil
		}
		return Policy{Kind: BestMin}, nil
	case "mean-last", "mean_last":
		if window < 1 {
			return Policy{}, fmt.Errorf("reduction %q: window must be at least 1, got %d", kind, window)
		}
		return Policy{Kind: MeanLastN, Window: window}, nil
	default:
		return Policy{}, fmt.Errorf("unknown reduction %q (want last, best or mean-last)", kind)
	}
}

// DispersionKind selects the cross-seed spread statistic.
type DispersionKind int

const (
	// StdDev is the sample standard deviation (n-1 denominator).
	StdDev DispersionKind = iota
	// PopStdDev is the population standard deviation.
	PopStdDev
	// StdErr is the standard error of the mean.
	StdErr
)

// ParseDispersion maps a config dispersion name onto a DispersionKind.
func ParseDispersion(name string) (DispersionKind, error) {
	switch name {
	case "", "stddev", "std":
		return StdDev, nil
	case "popstddev", "popstd":
		return PopStdDev, nil
	case "stderr", "sem":
		return StdErr, nil
	default:
		return 0, fmt.Errorf("unknown dispersion %q (want stddev, popstddev or stderr)", name)
	}
}

// Input is one seed's extracted series. Corrupt marks a run whose
// store could not be decoded for this metric.
type Input struct {
	Seed    int
	Series  eventlog.Series
	Corrupt bool
}

// Metric is the cross-seed aggregate for one configuration and one
// metric. When Defined is false the numeric fields are meaningless and
// must not be read.
type Metric struct {
	Estimate   float64
	Dispersion float64
	Seeds      int  // seeds that contributed a usable value
	Expected   int  // seeds presented for aggregation
	Partial    bool // some seed was missing, corrupt or truncated
	Defined    bool
}

// Reduce collapses one series to a scalar under the policy. The second
// return is false when the series is empty or the policy invalid. A
// non-finite input value propagates into the result so the caller can
// drop the seed.
func Reduce(s eventlog.Series, p Policy) (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	switch p.Kind {
	case Last:
		return s[len(s)-1].Value, true
	case BestMax, BestMin:
		best := s[0].Value
		for _, pt := range s[1:] {
			if math.IsNaN(pt.Value) {
				return math.NaN(), true
			}
			if p.Kind == BestMax && pt.Value > best {
				best = pt.Value
			}
			if p.Kind == BestMin && pt.Value < best {
				best = pt.Value
			}
		}
		return best, true
	case MeanLastN:
		if p.Window < 1 {
			return 0, false
		}
		n := p.Window
		if n > len(s) {
			n = len(s)
		}
		return stat.Mean(s.Values()[len(s)-n:], nil), true
	default:
		return 0, false
	}
}

// Across reduces every seed and combines the survivors. Seeds with
// absent, corrupt or non-finite-reducing series are dropped and flag
// the result partial; a series ending before the longest sibling also
// flags partial but still contributes its reduced value.
func Across(inputs []Input, p Policy, d DispersionKind) Metric {
	m := Metric{Expected: len(inputs)}

	maxLast := int64(-1)
	for _, in := range inputs {
		if in.Corrupt {
			continue
		}
		if last := in.Series.LastStep(); last > maxLast {
			maxLast = last
		}
	}

	var values []float64
	for _, in := range inputs {
		if in.Corrupt || len(in.Series) == 0 {
			m.Partial = true
			continue
		}
		if in.Series.LastStep() < maxLast {
			m.Partial = true
		}
		v, ok := Reduce(in.Series, p)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			m.Partial = true
			continue
		}
		values = append(values, v)
	}

	m.Seeds = len(values)
	if m.Seeds == 0 {
		return m
	}
	m.Defined = true
	m.Estimate = stat.Mean(values, nil)
	if m.Seeds == 1 {
		m.Dispersion = 0
		return m
	}
	switch d {
	case PopStdDev:
		m.Dispersion = stat.PopStdDev(values, nil)
	case StdErr:
		m.Dispersion = stat.StdErr(stat.StdDev(values, nil), float64(m.Seeds))
	default:
		m.Dispersion = stat.StdDev(values, nil)
	}
	return m
}
