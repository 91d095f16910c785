package latex

import (
	"fmt"
	"math"
)

// Format holds the rendering options shared by every cell of a table.
type Format struct {
	SigDigits    int
	DecimalComma bool   // german-style 0{,}9 instead of 0.9
	Placeholder  string // shown for undefined cells, defaults to an em dash
}

const defaultPlaceholder = "—"

func (f Format) placeholder() string {
	if f.Placeholder == "" {
		return defaultPlaceholder
	}
	return f.Placeholder
}

// Cell is one formatted table cell. Text is the final LaTeX, Winner
// mirrors the bolding already applied to it, and the numeric fields
// keep the rounded inputs around for callers that log or re-check.
type Cell struct {
	Text       string
	Winner     bool
	Defined    bool
	Value      float64
	Dispersion float64
}

// FormatCell renders one aggregate as "estimate ± dispersion" in math
// mode, at the shared decimal place from RoundPair. Undefined cells
// render the placeholder and never carry the winner mark. A defined
// cell without spread (a single seed) renders the estimate alone.
func FormatCell(value, dispersion float64, defined, winner bool, f Format) (Cell, error) {
	if f.SigDigits < 1 {
		return Cell{}, fmt.Errorf("significant digits must be at least 1, got %d", f.SigDigits)
	}
	if !defined {
		return Cell{Text: Escape(f.placeholder())}, nil
	}

	var inner string
	if dispersion > 0 && !math.IsInf(dispersion, 0) && !math.IsNaN(dispersion) {
		rv, rd, decimals, err := RoundPair(value, dispersion, f.SigDigits)
		if err != nil {
			return Cell{}, err
		}
		inner = fmt.Sprintf(`%s \pm %s`, formatFixed(rv, decimals), formatFixed(rd, decimals))
		value, dispersion = rv, rd
	} else {
		inner = FormatNumber(value, f.SigDigits)
		dispersion = 0
	}
	if f.DecimalComma {
		inner = decimalComma(inner)
	}
	if winner {
		inner = `\mathbf{` + inner + `}`
	}
	return Cell{
		Text:       "$" + inner + "$",
		Winner:     winner,
		Defined:    true,
		Value:      value,
		Dispersion: dispersion,
	}, nil
}
