package latex

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RoundHalfAway rounds x to the given number of decimal places with
// exact halves moving away from zero. Negative decimals round to tens,
// hundreds and so on.
func RoundHalfAway(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}

// RoundPair rounds an estimate and its dispersion to one shared
// decimal place so a reader can compare them digit for digit. The
// place is derived from the dispersion's first sigDigits significant
// digits; a zero or non-finite dispersion falls back to the estimate's
// magnitude. Both numbers exactly zero round to place zero.
func RoundPair(value, dispersion float64, sigDigits int) (rv, rd float64, decimals int, err error) {
	if sigDigits < 1 {
		return 0, 0, 0, fmt.Errorf("significant digits must be at least 1, got %d", sigDigits)
	}
	lead := dispersion
	if lead == 0 || math.IsNaN(lead) || math.IsInf(lead, 0) {
		lead = value
	}
	if lead == 0 {
		return value, dispersion, 0, nil
	}
	if math.IsNaN(lead) || math.IsInf(lead, 0) {
		return value, dispersion, 0, fmt.Errorf("cannot round non-finite pair (%v, %v)", value, dispersion)
	}
	decimals = sigDigits - 1 - int(math.Floor(math.Log10(math.Abs(lead))))
	return RoundHalfAway(value, decimals), RoundHalfAway(dispersion, decimals), decimals, nil
}

// formatFixed renders x with a fixed number of decimals. Decimal
// places already rounded away render as integers.
func formatFixed(x float64, decimals int) string {
	if x == 0 {
		x = 0 // drop the sign of negative zero
	}
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(x, 'f', decimals, 64)
}

// FormatNumber renders a single number for math mode at sigDigits
// significant digits. Magnitudes outside [1e-3, 1e6] switch to
// scientific notation so tables stay narrow.
func FormatNumber(v float64, sigDigits int) string {
	if sigDigits < 1 {
		sigDigits = 1
	}
	if v == 0 {
		return "0"
	}
	if math.IsNaN(v) {
		return `\mathrm{NaN}`
	}
	if math.IsInf(v, 1) {
		return `\infty`
	}
	if math.IsInf(v, -1) {
		return `-\infty`
	}
	abs := math.Abs(v)
	if abs < 1e-3 || abs > 1e6 {
		exp := int(math.Floor(math.Log10(abs)))
		mant := RoundHalfAway(v/math.Pow(10, float64(exp)), sigDigits-1)
		if math.Abs(mant) >= 10 {
			mant /= 10
			exp++
		}
		return fmt.Sprintf(`%s \times 10^{%d}`, formatFixed(mant, sigDigits-1), exp)
	}
	decimals := sigDigits - 1 - int(math.Floor(math.Log10(abs)))
	s := formatFixed(RoundHalfAway(v, decimals), decimals)
	if math.Abs(v) >= 1 && strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// decimalComma swaps the decimal point for a comma. The braces stop
// LaTeX from inserting the spacing it reserves for list commas.
func decimalComma(s string) string {
	return strings.ReplaceAll(s, ".", "{,}")
}
