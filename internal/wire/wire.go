// Package wire holds the numeric conversions shared by the order builder and
// the signer. Prices and sizes travel to the exchange as decimal strings, and
// the signature covers those exact strings, so every conversion here must be
// deterministic and loss-free.
package wire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FloatToWire converts a float64 to its wire representation: at most 8
// decimal places, trailing zeros trimmed. Fails rather than silently rounding
// away precision, since a size that rounds differently client-side and
// server-side invalidates the signature.
func FloatToWire(x float64) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", fmt.Errorf("invalid float value: %v", x)
	}

	rounded := math.Round(x*1e8) / 1e8

	if math.Abs(x-rounded) > 1e-12 {
		return "", fmt.Errorf(
			"float precision loss: %v rounds to %v",
			x,
			rounded,
		)
	}

	formatted := strconv.FormatFloat(rounded, 'f', 8, 64)

	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}

	if formatted == "-0" {
		formatted = "0"
	}

	return formatted, nil
}

// StringToFloat parses a wire decimal string back to float64.
func StringToFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// RoundToSigfig rounds x to n significant figures.
func RoundToSigfig(x float64, n int) float64 {
	if x == 0 {
		return 0
	}
	d := math.Ceil(math.Log10(math.Abs(x)))
	power := float64(n) - d
	factor := math.Pow(10, power)
	return math.Round(x*factor) / factor
}

// RoundToDecimals rounds x to ndigits decimal places using banker's rounding
// (round half to even). Negative ndigits rounds to tens, hundreds, and so on.
func RoundToDecimals(x float64, ndigits int) float64 {
	if ndigits >= 0 {
		factor := math.Pow(10, float64(ndigits))
		return math.RoundToEven(x*factor) / factor
	}

	factor := math.Pow(10, float64(-ndigits))
	return math.RoundToEven(x/factor) * factor
}
