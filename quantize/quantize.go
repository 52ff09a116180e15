// Package quantize normalizes user-entered price and size strings into
// protocol-legal numeric values. Everything here is a pure function: the
// order builder re-derives trigger prices for guard legs through the same
// code paths, so identical inputs must always quantize identically.
package quantize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/perpdesk/go-perpdesk/constants"
	"github.com/perpdesk/go-perpdesk/internal/wire"
)

// ErrInvalidInput reports user input that could not be parsed as a number.
// Recoverable by re-prompting; never submitted.
var ErrInvalidInput = errors.New("invalid numeric input")

var compactSuffixes = map[byte]decimal.Decimal{
	'k': decimal.NewFromInt(1_000),
	'm': decimal.NewFromInt(1_000_000),
	'b': decimal.NewFromInt(1_000_000_000),
}

// Parse accepts a plain decimal string or compact human notation
// ("1.5k", "2m", "0.1b", case-insensitive) and returns the exact value.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidInput)
	}

	multiplier := decimal.NewFromInt(1)
	last := s[len(s)-1] | 0x20 // lowercase ASCII
	if m, ok := compactSuffixes[last]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidInput, raw)
	}

	return d.Mul(multiplier), nil
}

// Size parses a user-entered size and truncates it to the asset's size
// decimals (the minimum size tick). Truncation never rounds a size up:
// overshooting the user's stated size is worse than undershooting it.
// A size that is not strictly positive after quantization is an error.
func Size(raw string, szDecimals int) (float64, error) {
	d, err := Parse(raw)
	if err != nil {
		return 0, err
	}

	d = d.Truncate(int32(szDecimals))
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: size %q quantizes to %s", ErrInvalidInput, raw, d)
	}

	sz, _ := d.Float64()
	return sz, nil
}

// Price parses a user-entered price and quantizes it to the exchange's
// price grid for the asset.
func Price(raw string, szDecimals int) (float64, error) {
	d, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: price %q must be > 0", ErrInvalidInput, raw)
	}

	px, _ := d.Float64()
	return PriceValue(px, szDecimals), nil
}

// PriceValue quantizes an already-numeric price: at most 5 significant
// figures, then at most (6 − szDecimals) decimal places for perps. Applying
// it twice yields the same value as applying it once.
func PriceValue(px float64, szDecimals int) float64 {
	px = wire.RoundToSigfig(px, constants.PX_SIGFIGS)
	return wire.RoundToDecimals(px, constants.MAX_PERP_PX_DECIMALS-szDecimals)
}

// SlippagePrice synthesizes the protective limit price for a market order:
// the mark price pushed band fraction in the aggressive direction, then
// quantized. With immediate-or-cancel semantics this caps how far into an
// illiquid book a "market" order may fill.
func SlippagePrice(mark float64, isBuy bool, band float64, szDecimals int) float64 {
	px := mark
	if isBuy {
		px *= 1 + band
	} else {
		px *= 1 - band
	}
	return PriceValue(px, szDecimals)
}
