package quantize

import (
	"errors"
	"testing"
)

func TestParse_CompactNotation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1.5k", "1500"},
		{"1.2K", "1200"},
		{"2m", "2000000"},
		{"0.5M", "500000"},
		{"0.001b", "1000000"},
		{"42", "42"},
		{"0.0147", "0.0147"},
		{"-3k", "-3000"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if d.String() != tt.expected {
				t.Fatalf("Parse(%q) = %s, want %s", tt.input, d, tt.expected)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2.3", "k", "1..5k", "--2"} {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Parse(%q) = %v, want ErrInvalidInput", input, err)
			}
		})
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		szDecimals int
		expected   float64
		wantErr    bool
	}{
		{name: "plain", input: "0.5", szDecimals: 4, expected: 0.5},
		{name: "compact", input: "1.2k", szDecimals: 0, expected: 1200},
		{name: "truncates to tick", input: "0.12349", szDecimals: 3, expected: 0.123},
		{name: "never rounds up", input: "0.9999", szDecimals: 2, expected: 0.99},
		{name: "zero after truncation", input: "0.0001", szDecimals: 2, wantErr: true},
		{name: "zero", input: "0", szDecimals: 4, wantErr: true},
		{name: "negative", input: "-1", szDecimals: 4, wantErr: true},
		{name: "garbage", input: "lots", szDecimals: 4, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Size(tt.input, tt.szDecimals)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("Size(%q) = %v, want ErrInvalidInput", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Size(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Fatalf("Size(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPriceValue_Idempotent(t *testing.T) {
	prices := []float64{65000, 1670.1, 0.0001234567, 71500.0000001, 123456.789}
	for _, px := range prices {
		once := PriceValue(px, 4)
		twice := PriceValue(once, 4)
		if once != twice {
			t.Errorf("PriceValue not idempotent for %v: once=%v twice=%v", px, once, twice)
		}
	}
}

func TestPriceValue_SigfigAndDecimals(t *testing.T) {
	tests := []struct {
		px         float64
		szDecimals int
		expected   float64
	}{
		{123456.789, 0, 123460},   // 5 sigfigs dominate for large prices
		{1670.123, 4, 1670.1},     // 6-4 = 2 decimals, sigfigs bite first
		{0.00012345678, 0, 0.000123}, // 6 decimals cap small prices
	}

	for _, tt := range tests {
		if got := PriceValue(tt.px, tt.szDecimals); got != tt.expected {
			t.Errorf("PriceValue(%v, %d) = %v, want %v", tt.px, tt.szDecimals, got, tt.expected)
		}
	}
}

func TestSlippagePrice_Banding(t *testing.T) {
	const mark = 65000.0

	buy := SlippagePrice(mark, true, 0.10, 4)
	if buy <= mark {
		t.Fatalf("buy slippage price %v not above mark %v", buy, mark)
	}

	sell := SlippagePrice(mark, false, 0.10, 4)
	if sell >= mark {
		t.Fatalf("sell slippage price %v not below mark %v", sell, mark)
	}

	// 65000 * 1.10 = 71500, already on the grid
	if buy != 71500 {
		t.Fatalf("buy slippage price = %v, want 71500", buy)
	}
	if sell != 58500 {
		t.Fatalf("sell slippage price = %v, want 58500", sell)
	}
}
