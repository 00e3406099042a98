package digitizing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"embroidery-pricing/core/money"
	"embroidery-pricing/core/types"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(v int) *int {
	return &v
}

func int64p(v int64) *int64 {
	return &v
}

// TestEstimateStitchCount covers defaults and floor semantics
func TestEstimateStitchCount(t *testing.T) {
	tests := []struct {
		name   string
		width  *decimal.Decimal
		height *decimal.Decimal
		colors *int
		want   int64
	}{
		{"explicit 3x3 one color", dec("3.0"), dec("3.0"), intp(1), 9900},
		{"all defaults", nil, nil, nil, 9900},
		{"default height", dec("4"), nil, nil, 13200},
		{"no colors", dec("2"), dec("2"), intp(0), 4000},
		{"five colors", dec("2.5"), dec("4"), intp(5), 15000},
		// 3.3 * 3.3 = 10.89 exactly -> 10890 * 1.3 = 14157
		{"fractional size", dec("3.3"), dec("3.3"), intp(3), 14157},
		// 1.2345 * 1 * 1000 = 1234.5 -> floor 1234; * 1.1 = 1357.4 -> 1357
		{"floors both steps", dec("1.2345"), dec("1"), intp(1), 1357},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateStitchCount(types.DefaultDigitizing, tt.width, tt.height, tt.colors)
			if got != tt.want {
				t.Errorf("EstimateStitchCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComplexityFee(t *testing.T) {
	tests := []struct {
		stitches int64
		want     string
	}{
		{9900, "0.00"},
		{10000, "0.00"},
		{10001, "0.00"},
		{10005, "0.01"},
		{12000, "4.00"},
		{15555, "11.11"},
	}
	for _, tt := range tests {
		got := ComplexityFee(types.DefaultDigitizing, tt.stitches)
		if got.String() != tt.want {
			t.Errorf("ComplexityFee(%d) = %s, want %s", tt.stitches, got, tt.want)
		}
	}
}

func TestRushFee(t *testing.T) {
	if got := RushFee(types.DefaultDigitizing, money.MustParse("25.00"), true); got.String() != "12.50" {
		t.Fatalf("rush fee = %s, want 12.50", got)
	}
	if got := RushFee(types.DefaultDigitizing, money.MustParse("25.00"), false); !got.IsZero() {
		t.Fatalf("rush fee without rush = %s", got)
	}
	// 19.99 * 0.5 = 9.995 -> 10.00
	if got := RushFee(types.DefaultDigitizing, money.MustParse("19.99"), true); got.String() != "10.00" {
		t.Fatalf("rush fee = %s, want 10.00", got)
	}
}

func TestQuoteRushWithComplexity(t *testing.T) {
	res := Quote(types.DefaultDigitizing, types.QuoteRequest{
		EstimatedStitchCount: int64p(12000),
		IsRush:               true,
	})

	if res.EstimatedStitchCount != 12000 {
		t.Errorf("stitches = %d", res.EstimatedStitchCount)
	}
	if res.ComplexityFee.String() != "4.00" {
		t.Errorf("complexity = %s, want 4.00", res.ComplexityFee)
	}
	if res.RushFee.String() != "12.50" {
		t.Errorf("rush = %s, want 12.50", res.RushFee)
	}
	if res.TotalPrice.String() != "41.50" {
		t.Errorf("total = %s, want 41.50", res.TotalPrice)
	}
	if res.EstimatedTurnaround != "24-48 hours" {
		t.Errorf("turnaround = %q", res.EstimatedTurnaround)
	}
	if res.Notes == nil || *res.Notes != types.HighStitchCountNote {
		t.Errorf("notes = %v", res.Notes)
	}
}

func TestQuoteStandardHasNoNotes(t *testing.T) {
	res := Quote(types.DefaultDigitizing, types.QuoteRequest{})

	if res.EstimatedStitchCount != 9900 {
		t.Errorf("stitches = %d, want 9900", res.EstimatedStitchCount)
	}
	if res.TotalPrice.String() != "25.00" {
		t.Errorf("total = %s, want 25.00", res.TotalPrice)
	}
	if res.EstimatedTurnaround != "3-5 business days" {
		t.Errorf("turnaround = %q", res.EstimatedTurnaround)
	}
	if res.Notes != nil {
		t.Errorf("notes = %q, want nil", *res.Notes)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := raw["notes"]; !ok || v != nil {
		t.Errorf("notes should serialize as null, got %v", v)
	}
}

func TestQuoteUsesProfileBasePrice(t *testing.T) {
	profile := types.DefaultDigitizing
	profile.BasePrice = money.MustParse("40.00")
	profile.RushMultiplier = decimal.RequireFromString("2")
	res := Quote(profile, types.QuoteRequest{IsRush: true, Width: dec("1"), Height: dec("1")})
	if res.RushFee.String() != "40.00" || res.TotalPrice.String() != "80.00" {
		t.Fatalf("rush/total = %s/%s", res.RushFee, res.TotalPrice)
	}
}

func TestQuoteKeepsConfiguredZeros(t *testing.T) {
	profile := types.DefaultDigitizing
	profile.BasePrice = money.Zero()
	profile.ComplexityThreshold = 0
	profile.DefaultColorCount = 0

	res := Quote(profile, types.QuoteRequest{IsRush: true})
	if res.BasePrice.String() != "0.00" || res.RushFee.String() != "0.00" {
		t.Errorf("base/rush = %s/%s, want 0.00/0.00", res.BasePrice, res.RushFee)
	}
	// 3.0 x 3.0 with no colors, every stitch above a zero threshold
	if res.EstimatedStitchCount != 9000 {
		t.Errorf("stitches = %d, want 9000", res.EstimatedStitchCount)
	}
	if res.ComplexityFee.String() != "18.00" || res.TotalPrice.String() != "18.00" {
		t.Errorf("complexity/total = %s/%s, want 18.00/18.00", res.ComplexityFee, res.TotalPrice)
	}
	if res.Notes == nil {
		t.Error("notes should flag stitches above a zero threshold")
	}
}
