package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

// TestRoundHalfUp pins ties-away-from-zero at the third decimal
func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2.005", "2.01"},
		{"2.004", "2.00"},
		{"2.015", "2.02"},
		{"2.025", "2.03"},
		{"-2.005", "-2.01"},
		{"0.125", "0.13"},
		{"12.5", "12.50"},
		{"0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := MustParse(tt.in).Round().String()
			if got != tt.want {
				t.Errorf("Round(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// TestRoundIsIdempotent verifies settling a settled value changes nothing
func TestRoundIsIdempotent(t *testing.T) {
	m := MustParse("19.994999")
	once := m.Round()
	twice := once.Round()
	if !once.Equal(twice) || once.String() != twice.String() {
		t.Fatalf("re-rounding drifted: %s -> %s", once, twice)
	}
}

func TestArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 is the classic float trap
	sum := MustParse("0.1").Add(MustParse("0.2"))
	if !sum.Equal(MustParse("0.3")) {
		t.Fatalf("0.1 + 0.2 = %s", sum)
	}

	third := FromInt(10).MulRatio(decimal.NewFromInt(1), decimal.NewFromInt(1000))
	if third.String() != "0.01" {
		t.Fatalf("10/1000 = %s", third)
	}

	if got := MustParse("20.00").Percent(MustParse("10")); !got.Equal(MustParse("2")) {
		t.Fatalf("10%% of 20 = %s", got)
	}
	if got := MustParse("4.50").MulInt(3); got.String() != "13.50" {
		t.Fatalf("4.50 * 3 = %s", got)
	}
	if got := FromCents(1999); got.String() != "19.99" {
		t.Fatalf("FromCents(1999) = %s", got)
	}
}

func TestStringKeepsUnsettledPrecision(t *testing.T) {
	if got := MustParse("1.2345").String(); got != "1.2345" {
		t.Fatalf("String() = %s", got)
	}
	if got := Zero().String(); got != "0.00" {
		t.Fatalf("Zero().String() = %s", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"amount": 12.5}`), &p); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if !p.Amount.Equal(MustParse("12.5")) {
		t.Fatalf("amount = %s", p.Amount)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"amount":"12.50"}` {
		t.Fatalf("marshal = %s", data)
	}

	if err := json.Unmarshal([]byte(`{"amount": "abc"}`), &p); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestParseEmptyIsZero(t *testing.T) {
	m, err := Parse("")
	if err != nil {
		t.Fatalf("Parse(\"\"): %v", err)
	}
	if !m.IsZero() {
		t.Fatalf("Parse(\"\") = %s", m)
	}
}
