package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundAmount(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		currency string
		want     string
	}{
		{"half up at cent", "33.335", "EUR", "33.34"},
		{"below half", "33.3349", "EUR", "33.33"},
		{"already rounded", "10.10", "USD", "10.1"},
		{"zero decimals currency", "1500.5", "JPY", "1501"},
		{"three decimals currency", "1.2345", "KWD", "1.235"},
		{"lower case code", "0.005", "eur", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundAmount(d(tt.in), tt.currency)
			if !got.Equal(d(tt.want)) {
				t.Errorf("RoundAmount(%s, %s) = %s, want %s", tt.in, tt.currency, got, tt.want)
			}
		})
	}
}

func TestRoundingIsIdempotent(t *testing.T) {
	for _, in := range []string{"33.333333", "66.665", "0.004999", "12.5"} {
		once := RoundPercentage(d(in))
		twice := RoundPercentage(once)
		if !once.Equal(twice) {
			t.Errorf("RoundPercentage not idempotent for %s: %s then %s", in, once, twice)
		}
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		part, whole, want string
	}{
		{"410", "500", "82"},
		{"1", "3", "33.33"},
		{"2", "3", "66.67"},
		{"10", "0", "0"},
		{"0", "0", "0"},
	}

	for _, tt := range tests {
		got := Ratio(d(tt.part), d(tt.whole))
		if !got.Equal(d(tt.want)) {
			t.Errorf("Ratio(%s, %s) = %s, want %s", tt.part, tt.whole, got, tt.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := MustParse("10.50", "EUR")
	b := MustParse("0.75", "eur")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if !sum.Amount.Equal(d("11.25")) || sum.Currency != "EUR" {
		t.Errorf("Add = %s, want 11.25 EUR", sum)
	}

	diff, err := b.Sub(a)
	if err != nil {
		t.Fatalf("Sub returned error: %v", err)
	}
	if !diff.Amount.Equal(d("-9.75")) {
		t.Errorf("Sub = %s, want -9.75 EUR", diff)
	}

	_, err = a.Add(MustParse("1", "USD"))
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add across currencies: got %v, want ErrCurrencyMismatch", err)
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("abc", "EUR"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Parse(abc) error = %v, want ErrInvalidAmount", err)
	}
	if _, err := Parse("1.00", "EURO"); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("Parse with EURO error = %v, want ErrInvalidCurrency", err)
	}
	m, err := Parse(" 19.99 ", "usd")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if m.String() != "19.99 USD" {
		t.Errorf("String() = %q, want %q", m.String(), "19.99 USD")
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse did not panic on invalid input")
		}
	}()
	MustParse("not-a-number", "EUR")
}

func TestSpread(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		target string
		want   []string
	}{
		{"last absorbs one cent", []string{"33.33", "33.33", "33.33"}, "100", []string{"33.33", "33.33", "33.34"}},
		{"overshoot removed from the tail", []string{"14.29", "14.29", "14.29", "14.29", "14.29", "14.29", "14.29"}, "100",
			[]string{"14.29", "14.29", "14.29", "14.29", "14.28", "14.28", "14.28"}},
		{"already balanced", []string{"35", "15"}, "50", []string{"35", "15"}},
		{"empty", nil, "10", []string{}},
		{"never below zero", []string{"0.01", "0.01", "0"}, "0.01", []string{"0.01", "0", "0"}},
	}

	unit := d("0.01")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]decimal.Decimal, len(tt.values))
			for i, v := range tt.values {
				in[i] = d(v)
			}
			got := Spread(in, d(tt.target), unit)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(d(tt.want[i])) {
					t.Errorf("value[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
			if len(got) > 0 && !Sum(got...).Equal(d(tt.target)) {
				t.Errorf("sum = %s, want %s", Sum(got...), tt.target)
			}
		})
	}
}

func TestSpreadOverSkipsIneligible(t *testing.T) {
	unit := d("0.01")
	tests := []struct {
		name     string
		values   []string
		eligible []bool
		target   string
		want     []string
	}{
		{"ineligible tail untouched", []string{"0.01", "0.01", "0"}, []bool{true, true, false}, "0.01", []string{"0.01", "0", "0"}},
		{"surplus goes to eligible only", []string{"0", "0", "0"}, []bool{true, false, true}, "0.01", []string{"0", "0", "0.01"}},
		{"nothing eligible", []string{"1", "1"}, []bool{false, false}, "3", []string{"1", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]decimal.Decimal, len(tt.values))
			for i, v := range tt.values {
				in[i] = d(v)
			}
			got := SpreadOver(in, tt.eligible, d(tt.target), unit)
			for i := range got {
				if !got[i].Equal(d(tt.want[i])) {
					t.Errorf("value[%d] = %s, want %s", i, got[i], tt.want[i])
				}
				if got[i].IsNegative() {
					t.Errorf("value[%d] = %s is negative", i, got[i])
				}
			}
		})
	}
}
