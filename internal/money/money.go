package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency code")
)

// PercentagePlaces is the precision of every computed percentage.
const PercentagePlaces int32 = 2

var (
	Hundred = decimal.NewFromInt(100)

	// PercentageUnit is the smallest step of a rounded percentage.
	PercentageUnit = decimal.New(1, -PercentagePlaces)

	// PercentageTolerance is the allowed distance of a percentage total from 100.
	PercentageTolerance = decimal.New(1, -2)
)

// minorUnits lists currencies whose minor unit differs from two decimals.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
	"BTC": 8,
}

// MinorUnits returns the number of decimal places of a currency's minor unit.
func MinorUnits(currency string) int32 {
	if places, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return places
	}
	return 2
}

// MinorUnit returns the smallest representable amount of a currency (0.01 for EUR).
func MinorUnit(currency string) decimal.Decimal {
	return decimal.New(1, -MinorUnits(currency))
}

// Money is a decimal amount tagged with an ISO 4217 currency code.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// New builds a Money value, normalising the currency code to upper case.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return New(decimal.Zero, currency)
}

// Parse reads a decimal string such as "12.50".
func Parse(amount, currency string) (Money, error) {
	if err := ValidateCurrency(currency); err != nil {
		return Money{}, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return New(d, currency), nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ValidateCurrency checks for a three-letter alphabetic code.
func ValidateCurrency(currency string) error {
	if len(currency) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	for _, r := range currency {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
		}
	}
	return nil
}

// SameCurrency reports whether both values carry the same currency code.
func (m Money) SameCurrency(other Money) bool {
	return strings.EqualFold(m.Currency, other.Currency)
}

// Add returns m + other. Both must be in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return New(m.Amount.Add(other.Amount), m.Currency), nil
}

// Sub returns m - other. Both must be in the same currency.
func (m Money) Sub(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return New(m.Amount.Sub(other.Amount), m.Currency), nil
}

// Round rounds to the currency's minor unit.
func (m Money) Round() Money {
	return New(RoundAmount(m.Amount, m.Currency), m.Currency)
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// String renders the amount at minor-unit precision followed by the currency.
func (m Money) String() string {
	return m.Amount.StringFixed(MinorUnits(m.Currency)) + " " + m.Currency
}

// RoundAmount rounds half away from zero to the currency's minor unit.
// For the non-negative amounts handled here that is round-half-up.
func RoundAmount(d decimal.Decimal, currency string) decimal.Decimal {
	return d.Round(MinorUnits(currency))
}

// RoundPercentage rounds a percentage to two decimal places, half-up.
func RoundPercentage(d decimal.Decimal) decimal.Decimal {
	return d.Round(PercentagePlaces)
}

// Ratio returns part/whole*100 rounded to two places. A zero whole yields zero
// rather than an error.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	return RoundPercentage(Percent(part, whole))
}

// Percent returns part/whole*100 without display rounding. A zero whole
// yields zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(Hundred).DivRound(whole, 16)
}

// PercentOf returns amount*pct/100 rounded to the currency's minor unit.
func PercentOf(amount decimal.Decimal, pct decimal.Decimal, currency string) decimal.Decimal {
	return RoundAmount(amount.Mul(pct).Div(Hundred), currency)
}

// Sum adds decimals.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// WithinTolerance reports |a-b| <= tolerance.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// Spread nudges values, which must already be multiples of unit, until they
// sum to target. Units are moved one at a time starting from the last value
// and walking backwards, so each value ends within one unit of its input
// whenever the residual is smaller than len(values) units.
func Spread(values []decimal.Decimal, target, unit decimal.Decimal) []decimal.Decimal {
	return SpreadOver(values, nil, target, unit)
}

// SpreadOver is Spread restricted to the values whose eligible flag is set.
// A nil eligible slice makes every value eligible. No value is taken below
// zero; when no eligible value can absorb another unit the remainder is left
// and the result no longer sums to target.
func SpreadOver(values []decimal.Decimal, eligible []bool, target, unit decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	copy(out, values)
	if len(out) == 0 || unit.IsZero() {
		return out
	}

	steps := target.Sub(Sum(out...)).Div(unit).Round(0).IntPart()
	step := unit
	if steps < 0 {
		steps = -steps
		step = unit.Neg()
	}
	for steps > 0 {
		moved := false
		for idx := len(out) - 1; idx >= 0 && steps > 0; idx-- {
			if eligible != nil && !eligible[idx] {
				continue
			}
			next := out[idx].Add(step)
			if next.IsNegative() {
				continue
			}
			out[idx] = next
			steps--
			moved = true
		}
		if !moved {
			break
		}
	}
	return out
}
