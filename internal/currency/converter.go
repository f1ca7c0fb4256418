package currency

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

// Conversion is the outcome of converting an amount
type Conversion struct {
	Original  money.Money     `json:"original"`
	Converted money.Money     `json:"converted"`
	Rate      decimal.Decimal `json:"rate"`
}

// Converter turns Money into another currency
type Converter struct {
	provider RateProvider
}

// NewConverter creates a converter backed by provider
func NewConverter(provider RateProvider) *Converter {
	return &Converter{provider: provider}
}

// Rate returns the rate between two currencies. Identical currencies convert
// at 1 without consulting the provider.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if err := money.ValidateCurrency(from); err != nil {
		return decimal.Zero, apperr.Validation("from", err.Error())
	}
	if err := money.ValidateCurrency(to); err != nil {
		return decimal.Zero, apperr.Validation("to", err.Error())
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	rate, err := c.provider.Rate(ctx, from, to)
	if err != nil {
		if errors.Is(err, ErrRateUnavailable) {
			return decimal.Zero, apperr.Configuration("no exchange rate for "+from+"->"+to, err)
		}
		return decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, apperr.Arithmetic("exchange rate " + from + "->" + to + " is " + rate.String())
	}
	return rate, nil
}

// Convert expresses m in the target currency, rounded to its minor unit
func (c *Converter) Convert(ctx context.Context, m money.Money, to string) (*Conversion, error) {
	rate, err := c.Rate(ctx, m.Currency, to)
	if err != nil {
		return nil, err
	}
	to = strings.ToUpper(to)
	return &Conversion{
		Original:  m,
		Converted: money.New(money.RoundAmount(m.Amount.Mul(rate), to), to),
		Rate:      rate,
	}, nil
}
