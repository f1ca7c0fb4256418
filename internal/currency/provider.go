// Package currency converts money between currencies using a chain of rate
// providers.
package currency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/cache"
)

// ErrRateUnavailable means no provider knows the pair
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// inversePlaces is the precision kept when a rate is derived from its inverse
const inversePlaces = 8

// RateProvider returns how many units of to one unit of from buys
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// ----------------------------------------------------------------------------
// Static rates
// ----------------------------------------------------------------------------

// StaticProvider serves a fixed table, deriving inverse pairs
type StaticProvider struct {
	rates map[string]map[string]decimal.Decimal
}

// NewStaticProvider copies rates, upper-casing the currency codes
func NewStaticProvider(rates map[string]map[string]decimal.Decimal) *StaticProvider {
	p := &StaticProvider{rates: make(map[string]map[string]decimal.Decimal, len(rates))}
	for from, targets := range rates {
		from = strings.ToUpper(from)
		if p.rates[from] == nil {
			p.rates[from] = make(map[string]decimal.Decimal, len(targets))
		}
		for to, r := range targets {
			p.rates[from][strings.ToUpper(to)] = r
		}
	}
	return p
}

func (p *StaticProvider) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if r, ok := p.rates[from][to]; ok {
		return r, nil
	}
	if r, ok := p.rates[to][from]; ok && !r.IsZero() {
		return decimal.NewFromInt(1).DivRound(r, inversePlaces), nil
	}
	return decimal.Zero, ErrRateUnavailable
}

// ----------------------------------------------------------------------------
// Database rates
// ----------------------------------------------------------------------------

// DBProvider reads the latest stored rate of a pair
type DBProvider struct {
	db *sql.DB
}

// NewDBProvider creates a provider over the exchange_rates table
func NewDBProvider(db *sql.DB) *DBProvider {
	return &DBProvider{db: db}
}

func (p *DBProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	query := `
		SELECT rate FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	var rate decimal.Decimal
	if err := p.db.QueryRowContext(ctx, query, from, to).Scan(&rate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrRateUnavailable
		}
		return decimal.Zero, fmt.Errorf("failed to get exchange rate: %w", err)
	}
	return rate, nil
}

// Save records a rate observation
func (p *DBProvider) Save(ctx context.Context, from, to string, rate decimal.Decimal) error {
	query := `INSERT INTO exchange_rates (from_currency, to_currency, rate) VALUES ($1, $2, $3)`
	if _, err := p.db.ExecContext(ctx, query, from, to, rate); err != nil {
		return fmt.Errorf("failed to save exchange rate: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Composition
// ----------------------------------------------------------------------------

// FallbackProvider asks each provider in turn. A provider failing for a
// reason other than an unknown pair is logged and skipped.
type FallbackProvider struct {
	providers []RateProvider
}

// NewFallbackProvider chains providers in priority order
func NewFallbackProvider(providers ...RateProvider) *FallbackProvider {
	return &FallbackProvider{providers: providers}
}

func (p *FallbackProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	for _, provider := range p.providers {
		rate, err := provider.Rate(ctx, from, to)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, ErrRateUnavailable) {
			slog.Warn("Rate provider failed", "from", from, "to", to, "error", err)
		}
	}
	return decimal.Zero, ErrRateUnavailable
}

// CachedProvider memoizes another provider for a bounded time
type CachedProvider struct {
	next  RateProvider
	cache *cache.LRUCache[decimal.Decimal]
}

// NewCachedProvider wraps next with an LRU cache. Failed lookups are not
// cached.
func NewCachedProvider(next RateProvider, c *cache.LRUCache[decimal.Decimal]) *CachedProvider {
	return &CachedProvider{next: next, cache: c}
}

func (p *CachedProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := from + ":" + to
	if rate, ok := p.cache.Get(key); ok {
		return rate, nil
	}

	rate, err := p.next.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	p.cache.Set(key, rate)
	return rate, nil
}

// Invalidate drops a cached pair, for instance after a new rate is saved
func (p *CachedProvider) Invalidate(from, to string) {
	p.cache.Delete(from + ":" + to)
}
