// Package source loads billing data from the ERP backend and turns it into
// the canonical snapshot consumed by the reports package.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// Kind selects the backend a Fetcher talks to.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindREST     Kind = "rest"
)

// ErrUnknownKind is returned for unsupported SOURCE_KIND values.
var ErrUnknownKind = errors.New("source: unknown kind")

// ParseKind validates a configured source kind.
func ParseKind(value string) (Kind, error) {
	switch k := Kind(value); k {
	case KindPostgres, KindREST:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// Fetcher returns the raw collections exactly as the backend stores them.
type Fetcher interface {
	Fetch(ctx context.Context) (billing.RawSnapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (billing.RawSnapshot, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context) (billing.RawSnapshot, error) {
	return f(ctx)
}

// Loader normalises whatever its Fetcher returns. It satisfies
// reports.Source.
type Loader struct {
	fetcher Fetcher
	loc     *time.Location
}

// NewLoader wraps a Fetcher. Zone-less timestamps are read in loc.
func NewLoader(fetcher Fetcher, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{fetcher: fetcher, loc: loc}
}

// Load fetches and normalises a snapshot.
func (l *Loader) Load(ctx context.Context) (billing.Snapshot, error) {
	raw, err := l.fetcher.Fetch(ctx)
	if err != nil {
		return billing.Snapshot{}, fmt.Errorf("source: fetch: %w", err)
	}
	return billing.Normalize(raw, l.loc), nil
}

// FetchObserver receives upstream fetch timings.
type FetchObserver interface {
	ObserveFetch(source string, elapsed time.Duration, err error)
}

// Observed reports every fetch made through f to obs. A nil obs returns f.
func Observed(f Fetcher, name string, obs FetchObserver) Fetcher {
	if obs == nil {
		return f
	}
	return FetcherFunc(func(ctx context.Context) (billing.RawSnapshot, error) {
		started := time.Now()
		raw, err := f.Fetch(ctx)
		obs.ObserveFetch(name, time.Since(started), err)
		return raw, err
	})
}
