package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fetchRecord struct {
	source string
	err    error
}

type recordingFetchObserver struct {
	records []fetchRecord
}

func (o *recordingFetchObserver) ObserveFetch(source string, elapsed time.Duration, err error) {
	o.records = append(o.records, fetchRecord{source: source, err: err})
}

func TestObservedReportsEveryFetch(t *testing.T) {
	obs := &recordingFetchObserver{}
	ok := &countingFetcher{snap: rawFixture()}
	boom := errors.New("boom")

	raw, err := Observed(ok, "postgres", obs).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raw.Bills, 1)

	_, err = Observed(&countingFetcher{err: boom}, "rest", obs).Fetch(context.Background())
	require.ErrorIs(t, err, boom)

	require.Equal(t, []fetchRecord{{source: "postgres"}, {source: "rest", err: boom}}, obs.records)
	require.Same(t, ok, Observed(ok, "postgres", nil))
}

func TestLoaderNormalisesSnapshot(t *testing.T) {
	snap, err := NewLoader(&countingFetcher{snap: rawFixture()}, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Bills, 1)
	require.Equal(t, "Asha Stores", snap.Directory().Name(snap.Bills[0].Owner()))
}
