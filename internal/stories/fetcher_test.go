package stories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
)

func TestFetcher_LoadNearby(t *testing.T) {
	t.Run("gps fix scenario with duplicate on refetch", func(t *testing.T) {
		store := &fakeStore{
			configured: true,
			responses: [][]*domain.Story{
				{approved("a", 42.70, 23.32), approved("b", 42.71, 23.31)},
				{approved("a", 42.70, 23.32)},
			},
		}
		reg, renderer := newRegistry()
		f := NewFetcher(store, reg, 10000, zap.NewNop())
		fix := domain.NewFix(42.70, 23.32, 15)

		report, err := f.LoadNearby(context.Background(), fix, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Received)
		assert.Equal(t, 2, report.Added)
		assert.Equal(t, 2, reg.Len())

		report, err = f.LoadNearby(context.Background(), fix, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Added)
		assert.Equal(t, 2, reg.Len())
		assert.Equal(t, 2, renderer.count())

		require.Len(t, store.queries, 2)
		q := store.queries[0]
		assert.Equal(t, domain.ComputeWindow(fix, 10000), q.Window)
		assert.Equal(t, domain.StatusApproved, q.Status)
		assert.Equal(t, 100, q.Limit)
	})

	t.Run("explicit radius overrides the load radius", func(t *testing.T) {
		store := &fakeStore{configured: true}
		reg, _ := newRegistry()
		f := NewFetcher(store, reg, 10000, zap.NewNop())
		center := domain.NewPosition(42.6977, 23.3219)

		report, err := f.LoadNearby(context.Background(), center, 5000)

		require.NoError(t, err)
		assert.Equal(t, domain.ComputeWindow(center, 5000), report.Window)
	})

	t.Run("second call while one is in flight makes no request", func(t *testing.T) {
		store := &fakeStore{
			configured: true,
			responses:  [][]*domain.Story{{approved("a", 42.70, 23.32)}},
			gate:       make(chan struct{}),
			started:    make(chan struct{}, 1),
		}
		reg, _ := newRegistry()
		f := NewFetcher(store, reg, 10000, zap.NewNop())
		pos := domain.NewPosition(42.70, 23.32)

		done := make(chan FetchReport)
		go func() {
			report, _ := f.LoadNearby(context.Background(), pos, 0)
			done <- report
		}()
		<-store.started
		assert.Equal(t, StateFetching, f.State())

		report, err := f.LoadNearby(context.Background(), pos, 0)
		require.NoError(t, err)
		assert.True(t, report.Skipped)
		assert.EqualValues(t, 1, store.calls.Load())

		close(store.gate)
		first := <-done
		assert.False(t, first.Skipped)
		assert.Equal(t, 1, first.Added)
		assert.Equal(t, StateIdle, f.State())

		_, err = f.LoadNearby(context.Background(), pos, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, store.calls.Load())
	})

	t.Run("failure keeps existing markers and returns to idle", func(t *testing.T) {
		store := &fakeStore{configured: true, err: errors.New("store returned HTTP 503")}
		reg, renderer := newRegistry()
		reg.Register(approved("existing", 42.7, 23.3))
		f := NewFetcher(store, reg, 10000, zap.NewNop())

		_, err := f.LoadNearby(context.Background(), domain.NewPosition(42.7, 23.3), 0)

		assert.ErrorContains(t, err, "503")
		assert.True(t, reg.Has("existing"))
		assert.Equal(t, 1, renderer.count())
		assert.Equal(t, StateIdle, f.State())
	})

	t.Run("unconfigured store is a silent no-op", func(t *testing.T) {
		store := &fakeStore{configured: false}
		reg, _ := newRegistry()
		f := NewFetcher(store, reg, 10000, zap.NewNop())

		_, err := f.LoadNearby(context.Background(), domain.NewPosition(42.7, 23.3), 0)

		assert.ErrorIs(t, err, domain.ErrStoreNotConfigured)
		assert.EqualValues(t, 0, store.calls.Load())
		assert.Equal(t, StateIdle, f.State())
	})
}

func TestFetcher_ClearCache(t *testing.T) {
	store := &fakeStore{
		configured: true,
		responses: [][]*domain.Story{
			{approved("a", 42.70, 23.32)},
			{approved("a", 42.70, 23.32)},
		},
	}
	reg, renderer := newRegistry()
	f := NewFetcher(store, reg, 10000, zap.NewNop())
	pos := domain.NewPosition(42.70, 23.32)

	_, err := f.LoadNearby(context.Background(), pos, 0)
	require.NoError(t, err)

	f.ClearCache()
	assert.Equal(t, 0, renderer.count())

	report, err := f.LoadNearby(context.Background(), pos, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, renderer.count())
}

func TestFetchState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "unknown", FetchState(7).String())
}
