package cart_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartflow/pkg/cart"
	"cartflow/pkg/cart/memory"
)

type failingPersister struct {
	cart.Persister
	saveErr error
}

func (f failingPersister) Save(ctx context.Context, session string, s cart.State) error {
	return f.saveErr
}

func openStore(t *testing.T, ids ...string) (*cart.Store, *memory.Persister) {
	t.Helper()
	ctx := context.Background()
	p := memory.New()
	require.NoError(t, p.Save(ctx, "session", ids))
	s, err := cart.Open(ctx, p, "session")
	require.NoError(t, err)
	return s, p
}

func TestOpenRestoresPersistedState(t *testing.T) {
	s, _ := openStore(t, "A", "B")
	require.Equal(t, "session", s.Session())
	require.Equal(t, cart.State{"A", "B"}, s.Snapshot())
}

func TestAddPersists(t *testing.T) {
	ctx := context.Background()
	s, p := openStore(t)
	require.NoError(t, s.Add(ctx, "A"))
	require.NoError(t, s.Add(ctx, "A"))

	saved, err := p.Load(ctx, "session")
	require.NoError(t, err)
	require.Equal(t, cart.State{"A", "A"}, saved)
}

func TestRemoveFirstOccurrence(t *testing.T) {
	ctx := context.Background()
	s, p := openStore(t, "A", "B", "A")
	require.NoError(t, s.Remove(ctx, "A"))
	require.Equal(t, cart.State{"B", "A"}, s.Snapshot())

	saved, err := p.Load(ctx, "session")
	require.NoError(t, err)
	require.Equal(t, cart.State{"B", "A"}, saved)
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	ctx := context.Background()

	empty, _ := openStore(t)
	require.NoError(t, empty.Remove(ctx, "A"))
	require.Empty(t, empty.Snapshot())

	s, _ := openStore(t, "A", "B")
	require.NoError(t, s.Remove(ctx, "C"))
	require.Equal(t, cart.State{"A", "B"}, s.Snapshot())
}

func TestAddThenRemoveRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	starts := []cart.State{{}, {"A"}, {"B", "A", "B"}, {"X", "Y", "Z"}}
	for _, start := range starts {
		for _, id := range []string{"A", "B", "new"} {
			s, _ := openStore(t, start...)
			before := s.Snapshot()
			require.NoError(t, s.Add(ctx, id))
			require.NoError(t, s.Remove(ctx, id))
			require.ElementsMatch(t, before, s.Snapshot(), "start=%v id=%s", start, id)
			require.Equal(t, before.Count(id), s.Snapshot().Count(id))
		}
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	for _, start := range []cart.State{{}, {"A"}, {"A", "A", "B"}} {
		s, p := openStore(t, start...)
		require.NoError(t, s.Clear(ctx))
		require.Empty(t, s.Snapshot())
		saved, err := p.Load(ctx, "session")
		require.NoError(t, err)
		require.Empty(t, saved)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	s, _ := openStore(t, "A")
	snap := s.Snapshot()
	snap[0] = "changed"
	require.Equal(t, cart.State{"A"}, s.Snapshot())
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("redis down")
	s, err := cart.Open(ctx, failingPersister{Persister: memory.New(), saveErr: boom}, "session")
	require.NoError(t, err)

	err = s.Add(ctx, "A")
	require.ErrorIs(t, err, cart.ErrPersist)
	require.ErrorIs(t, err, boom)
	require.Equal(t, cart.State{"A"}, s.Snapshot())
}

func TestRandomAddRemoveNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	ids := []string{"A", "B", "C"}
	s, _ := openStore(t)
	want := map[string]int{}
	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(2) == 0 {
			require.NoError(t, s.Add(ctx, id))
			want[id]++
			continue
		}
		require.NoError(t, s.Remove(ctx, id))
		if want[id] > 0 {
			want[id]--
		}
	}
	snap := s.Snapshot()
	for _, id := range ids {
		require.Equal(t, want[id], snap.Count(id), id)
	}
}

func TestConcurrentAddsOnOneStore(t *testing.T) {
	ctx := context.Background()
	s, p := openStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, "A"))
		}()
	}
	wg.Wait()

	require.Equal(t, 50, s.Snapshot().Count("A"))
	saved, err := p.Load(ctx, "session")
	require.NoError(t, err)
	require.Equal(t, 50, saved.Count("A"))
}

func TestSeparateStoresAreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	p := memory.New()
	first, err := cart.Open(ctx, p, "session")
	require.NoError(t, err)
	second, err := cart.Open(ctx, p, "session")
	require.NoError(t, err)

	require.NoError(t, first.Add(ctx, "A"))
	require.NoError(t, second.Add(ctx, "B"))

	saved, err := p.Load(ctx, "session")
	require.NoError(t, err)
	require.Equal(t, cart.State{"B"}, saved)
}
