package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cartflow/pkg/cart"
)

func TestPersister(t *testing.T) {
	ctx := context.Background()
	p := New()

	got, err := p.Load(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, got)

	in := cart.State{"A", "A", "B"}
	require.NoError(t, p.Save(ctx, "s1", in))
	in[0] = "mutated"

	got, err = p.Load(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, cart.State{"A", "A", "B"}, got)

	other, err := p.Load(ctx, "s2")
	require.NoError(t, err)
	require.Empty(t, other)
}
