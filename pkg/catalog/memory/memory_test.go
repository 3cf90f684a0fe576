package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cartflow/pkg/catalog"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := New(
		catalog.Product{ID: "A", Title: "Lamp", Price: decimal.NewFromInt(500)},
		catalog.Product{ID: "B", Title: "Desk", Price: decimal.NewFromInt(1200)},
	)

	got, err := repo.Lookup(ctx, []string{"B", "A", "B", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "B", got[0].ID)
	require.Equal(t, "A", got[1].ID)

	got, err = repo.Lookup(ctx, []string{"missing"})
	require.NoError(t, err)
	require.Empty(t, got)
}
