package main

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	pg "cartflow/pkg/catalog/postgres"
	"cartflow/pkg/catalog/remote"
	"cartflow/pkg/config"
	"cartflow/pkg/logger"
)

func TestSeedCatalogFromFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"_id":"A","title":"Lamp","price":500}]`), 0o600))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("A", "Lamp", sqlmock.AnyArg(), "500").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, seedCatalog(context.Background(), pg.New(db), path, logger.NewNop()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedCatalogMissingFile(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = seedCatalog(context.Background(), pg.New(db), filepath.Join(t.TempDir(), "absent.json"), logger.NewNop())
	require.Error(t, err)
}

func TestOpenRemoteCatalog(t *testing.T) {
	cfg := config.Config{Catalog: config.CatalogConfig{URL: "http://catalog.local/api/cart", Timeout: 2 * time.Second}}

	repo, closeFn, err := openCatalog(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &remote.Repository{}, repo)
}
