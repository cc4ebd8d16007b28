package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	migrate "github.com/clawplet/go-clawplet/db"
	"github.com/clawplet/go-clawplet/docker"
	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) (*assert.Assertions, *sql.DB) {
	resource, err := docker.StartPostgres()
	if err != nil {
		t.Skipf("skipping; could not start postgres container: %s", err)
	}
	t.Cleanup(func() { resource.Close() })

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	db, err := NewClient(
		WithHost("localhost"),
		WithPort(port),
		WithUser("postgres"),
		WithPassword("postgres"),
		WithDBName("postgres"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrate.RunMigrations(db, "../../../db/migrations/core"))

	return assert.New(t), db
}

func TestWarpletRepository(t *testing.T) {
	a, db := setupTest(t)
	repo := NewWarpletRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t.Run("reports a missing record as not found", func(t *testing.T) {
		_, err := repo.GetByFID(ctx, 404)
		a.Equal(persist.ErrTransformNotFoundByFID{FID: 404}, err)
	})

	t.Run("inserts and reads back a record", func(t *testing.T) {
		inserted, err := repo.Insert(ctx, persist.TransformInsertInput{
			FID:        42,
			CID:        "bafy-upload-42",
			GatewayURL: "https://gateway.test/ipfs/bafy-upload-42",
			ImageURL:   "https://gateway.test/ipfs/bafy-upload-42",
		})
		a.NoError(err)
		a.Equal(persist.FID(42), inserted.FID)
		a.Equal("bafy-upload-42", inserted.CID)
		a.False(inserted.CreatedAt.Time().IsZero())

		fetched, err := repo.GetByFID(ctx, 42)
		a.NoError(err)
		a.Equal(inserted.CID, fetched.CID)
		a.Equal(inserted.GatewayURL, fetched.GatewayURL)
		a.Equal(inserted.ImageURL, fetched.ImageURL)
	})

	t.Run("rejects a second insert for the same fid", func(t *testing.T) {
		_, err := repo.Insert(ctx, persist.TransformInsertInput{
			FID:        42,
			CID:        "bafy-upload-imposter",
			GatewayURL: "https://gateway.test/ipfs/bafy-upload-imposter",
		})
		a.Equal(persist.ErrTransformExistsForFID{FID: 42}, err)

		// The original record is untouched
		fetched, err := repo.GetByFID(ctx, 42)
		a.NoError(err)
		a.Equal("bafy-upload-42", fetched.CID)
	})

	t.Run("tolerates a null image url", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `INSERT INTO clawplet_warplets (FID,CID,GATEWAY_URL) VALUES (43,'bafy-upload-43','https://gateway.test/ipfs/bafy-upload-43');`)
		a.NoError(err)

		fetched, err := repo.GetByFID(ctx, 43)
		a.NoError(err)
		a.Equal("", fetched.ImageURL)
	})

	t.Run("concurrent inserts record exactly one winner", func(t *testing.T) {
		const attempts = 8
		var wg sync.WaitGroup
		errs := make([]error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = repo.Insert(ctx, persist.TransformInsertInput{
					FID:        44,
					CID:        "bafy-race-" + strconv.Itoa(i),
					GatewayURL: "https://gateway.test/ipfs/bafy-race-" + strconv.Itoa(i),
				})
			}(i)
		}
		wg.Wait()

		winners := 0
		for i := 0; i < attempts; i++ {
			if errs[i] == nil {
				winners++
			} else {
				a.Equal(persist.ErrTransformExistsForFID{FID: 44}, errs[i])
			}
		}
		a.Equal(1, winners)
	})
}
