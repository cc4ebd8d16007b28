package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/clawplet/go-clawplet/service/persist"
)

// WarpletRepository is the ledger of warplet transforms. It is create-only: the
// uniqueness constraint on fid is the sole arbiter of the one-transform-per-fid
// invariant, so there is no update or delete path.
type WarpletRepository struct {
	db           *sql.DB
	getByFIDStmt *sql.Stmt
	insertStmt   *sql.Stmt
}

// NewWarpletRepository creates a new WarpletRepository
func NewWarpletRepository(db *sql.DB) *WarpletRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	getByFIDStmt, err := db.PrepareContext(ctx, `SELECT FID,CID,GATEWAY_URL,COALESCE(IMAGE_URL,''),CREATED_AT FROM clawplet_warplets WHERE FID = $1;`)
	checkNoErr(err)

	// ON CONFLICT DO NOTHING rather than a pre-check: concurrent inserts for the same
	// fid race here and exactly one returns a row.
	insertStmt, err := db.PrepareContext(ctx, `INSERT INTO clawplet_warplets (FID,CID,GATEWAY_URL,IMAGE_URL) VALUES ($1,$2,$3,$4) ON CONFLICT (FID) DO NOTHING RETURNING FID,CID,GATEWAY_URL,COALESCE(IMAGE_URL,''),CREATED_AT;`)
	checkNoErr(err)

	return &WarpletRepository{
		db:           db,
		getByFIDStmt: getByFIDStmt,
		insertStmt:   insertStmt,
	}
}

// GetByFID retrieves the transform record for an FID
func (w *WarpletRepository) GetByFID(pCtx context.Context, pFID persist.FID) (persist.TransformRecord, error) {
	record := persist.TransformRecord{}
	err := w.getByFIDStmt.QueryRowContext(pCtx, pFID).Scan(&record.FID, &record.CID, &record.GatewayURL, &record.ImageURL, &record.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.TransformRecord{}, persist.ErrTransformNotFoundByFID{FID: pFID}
		}
		return persist.TransformRecord{}, err
	}
	return record, nil
}

// Insert inserts a transform record for an FID. If a record already exists for the FID
// the insert is rejected by the uniqueness constraint and ErrTransformExistsForFID is
// returned; the caller should re-read the winning record.
func (w *WarpletRepository) Insert(pCtx context.Context, pInput persist.TransformInsertInput) (persist.TransformRecord, error) {
	record := persist.TransformRecord{}
	err := w.insertStmt.QueryRowContext(pCtx, pInput.FID, pInput.CID, pInput.GatewayURL, pInput.ImageURL).Scan(&record.FID, &record.CID, &record.GatewayURL, &record.ImageURL, &record.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.TransformRecord{}, persist.ErrTransformExistsForFID{FID: pInput.FID}
		}
		return persist.TransformRecord{}, err
	}
	return record, nil
}

func checkNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
