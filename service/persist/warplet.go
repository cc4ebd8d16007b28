package persist

import (
	"fmt"
)

// TransformRecord is the durable record of one warplet transform. Exactly one record
// exists per FID, created at the moment the pinned upload is accepted by the ledger;
// records are never updated or deleted.
type TransformRecord struct {
	FID        FID          `json:"fid"`
	CID        string       `json:"cid"`
	GatewayURL string       `json:"gatewayUrl"`
	ImageURL   string       `json:"imageUrl"`
	CreatedAt  CreationTime `json:"createdAt"`
}

// TransformInsertInput is the input for inserting a transform record
type TransformInsertInput struct {
	FID        FID
	CID        string
	GatewayURL string
	ImageURL   string
}

// ErrWarpletNotFound is returned when no warplet exists for an FID in the upstream registry
type ErrWarpletNotFound struct {
	FID FID
}

func (e ErrWarpletNotFound) Error() string {
	return fmt.Sprintf("no warplet found for fid %s", e.FID)
}

// ErrTransformNotFoundByFID is returned when no transform record exists for an FID
type ErrTransformNotFoundByFID struct {
	FID FID
}

func (e ErrTransformNotFoundByFID) Error() string {
	return fmt.Sprintf("no transform found for fid %s", e.FID)
}

// ErrTransformExistsForFID is returned when a transform record already exists for an FID,
// either at the orchestration pre-check or when the ledger's uniqueness constraint
// rejects a concurrent insert
type ErrTransformExistsForFID struct {
	FID FID
}

func (e ErrTransformExistsForFID) Error() string {
	return fmt.Sprintf("transform already exists for fid %s", e.FID)
}
