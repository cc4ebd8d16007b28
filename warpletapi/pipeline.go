package warpletapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clawplet/go-clawplet/service/generate"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/clawplet/go-clawplet/service/pinata"
	"github.com/clawplet/go-clawplet/service/rpc"
	"github.com/clawplet/go-clawplet/service/warplet"
	"github.com/clawplet/go-clawplet/util"
	"github.com/sirupsen/logrus"
)

type sourceResolver interface {
	Resolve(ctx context.Context, fid persist.FID) (warplet.ResolvedWarplet, error)
}

type imageGenerator interface {
	Transform(ctx context.Context, data []byte, mimeType string) (generate.Generated, error)
}

type contentPinner interface {
	Upload(ctx context.Context, data []byte, mimeType string, name string) (pinata.Upload, error)
}

type transformLedger interface {
	GetByFID(ctx context.Context, fid persist.FID) (persist.TransformRecord, error)
	Insert(ctx context.Context, input persist.TransformInsertInput) (persist.TransformRecord, error)
}

// transformProcessor runs the transform pipeline for one fid at a time:
// resolve -> fetch -> generate -> pin -> record. No step is retried; every step before
// the ledger insert is free of non-idempotent side effects, so clients may safely retry
// the whole operation. The ledger's uniqueness constraint, not any in-process state,
// enforces the one-transform-per-fid invariant.
type transformProcessor struct {
	ledger    transformLedger
	resolver  sourceResolver
	generator imageGenerator
	pinner    contentPinner

	// fetchImageF fetches the resolved source image; swapped out in tests
	fetchImageF func(ctx context.Context, url string) ([]byte, string, error)
}

// NewTransformProcessor creates a transformProcessor from its collaborators
func NewTransformProcessor(ledger transformLedger, resolver sourceResolver, generator imageGenerator, pinner contentPinner, httpClient *http.Client) *transformProcessor {
	return &transformProcessor{
		ledger:    ledger,
		resolver:  resolver,
		generator: generator,
		pinner:    pinner,
		fetchImageF: func(ctx context.Context, url string) ([]byte, string, error) {
			return rpc.GetHTTPData(ctx, url, httpClient)
		},
	}
}

// ProcessWarplet runs the pipeline for an fid. When a record already exists, either at
// the pre-check or because a concurrent run won the insert race, the winning record is
// returned alongside persist.ErrTransformExistsForFID.
func (tp *transformProcessor) ProcessWarplet(ctx context.Context, fid persist.FID) (persist.TransformRecord, error) {
	defer util.Track(fmt.Sprintf("ProcessWarplet %s", fid), time.Now())

	runID := persist.GenerateID()
	ctx = logger.NewContextWithFields(ctx, logrus.Fields{"runID": runID, "fid": fid})

	// The pre-check is only an optimization to skip expensive work; the constraint at
	// insert time is the correctness mechanism.
	existing, err := tp.ledger.GetByFID(ctx, fid)
	if err == nil {
		logger.For(ctx).Infof("transform already recorded with cid %s", existing.CID)
		return existing, persist.ErrTransformExistsForFID{FID: fid}
	}
	if !errors.As(err, &persist.ErrTransformNotFoundByFID{}) {
		return persist.TransformRecord{}, err
	}

	logger.For(ctx).Info("resolving source warplet")
	resolved, err := tp.resolver.Resolve(ctx, fid)
	if err != nil {
		return persist.TransformRecord{}, err
	}

	data, mimeType, err := tp.fetchImageF(ctx, resolved.ImageURL)
	if err != nil {
		return persist.TransformRecord{}, fmt.Errorf("error fetching source image for fid %s: %w", fid, err)
	}

	logger.For(ctx).Infof("generating derivative from %d bytes of %s", len(data), mimeType)
	generated, err := tp.generator.Transform(ctx, data, mimeType)
	if err != nil {
		return persist.TransformRecord{}, fmt.Errorf("error generating derivative for fid %s: %w", fid, err)
	}

	upload, err := tp.pinner.Upload(ctx, generated.Data, generated.MimeType, fmt.Sprintf("clawplet-%s.png", fid))
	if err != nil {
		return persist.TransformRecord{}, err
	}

	record, err := tp.ledger.Insert(ctx, persist.TransformInsertInput{
		FID:        fid,
		CID:        upload.CID,
		GatewayURL: upload.GatewayURL,
		ImageURL:   upload.GatewayURL,
	})
	if err != nil {
		if errors.As(err, &persist.ErrTransformExistsForFID{}) {
			// A concurrent run won the race; read back its record rather than erroring
			winner, readErr := tp.ledger.GetByFID(ctx, fid)
			if readErr != nil {
				return persist.TransformRecord{}, readErr
			}
			logger.For(ctx).Infof("lost insert race; returning winning cid %s", winner.CID)
			return winner, err
		}
		return persist.TransformRecord{}, err
	}

	logger.For(ctx).Infof("recorded transform with cid %s", record.CID)
	return record, nil
}
