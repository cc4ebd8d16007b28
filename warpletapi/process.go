package warpletapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clawplet/go-clawplet/service/farcaster"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/mint"
	"github.com/clawplet/go-clawplet/service/persist"
	sentryutil "github.com/clawplet/go-clawplet/service/sentry"
	"github.com/clawplet/go-clawplet/util"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// transformTimeout bounds one pipeline run; generation alone can take low minutes
const transformTimeout = 10 * time.Minute

// maxUploadedImageBytes mirrors the pin service's upload cap so oversize files are
// rejected at the edge with a dedicated status code
const maxUploadedImageBytes = 10 * 1024 * 1024

type mintStatusChecker interface {
	Status(ctx context.Context, fid persist.FID) mint.MintStatus
}

type transformInput struct {
	FID persist.FID `json:"fid" binding:"required,gt=0"`
}

// transformConflictOutput carries the existing record's identifiers with the conflict
// so a client that lost the race still learns the canonical cid
type transformConflictOutput struct {
	Error      string `json:"error"`
	CID        string `json:"cid"`
	GatewayURL string `json:"gatewayUrl"`
}

func transformWarplet(tp *transformProcessor) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := transformInput{}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := context.WithTimeout(c, transformTimeout)
		defer cancel()

		record, err := tp.ProcessWarplet(ctx, input.FID)
		if err != nil {
			switch {
			case errors.As(err, &persist.ErrTransformExistsForFID{}):
				c.Error(err)
				c.JSON(http.StatusConflict, transformConflictOutput{Error: err.Error(), CID: record.CID, GatewayURL: record.GatewayURL})
			case errors.As(err, &persist.ErrWarpletNotFound{}):
				util.ErrResponse(c, http.StatusNotFound, err)
			default:
				util.ErrResponse(c, http.StatusInternalServerError, err)
			}
			return
		}

		c.JSON(http.StatusOK, record)
	}
}

type getWarpletOutput struct {
	TokenID  persist.FID      `json:"tokenId"`
	TokenURI persist.TokenURI `json:"tokenUri"`
	Image    string           `json:"image"`
}

func getWarplet(resolver sourceResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		fid, err := fidFromParam(c)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		resolved, err := resolver.Resolve(c, fid)
		if err != nil {
			if errors.As(err, &persist.ErrWarpletNotFound{}) {
				util.ErrResponse(c, http.StatusNotFound, err)
				return
			}
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.Header("Cache-Control", "s-maxage=60, stale-while-revalidate=300")
		c.JSON(http.StatusOK, getWarpletOutput{TokenID: resolved.FID, TokenURI: resolved.TokenURI, Image: resolved.ImageURL})
	}
}

type getStatusInput struct {
	FID persist.FID `form:"fid" binding:"required,gt=0"`
}

type getStatusOutput struct {
	FID            persist.FID              `json:"fid"`
	HasTransformed bool                     `json:"hasTransformed"`
	Transform      *persist.TransformRecord `json:"transform"`
	HasMinted      bool                     `json:"hasMinted"`
	Owner          *persist.EthereumAddress `json:"owner"`
}

// getStatus reads the ledger and the ownership registry in parallel. It never fails
// hard: either side erroring degrades to its zero value so the client always gets a
// best-effort view.
func getStatus(ledger transformLedger, statusChecker mintStatusChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := getStatusInput{}
		if err := c.ShouldBindQuery(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		output := getStatusOutput{FID: input.FID}

		eg, ctx := errgroup.WithContext(c)
		eg.Go(func() error {
			record, err := ledger.GetByFID(ctx, input.FID)
			if err != nil {
				if !errors.As(err, &persist.ErrTransformNotFoundByFID{}) {
					logger.For(ctx).Errorf("error reading transform for fid %s: %s", input.FID, err)
					sentryutil.ReportError(ctx, err)
				}
				return nil
			}
			output.HasTransformed = true
			output.Transform = &record
			return nil
		})
		eg.Go(func() error {
			status := statusChecker.Status(ctx, input.FID)
			output.HasMinted = status.HasMinted
			output.Owner = status.Owner
			return nil
		})
		eg.Wait()

		c.JSON(http.StatusOK, output)
	}
}

func getWarpletMedia(ledger transformLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fid, err := fidFromParam(c)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		record, err := ledger.GetByFID(c, fid)
		if err != nil {
			if errors.As(err, &persist.ErrTransformNotFoundByFID{}) {
				util.ErrResponse(c, http.StatusNotFound, err)
				return
			}
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.Redirect(http.StatusFound, record.GatewayURL)
	}
}

type userResolver interface {
	UserByFID(ctx context.Context, fid persist.FID) (farcaster.Profile, error)
}

// getUser resolves a Farcaster profile through the hub. A hub failure maps to a bad
// gateway rather than a server error so clients can tell upstream flakiness apart from
// a bug here.
func getUser(resolver userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		fid, err := fidFromParam(c)
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		profile, err := resolver.UserByFID(c, fid)
		if err != nil {
			switch {
			case errors.As(err, &farcaster.ErrUserNotFound{}):
				util.ErrResponse(c, http.StatusNotFound, err)
			case errors.As(err, &farcaster.ErrBadResponse{}):
				util.ErrResponse(c, http.StatusBadGateway, err)
			default:
				util.ErrResponse(c, http.StatusInternalServerError, err)
			}
			return
		}

		c.Header("Cache-Control", "s-maxage=60, stale-while-revalidate=300")
		c.JSON(http.StatusOK, profile)
	}
}

type signMintInput struct {
	FID       persist.FID `json:"fid" binding:"required,gt=0"`
	CID       string      `json:"cid" binding:"required"`
	Recipient string      `json:"recipient" binding:"required,eth_addr"`
	Deadline  *int64      `json:"deadline" binding:"omitempty,gte=0"`
}

func signMint(signer *mint.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := signMintInput{}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		authorization, err := signer.Sign(c, mint.SignInput{
			FID:       input.FID,
			CID:       input.CID,
			Recipient: input.Recipient,
			Deadline:  input.Deadline,
		})
		if err != nil {
			if errors.Is(err, mint.ErrInvalidRecipient) || errors.Is(err, mint.ErrMissingCID) || errors.Is(err, mint.ErrInvalidDeadline) {
				util.ErrResponse(c, http.StatusBadRequest, err)
				return
			}
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, authorization)
	}
}

type uploadImageInput struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
	MimeType    string `json:"mimeType"`
	Name        string `json:"name"`
}

// uploadImage pins a client-supplied image directly; it accepts either a multipart file
// or a JSON base64 payload
func uploadImage(pinner contentPinner) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, mimeType, name, err := readUploadedImage(c)
		if err != nil {
			return // readUploadedImage already wrote the response
		}

		upload, err := pinner.Upload(c, data, mimeType, name)
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, upload)
	}
}

func readUploadedImage(c *gin.Context) (data []byte, mimeType, name string, err error) {
	contentType := c.ContentType()

	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		fileHeader, formErr := c.FormFile("file")
		if formErr != nil {
			err = fmt.Errorf("field 'file' is required: %w", formErr)
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		file, openErr := fileHeader.Open()
		if openErr != nil {
			err = openErr
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}
		defer file.Close()
		buf := make([]byte, fileHeader.Size)
		if _, readErr := io.ReadFull(file, buf); readErr != nil {
			err = readErr
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}
		mimeType = fileHeader.Header.Get("Content-Type")
		name = fileHeader.Filename
		data = buf
	case strings.HasPrefix(contentType, "application/json"):
		input := uploadImageInput{}
		if bindErr := c.ShouldBindJSON(&input); bindErr != nil {
			err = bindErr
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		decoded, decodeErr := base64.StdEncoding.DecodeString(stripDataURIPrefix(input.ImageBase64))
		if decodeErr != nil {
			err = fmt.Errorf("invalid base64 payload: %w", decodeErr)
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		data = decoded
		mimeType = input.MimeType
		name = input.Name
	default:
		err = fmt.Errorf("unsupported content type %s; use multipart/form-data or application/json", contentType)
		util.ErrResponse(c, http.StatusUnsupportedMediaType, err)
		return
	}

	if mimeType == "" {
		mimeType = "image/png"
	}
	if name == "" {
		name = "image.png"
	}

	if !strings.HasPrefix(mimeType, "image/") {
		err = fmt.Errorf("unsupported file type %s; only images are accepted", mimeType)
		util.ErrResponse(c, http.StatusUnsupportedMediaType, err)
		return
	}
	if len(data) > maxUploadedImageBytes {
		err = fmt.Errorf("file too large (%d bytes, max %d)", len(data), maxUploadedImageBytes)
		util.ErrResponse(c, http.StatusRequestEntityTooLarge, err)
		return
	}
	return
}

func stripDataURIPrefix(payload string) string {
	if idx := strings.Index(payload, ";base64,"); idx != -1 && strings.HasPrefix(payload, "data:") {
		return payload[idx+len(";base64,"):]
	}
	return payload
}

func fidFromParam(c *gin.Context) (persist.FID, error) {
	asInt, err := strconv.ParseInt(c.Param("fid"), 10, 64)
	if err != nil || asInt <= 0 {
		return 0, fmt.Errorf("invalid fid '%s'", c.Param("fid"))
	}
	return persist.FID(asInt), nil
}
