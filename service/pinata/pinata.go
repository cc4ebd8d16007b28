package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/util"
)

func init() {
	env.RegisterValidation("PINATA_JWT", "required")
}

const (
	defaultUploadURL = "https://uploads.pinata.cloud/v3/files"

	// maxUploadBytes caps uploads at 10MiB
	maxUploadBytes = 10 * 1024 * 1024

	allowedMimePrefix = "image/"
)

// ErrUploadFailed is returned when the upload is rejected or the response envelope
// has no content identifier; Message carries the upstream error when one was returned
type ErrUploadFailed struct {
	Message string
}

func (e ErrUploadFailed) Error() string {
	if e.Message == "" {
		return "pinata upload failed"
	}
	return fmt.Sprintf("pinata upload failed: %s", e.Message)
}

// Upload is the result of pinning one file
type Upload struct {
	CID        string `json:"cid"`
	GatewayURL string `json:"gatewayUrl"`
}

// Client uploads files to Pinata's public IPFS network
type Client struct {
	uploadURL  string
	jwt        string
	gateway    string
	httpClient *http.Client
}

// NewClient creates a Client from PINATA_JWT and the optional PINATA_GATEWAY host
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		uploadURL:  defaultUploadURL,
		jwt:        env.GetString("PINATA_JWT"),
		gateway:    env.GetString("PINATA_GATEWAY"),
		httpClient: httpClient,
	}
}

// Upload pins image bytes to the public network and returns the content identifier with
// a resolvable gateway URL. Only image MIME types up to 10MiB are accepted.
func (c *Client) Upload(pCtx context.Context, pData []byte, pMimeType string, pName string) (Upload, error) {
	if !strings.HasPrefix(pMimeType, allowedMimePrefix) {
		return Upload{}, ErrUploadFailed{Message: fmt.Sprintf("unsupported mime type %s", pMimeType)}
	}
	if len(pData) > maxUploadBytes {
		return Upload{}, ErrUploadFailed{Message: fmt.Sprintf("file too large (%d bytes, max %d)", len(pData), maxUploadBytes)}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", pName)
	if err != nil {
		return Upload{}, err
	}
	if _, err := part.Write(pData); err != nil {
		return Upload{}, err
	}
	if err := writer.WriteField("network", "public"); err != nil {
		return Upload{}, err
	}
	if err := writer.Close(); err != nil {
		return Upload{}, err
	}

	req, err := http.NewRequestWithContext(pCtx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return Upload{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Upload{}, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Upload{}, err
	}

	envelope := uploadEnvelope{}
	// Tolerate a malformed body; the status code decides below
	json.Unmarshal(raw, &envelope)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Upload{}, ErrUploadFailed{Message: envelope.errorMessage(res.StatusCode)}
	}

	cid := envelope.cid()
	if cid == "" {
		logger.For(pCtx).Errorf("pinata response missing cid: %s", util.TruncateWithEllipsis(string(raw), 500))
		return Upload{}, ErrUploadFailed{Message: "response missing cid"}
	}

	return Upload{CID: cid, GatewayURL: ToGatewayURL(cid, c.gateway)}, nil
}

// uploadEnvelope is the variably-shaped Pinata response. The cid has been observed at
// data.cid, at data.data.cid, and at the top level; cid() unwraps in that order.
type uploadEnvelope struct {
	CID   string `json:"cid"`
	Error any    `json:"error"`
	Msg   string `json:"message"`
	Data  *struct {
		CID  string `json:"cid"`
		Data *struct {
			CID string `json:"cid"`
		} `json:"data"`
	} `json:"data"`
}

func (e uploadEnvelope) cid() string {
	if e.Data != nil {
		if e.Data.CID != "" {
			return e.Data.CID
		}
		if e.Data.Data != nil && e.Data.Data.CID != "" {
			return e.Data.Data.CID
		}
	}
	return e.CID
}

func (e uploadEnvelope) errorMessage(statusCode int) string {
	if asString, ok := e.Error.(string); ok && asString != "" {
		return asString
	}
	if e.Error != nil {
		if bs, err := json.Marshal(e.Error); err == nil && string(bs) != "null" {
			return string(bs)
		}
	}
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("status %d", statusCode)
}

// ToGatewayURL derives a resolvable URL for a cid, preferring the configured dedicated
// gateway and falling back to a bare ipfs URI
func ToGatewayURL(cid string, gateway string) string {
	if strings.TrimSpace(gateway) == "" {
		return fmt.Sprintf("ipfs://%s", cid)
	}
	host := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(gateway, "https://"), "http://"), "/")
	return fmt.Sprintf("https://%s/ipfs/%s", host, cid)
}
