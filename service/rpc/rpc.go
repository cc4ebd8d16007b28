package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/everFinance/goar"
	shell "github.com/ipfs/go-ipfs-api"
)

func init() {
	env.RegisterValidation("RPC_URL", "required")
	env.RegisterValidation("IPFS_URL", "required")
}

const (
	defaultIPFSTimeout     = 2 * time.Minute
	defaultArweaveHost     = "https://arweave.net"
	defaultImageMimeType   = "image/png"
	maxMetadataPayloadSize = 4 * 1024 * 1024
)

// ErrHTTP represents an error returned from an HTTP request
type ErrHTTP struct {
	URL    string
	Status int
}

func (h ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP error with status: %d | url: %s", h.Status, h.URL)
}

// NewEthClient returns an ethclient connected to the chain RPC endpoint in RPC_URL
func NewEthClient() *ethclient.Client {
	return NewEthClientForURL(env.GetString("RPC_URL"))
}

// NewEthClientForURL returns an ethclient connected to the given RPC endpoint
func NewEthClientForURL(rpcURL string) *ethclient.Client {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		panic(fmt.Sprintf("error dialing eth client at %s: %s", rpcURL, err))
	}
	return client
}

// NewIPFSShell returns an IPFS shell for the node in IPFS_API_URL
func NewIPFSShell() *shell.Shell {
	sh := shell.NewShell(env.GetString("IPFS_API_URL"))
	sh.SetTimeout(defaultIPFSTimeout)
	return sh
}

// NewArweaveClient returns an Arweave client for the public arweave.net gateway
func NewArweaveClient() *goar.Client {
	return goar.NewClient(defaultArweaveHost)
}

// GetDataFromURI resolves a token URI to its raw bytes. Inline JSON and base64 payloads
// are decoded directly; ipfs://, ar:// and http(s) URIs are fetched from their networks.
func GetDataFromURI(ctx context.Context, turi persist.TokenURI, ipfsClient *shell.Shell, arweaveClient *goar.Client, httpClient *http.Client) ([]byte, error) {
	asString := turi.String()

	switch turi.Type() {
	case persist.URITypeBase64JSON:
		payload := asString[strings.IndexByte(asString, ',')+1:]
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some contracts emit unpadded base64
			decoded, err = base64.RawStdEncoding.DecodeString(payload)
			if err != nil {
				return nil, fmt.Errorf("error decoding base64 data: %w", err)
			}
		}
		return decoded, nil
	case persist.URITypeJSON:
		if strings.HasPrefix(asString, "data:") {
			payload := asString[strings.IndexByte(asString, ',')+1:]
			unescaped, err := url.QueryUnescape(payload)
			if err != nil {
				return nil, fmt.Errorf("error unescaping data URI: %w", err)
			}
			return []byte(unescaped), nil
		}
		return []byte(asString), nil
	case persist.URITypeIPFS:
		return GetIPFSData(ctx, ipfsClient, ipfsPathOf(asString))
	case persist.URITypeArweave:
		txID := strings.TrimPrefix(strings.TrimPrefix(asString, "arweave://"), "ar://")
		return arweaveClient.GetTransactionData(txID)
	case persist.URITypeIPFSGateway, persist.URITypeHTTP:
		data, _, err := GetHTTPData(ctx, asString, httpClient)
		return data, err
	default:
		return nil, fmt.Errorf("unknown token URI type '%s' for %s", turi.Type(), turi)
	}
}

// GetMetadataFromURI resolves and decodes a token URI into a metadata document
func GetMetadataFromURI(ctx context.Context, turi persist.TokenURI, ipfsClient *shell.Shell, arweaveClient *goar.Client, httpClient *http.Client) (persist.TokenMetadata, error) {
	data, err := GetDataFromURI(ctx, turi, ipfsClient, arweaveClient, httpClient)
	if err != nil {
		return nil, err
	}
	if len(data) > maxMetadataPayloadSize {
		return nil, fmt.Errorf("metadata payload too large: %d bytes", len(data))
	}

	metadata := persist.TokenMetadata{}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("error decoding metadata: %w", err)
	}
	return metadata, nil
}

// GetIPFSData reads a path from the configured IPFS node, falling back to the public
// gateway when the node errors
func GetIPFSData(ctx context.Context, ipfsClient *shell.Shell, path string) ([]byte, error) {
	reader, err := ipfsClient.Cat(path)
	if err != nil {
		logger.For(ctx).Warnf("error reading %s from ipfs node, trying gateway: %s", path, err)
		data, _, gatewayErr := GetHTTPData(ctx, fmt.Sprintf("%s/ipfs/%s", env.GetString("IPFS_URL"), path), http.DefaultClient)
		if gatewayErr != nil {
			return nil, fmt.Errorf("error getting data from ipfs: %s (gateway: %s)", err, gatewayErr)
		}
		return data, nil
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// GetHTTPData performs a no-cache GET and returns the body with its declared content type.
// The caller may retry the outer operation; this call itself is never retried.
func GetHTTPData(ctx context.Context, urlStr string, httpClient *http.Client) ([]byte, string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Cache-Control", "no-cache")

	res, err := httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, "", ErrHTTP{URL: urlStr, Status: res.StatusCode}
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultImageMimeType
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// ipfsPathOf strips the scheme and any redundant path prefix from an ipfs URI
func ipfsPathOf(uri string) string {
	path := strings.TrimPrefix(uri, "ipfs://")
	path = strings.TrimPrefix(path, "ipfs/")
	if idx := strings.Index(path, "/ipfs/"); idx != -1 {
		path = path[idx+len("/ipfs/"):]
	}
	return path
}
