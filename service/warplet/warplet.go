package warplet

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/clawplet/go-clawplet/contracts"
	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/clawplet/go-clawplet/service/rpc"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/everFinance/goar"
	shell "github.com/ipfs/go-ipfs-api"
)

func init() {
	env.RegisterValidation("WARPLETS_CONTRACT_ADDRESS", "required")
}

// metadataImageKeys are the fields checked, in order, for the display image of a warplet
var metadataImageKeys = []string{"image", "image_url"}

// ErrMetadataMissingImage is returned when a warplet's metadata has no image field
type ErrMetadataMissingImage struct {
	FID persist.FID
}

func (e ErrMetadataMissingImage) Error() string {
	return fmt.Sprintf("metadata for fid %s is missing an image field", e.FID)
}

// ResolvedWarplet is the resolved view of one legacy warplet. It is recomputed on every
// resolution; the on-chain registry stays authoritative and nothing here is persisted.
type ResolvedWarplet struct {
	FID      persist.FID           `json:"fid"`
	TokenURI persist.TokenURI      `json:"tokenUri"`
	ImageURL string                `json:"image"`
	Metadata persist.TokenMetadata `json:"metadata"`
}

type tokenURICaller interface {
	TokenURI(opts *bind.CallOpts, tokenID *big.Int) (string, error)
}

// Resolver resolves legacy warplets from the on-chain registry
type Resolver struct {
	caller         tokenURICaller
	ipfsClient     *shell.Shell
	arweaveClient  *goar.Client
	httpClient     *http.Client
	ipfsGatewayURL string
}

// NewResolver creates a resolver for the registry contract in WARPLETS_CONTRACT_ADDRESS
func NewResolver(ethClient bind.ContractCaller, ipfsClient *shell.Shell, arweaveClient *goar.Client, httpClient *http.Client) *Resolver {
	caller, err := contracts.NewIERC721MetadataCaller(common.HexToAddress(env.GetString("WARPLETS_CONTRACT_ADDRESS")), ethClient)
	if err != nil {
		panic(err)
	}
	return &Resolver{
		caller:         caller,
		ipfsClient:     ipfsClient,
		arweaveClient:  arweaveClient,
		httpClient:     httpClient,
		ipfsGatewayURL: env.GetString("IPFS_URL"),
	}
}

// Resolve looks up the token URI for an FID and extracts its display image. A failed
// registry lookup is the one condition reported as not-found; anything after that is a
// resolution failure.
func (r *Resolver) Resolve(pCtx context.Context, pFID persist.FID) (ResolvedWarplet, error) {
	uri, err := r.caller.TokenURI(&bind.CallOpts{Context: pCtx}, pFID.BigInt())
	if err != nil {
		logger.For(pCtx).Debugf("tokenURI call failed for fid %s: %s", pFID, err)
		return ResolvedWarplet{}, persist.ErrWarpletNotFound{FID: pFID}
	}

	turi := persist.TokenURI(uri)

	metadata, err := rpc.GetMetadataFromURI(pCtx, turi, r.ipfsClient, r.arweaveClient, r.httpClient)
	if err != nil {
		return ResolvedWarplet{}, fmt.Errorf("error resolving metadata for fid %s: %w", pFID, err)
	}

	imageURL := ""
	for _, key := range metadataImageKeys {
		if asString, ok := metadata[key].(string); ok && asString != "" {
			imageURL = asString
			break
		}
	}
	if imageURL == "" {
		return ResolvedWarplet{}, ErrMetadataMissingImage{FID: pFID}
	}

	return ResolvedWarplet{
		FID:      pFID,
		TokenURI: turi,
		ImageURL: ToHTTPURL(imageURL, r.ipfsGatewayURL),
		Metadata: metadata,
	}, nil
}

// ToHTTPURL normalizes a content-addressed image reference to an HTTP-resolvable URL
// using the given gateway; HTTP URLs pass through unchanged
func ToHTTPURL(uri string, gatewayURL string) string {
	if persist.TokenURI(uri).Type() != persist.URITypeIPFS {
		return uri
	}
	path := strings.TrimPrefix(strings.TrimPrefix(uri, "ipfs://"), "ipfs/")
	return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(gatewayURL, "/"), path)
}
