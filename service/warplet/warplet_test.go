package warplet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/stretchr/testify/assert"
)

type fakeTokenURICaller struct {
	uri string
	err error
}

func (f fakeTokenURICaller) TokenURI(opts *bind.CallOpts, tokenID *big.Int) (string, error) {
	return f.uri, f.err
}

func newTestResolver(caller fakeTokenURICaller) *Resolver {
	return &Resolver{
		caller:         caller,
		httpClient:     http.DefaultClient,
		ipfsGatewayURL: "https://ipfs.io",
	}
}

func TestResolve_Base64DataURI(t *testing.T) {
	a := assert.New(t)

	metadata := `{"name":"Warplet #42","image":"ipfs://QmWarplet42"}`
	uri := "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(metadata))

	resolved, err := newTestResolver(fakeTokenURICaller{uri: uri}).Resolve(context.Background(), 42)
	a.NoError(err)
	a.Equal(persist.FID(42), resolved.FID)
	a.Equal(persist.TokenURI(uri), resolved.TokenURI)
	a.Equal("https://ipfs.io/ipfs/QmWarplet42", resolved.ImageURL)
	a.Equal("Warplet #42", resolved.Metadata["name"])
}

func TestResolve_PlainDataURI(t *testing.T) {
	a := assert.New(t)

	uri := `data:application/json,%7B%22image%22%3A%22https%3A%2F%2Fexample.com%2F42.png%22%7D`

	resolved, err := newTestResolver(fakeTokenURICaller{uri: uri}).Resolve(context.Background(), 42)
	a.NoError(err)
	a.Equal("https://example.com/42.png", resolved.ImageURL)
}

func TestResolve_HTTPMetadata(t *testing.T) {
	a := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"image_url":"https://example.com/42.png"}`)
	}))
	defer server.Close()

	resolved, err := newTestResolver(fakeTokenURICaller{uri: server.URL + "/42.json"}).Resolve(context.Background(), 42)
	a.NoError(err)
	a.Equal("https://example.com/42.png", resolved.ImageURL)
}

func TestResolve_PrefersImageOverImageURL(t *testing.T) {
	a := assert.New(t)

	uri := `{"image":"https://example.com/a.png","image_url":"https://example.com/b.png"}`

	resolved, err := newTestResolver(fakeTokenURICaller{uri: uri}).Resolve(context.Background(), 42)
	a.NoError(err)
	a.Equal("https://example.com/a.png", resolved.ImageURL)
}

func TestResolve_MissingImage(t *testing.T) {
	a := assert.New(t)

	_, err := newTestResolver(fakeTokenURICaller{uri: `{"name":"Warplet #42"}`}).Resolve(context.Background(), 42)
	a.Equal(ErrMetadataMissingImage{FID: 42}, err)
}

func TestResolve_RegistryLookupFailure(t *testing.T) {
	a := assert.New(t)

	_, err := newTestResolver(fakeTokenURICaller{err: errors.New("execution reverted")}).Resolve(context.Background(), 42)
	a.Equal(persist.ErrWarpletNotFound{FID: 42}, err)
}

func TestResolve_UnreachableMetadata(t *testing.T) {
	a := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestResolver(fakeTokenURICaller{uri: server.URL + "/42.json"}).Resolve(context.Background(), 42)
	a.Error(err)
	a.NotEqual(persist.ErrWarpletNotFound{FID: 42}, err)
}

func TestToHTTPURL(t *testing.T) {
	a := assert.New(t)

	a.Equal("https://ipfs.io/ipfs/QmWarplet42", ToHTTPURL("ipfs://QmWarplet42", "https://ipfs.io"))
	a.Equal("https://ipfs.io/ipfs/QmWarplet42", ToHTTPURL("QmWarplet42", "https://ipfs.io/"))
	a.Equal("https://ipfs.io/ipfs/bafybeig123", ToHTTPURL("bafybeig123", "https://ipfs.io"))
	a.Equal("https://example.com/42.png", ToHTTPURL("https://example.com/42.png", "https://ipfs.io"))
	a.Equal("ar://tx123", ToHTTPURL("ar://tx123", "https://ipfs.io"))
}
