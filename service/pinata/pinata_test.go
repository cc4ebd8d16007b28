package pinata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

func newTestClient(uploadURL string) *Client {
	return &Client{
		uploadURL:  uploadURL,
		jwt:        "test-jwt",
		gateway:    "amber-deliberate-gecko.mypinata.cloud",
		httpClient: http.DefaultClient,
	}
}

func TestUpload_Success(t *testing.T) {
	// The cid has shown up at three different depths of the response; all must unwrap
	envelopes := map[string]string{
		"data.cid":      `{"data":{"cid":"` + testCID + `"}}`,
		"data.data.cid": `{"data":{"data":{"cid":"` + testCID + `"}}}`,
		"top-level cid": `{"cid":"` + testCID + `"}`,
	}

	for name, envelope := range envelopes {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				a.Equal(http.MethodPost, r.Method)
				a.Equal("Bearer test-jwt", r.Header.Get("Authorization"))

				require.NoError(t, r.ParseMultipartForm(1<<20))
				a.Equal("public", r.FormValue("network"))
				file, header, err := r.FormFile("file")
				require.NoError(t, err)
				defer file.Close()
				a.Equal("clawplet-42.png", header.Filename)

				w.Write([]byte(envelope))
			}))
			defer server.Close()

			upload, err := newTestClient(server.URL).Upload(context.Background(), []byte("png bytes"), "image/png", "clawplet-42.png")
			a.NoError(err)
			a.Equal(testCID, upload.CID)
			a.Equal("https://amber-deliberate-gecko.mypinata.cloud/ipfs/"+testCID, upload.GatewayURL)
		})
	}
}

func TestUpload_UpstreamError(t *testing.T) {
	a := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), []byte("png bytes"), "image/png", "x.png")
	a.Equal(ErrUploadFailed{Message: "invalid token"}, err)
}

func TestUpload_StructuredUpstreamError(t *testing.T) {
	a := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"INVALID_FILE"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), []byte("png bytes"), "image/png", "x.png")
	a.Equal(ErrUploadFailed{Message: `{"code":"INVALID_FILE"}`}, err)
}

func TestUpload_StatusOnlyError(t *testing.T) {
	a := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), []byte("png bytes"), "image/png", "x.png")
	a.Equal(ErrUploadFailed{Message: "status 500"}, err)
}

func TestUpload_MissingCID(t *testing.T) {
	a := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Upload(context.Background(), []byte("png bytes"), "image/png", "x.png")
	a.Equal(ErrUploadFailed{Message: "response missing cid"}, err)
}

func TestUpload_RejectsNonImages(t *testing.T) {
	a := assert.New(t)

	_, err := newTestClient("http://unused").Upload(context.Background(), []byte("{}"), "application/json", "x.json")
	a.ErrorContains(err, "unsupported mime type")
}

func TestUpload_RejectsOversizedFiles(t *testing.T) {
	a := assert.New(t)

	_, err := newTestClient("http://unused").Upload(context.Background(), make([]byte, maxUploadBytes+1), "image/png", "x.png")
	a.ErrorContains(err, "file too large")
}

func TestToGatewayURL(t *testing.T) {
	a := assert.New(t)

	a.Equal("https://example.mypinata.cloud/ipfs/"+testCID, ToGatewayURL(testCID, "example.mypinata.cloud"))
	a.Equal("https://example.mypinata.cloud/ipfs/"+testCID, ToGatewayURL(testCID, "https://example.mypinata.cloud/"))
	a.Equal("https://example.mypinata.cloud/ipfs/"+testCID, ToGatewayURL(testCID, "http://example.mypinata.cloud"))
	a.Equal("ipfs://"+testCID, ToGatewayURL(testCID, ""))
	a.Equal("ipfs://"+testCID, ToGatewayURL(testCID, "  "))
}
