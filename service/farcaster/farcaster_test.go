package farcaster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(bulkUserURL string) *Client {
	return &Client{
		bulkUserURL: bulkUserURL,
		apiKey:      "test-api-key",
		httpClient:  http.DefaultClient,
	}
}

func TestUserByFID_Success(t *testing.T) {
	// The user has shown up at four different places in the response; all must unwrap
	envelopes := map[string]string{
		"result.user":     `{"result":{"user":{"fid":42,"username":"warplet","pfp_url":"https://example.com/pfp.png"}}}`,
		"result.users[0]": `{"result":{"users":[{"fid":42,"username":"warplet","pfp_url":"https://example.com/pfp.png"}]}}`,
		"top-level user":  `{"user":{"fid":42,"username":"warplet","pfp_url":"https://example.com/pfp.png"}}`,
		"users[0]":        `{"users":[{"fid":42,"username":"warplet","pfp_url":"https://example.com/pfp.png"}]}`,
	}

	for name, envelope := range envelopes {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				a.Equal("42", r.URL.Query().Get("fids"))
				a.Equal("test-api-key", r.Header.Get("x-api-key"))
				a.Equal("false", r.Header.Get("x-neynar-experimental"))
				w.Write([]byte(envelope))
			}))
			defer server.Close()

			profile, err := newTestClient(server.URL).UserByFID(context.Background(), 42)
			a.NoError(err)
			a.Equal(persist.FID(42), profile.FID)
			a.Equal("warplet", profile.Username)
			require.NotNil(t, profile.PfpURL)
			a.Equal("https://example.com/pfp.png", *profile.PfpURL)
		})
	}
}

func TestUserByFID_PfpNormalization(t *testing.T) {
	cases := map[string]string{
		"pfp.url":         `{"user":{"fid":42,"username":"warplet","pfp":{"url":"https://example.com/pfp.png"}}}`,
		"pfp_url":         `{"user":{"fid":42,"username":"warplet","pfp_url":"https://example.com/pfp.png"}}`,
		"profile.pfp.url": `{"user":{"fid":42,"username":"warplet","profile":{"pfp":{"url":"https://example.com/pfp.png"}}}}`,
	}

	for name, envelope := range cases {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(envelope))
			}))
			defer server.Close()

			profile, err := newTestClient(server.URL).UserByFID(context.Background(), 42)
			a.NoError(err)
			require.NotNil(t, profile.PfpURL)
			a.Equal("https://example.com/pfp.png", *profile.PfpURL)
		})
	}

	t.Run("tolerates a missing pfp", func(t *testing.T) {
		a := assert.New(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"user":{"fid":42,"username":"warplet"}}`))
		}))
		defer server.Close()

		profile, err := newTestClient(server.URL).UserByFID(context.Background(), 42)
		a.NoError(err)
		a.Nil(profile.PfpURL)
	})
}

func TestUserByFID_NotFound(t *testing.T) {
	a := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).UserByFID(context.Background(), 42)
	a.Equal(ErrUserNotFound{FID: 42}, err)
}

func TestUserByFID_UpstreamFailures(t *testing.T) {
	t.Run("reports a hub error status", func(t *testing.T) {
		a := assert.New(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"rate limited"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).UserByFID(context.Background(), 42)
		a.Equal(ErrBadResponse{Message: "status 429"}, err)
	})

	t.Run("reports an empty envelope", func(t *testing.T) {
		a := assert.New(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"result":{}}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).UserByFID(context.Background(), 42)
		a.Equal(ErrBadResponse{Message: "user payload missing"}, err)
	})

	t.Run("reports a malformed body", func(t *testing.T) {
		a := assert.New(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html></html>`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).UserByFID(context.Background(), 42)
		a.Equal(ErrBadResponse{Message: "malformed user payload"}, err)
	})
}
