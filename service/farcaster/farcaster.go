package farcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/clawplet/go-clawplet/util"
)

func init() {
	env.RegisterValidation("NEYNAR_API_KEY", "required")
}

const defaultBulkUserURL = "https://api.neynar.com/v2/farcaster/user/bulk/"

// ErrUserNotFound is returned when no Farcaster user exists for an FID
type ErrUserNotFound struct {
	FID persist.FID
}

func (e ErrUserNotFound) Error() string {
	return fmt.Sprintf("no farcaster user found for fid %s", e.FID)
}

// ErrBadResponse is returned when the hub API errors or responds without a usable user
// payload; callers should treat it as an upstream failure, not a missing user
type ErrBadResponse struct {
	Message string
}

func (e ErrBadResponse) Error() string {
	return fmt.Sprintf("bad response from neynar: %s", e.Message)
}

// Profile is the resolved view of one Farcaster user. PfpURL is null when the user has
// no profile picture in any of the hub's response variants.
type Profile struct {
	FID      persist.FID `json:"fid"`
	Username string      `json:"username"`
	PfpURL   *string     `json:"pfpUrl"`
}

// Client resolves Farcaster users through the Neynar hub API
type Client struct {
	bulkUserURL string
	apiKey      string
	httpClient  *http.Client
}

// NewClient creates a Client from NEYNAR_API_KEY
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		bulkUserURL: defaultBulkUserURL,
		apiKey:      env.GetString("NEYNAR_API_KEY"),
		httpClient:  httpClient,
	}
}

// UserByFID looks up one user via the bulk endpoint and normalizes the response
func (c *Client) UserByFID(pCtx context.Context, pFID persist.FID) (Profile, error) {
	bulkURL := fmt.Sprintf("%s?fids=%s", c.bulkUserURL, url.QueryEscape(pFID.String()))

	req, err := http.NewRequestWithContext(pCtx, http.MethodGet, bulkURL, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-neynar-experimental", "false")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return Profile{}, ErrUserNotFound{FID: pFID}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		logger.For(pCtx).Warnf("neynar error for fid %s: %s", pFID, util.BodyAsError(res))
		return Profile{}, ErrBadResponse{Message: fmt.Sprintf("status %d", res.StatusCode)}
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Profile{}, err
	}

	envelope := userEnvelope{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Profile{}, ErrBadResponse{Message: "malformed user payload"}
	}

	user := envelope.user()
	if user == nil {
		return Profile{}, ErrBadResponse{Message: "user payload missing"}
	}

	return Profile{
		FID:      persist.FID(user.FID),
		Username: user.Username,
		PfpURL:   user.pfpURL(),
	}, nil
}

// userEnvelope tolerates the hub's response variants: the user has been observed at
// result.user, at the top level, and as the first element of a users array at either depth
type userEnvelope struct {
	Result *struct {
		User  *neynarUser  `json:"user"`
		Users []neynarUser `json:"users"`
	} `json:"result"`
	User  *neynarUser  `json:"user"`
	Users []neynarUser `json:"users"`
}

func (e userEnvelope) user() *neynarUser {
	if e.Result != nil {
		if e.Result.User != nil {
			return e.Result.User
		}
		if len(e.Result.Users) > 0 {
			return &e.Result.Users[0]
		}
	}
	if e.User != nil {
		return e.User
	}
	if len(e.Users) > 0 {
		return &e.Users[0]
	}
	return nil
}

type neynarUser struct {
	FID      int64   `json:"fid"`
	Username string  `json:"username"`
	PfpURL   *string `json:"pfp_url"`
	Pfp      *struct {
		URL *string `json:"url"`
	} `json:"pfp"`
	Profile *struct {
		Pfp *struct {
			URL *string `json:"url"`
		} `json:"pfp"`
	} `json:"profile"`
}

// pfpURL normalizes the profile picture across response variants
func (u neynarUser) pfpURL() *string {
	if u.Pfp != nil && u.Pfp.URL != nil {
		return u.Pfp.URL
	}
	if u.PfpURL != nil {
		return u.PfpURL
	}
	if u.Profile != nil && u.Profile.Pfp != nil && u.Profile.Pfp.URL != nil {
		return u.Profile.Pfp.URL
	}
	return nil
}
