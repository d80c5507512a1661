// Package spotify talks to the Spotify Web API: catalog lookups with an app
// token, and playlist management on behalf of league admins.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ZJUSCT/MusicLeague/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/spotify"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const defaultAccountsURL = "https://accounts.spotify.com"

// Scopes requested at login. Playlist scopes let the league admin's account
// own round playlists.
var Scopes = []string{
	"user-read-email",
	"playlist-modify-public",
	"playlist-modify-private",
}

// ErrNotLinked is returned when a user has no usable Spotify credentials.
var ErrNotLinked = errors.New("spotify account not linked")

// APIError is a non-2xx response from the Web API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: %d %s", e.Status, e.Message)
}

type Client struct {
	cfg     config.Spotify
	db      *gorm.DB
	oauth   *oauth2.Config
	app     oauth2.TokenSource
	limiter *rate.Limiter
}

func NewClient(cfg config.Spotify, db *gorm.DB) *Client {
	endpoint := spotify.Endpoint
	if base := strings.TrimRight(cfg.AccountsURL, "/"); base != "" && base != defaultAccountsURL {
		endpoint = oauth2.Endpoint{
			AuthURL:  base + "/authorize",
			TokenURL: base + "/api/token",
		}
	}

	app := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     endpoint.TokenURL,
	}

	return &Client{
		cfg: cfg,
		db:  db,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		app:     app.TokenSource(context.Background()),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// OAuth returns the authorization-code config used by the login flow.
func (c *Client) OAuth() *oauth2.Config { return c.oauth }

// do sends one paced request to the Web API and decodes the JSON response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.APIURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error.Message != "" {
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}

// Profile is the subset of GET /v1/me the login flow needs.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Images      []Image `json:"images"`
}

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Me fetches the profile of the account that owns token.
func (c *Client) Me(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, c.oauth.Client(ctx, token), http.MethodGet, "/v1/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
