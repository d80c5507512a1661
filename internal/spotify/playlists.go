package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// savingTokenSource writes every newly issued token back to the user row so
// rotated refresh tokens survive restarts.
type savingTokenSource struct {
	db     *gorm.DB
	userID string
	base   oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := database.UpdateUserSpotifyTokens(s.db, s.userID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
			zap.S().Warnf("failed to persist refreshed spotify token for user %s: %v", s.userID, err)
		}
	}
	return tok, nil
}

// TokenSource returns a refreshing token source for the user's stored
// credentials.
func (c *Client) TokenSource(ctx context.Context, user *models.User) (oauth2.TokenSource, error) {
	if user.SpotifyRefreshToken == "" && user.SpotifyAccessToken == "" {
		return nil, ErrNotLinked
	}

	stored := &oauth2.Token{
		AccessToken:  user.SpotifyAccessToken,
		RefreshToken: user.SpotifyRefreshToken,
		TokenType:    "Bearer",
		// unknown expiry forces a refresh on first use
		Expiry: time.Now().Add(-time.Minute),
	}
	if user.SpotifyTokenExpiry != nil {
		stored.Expiry = *user.SpotifyTokenExpiry
	}

	return &savingTokenSource{
		db:     c.db.WithContext(ctx),
		userID: user.ID,
		base:   c.oauth.TokenSource(ctx, stored),
		last:   user.SpotifyAccessToken,
	}, nil
}

// leagueAdmin returns the league's admin, loading it when not preloaded.
func (c *Client) leagueAdmin(ctx context.Context, league *models.League) (*models.User, error) {
	if league.Admin.ID != "" {
		return &league.Admin, nil
	}
	return database.GetUserByID(c.db.WithContext(ctx), league.AdminID)
}

func (c *Client) userClient(ctx context.Context, user *models.User) (*http.Client, error) {
	ts, err := c.TokenSource(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("league admin: %w", err)
	}
	return oauth2.NewClient(ctx, ts), nil
}

// PlaylistName is "<league>: <theme>", or "<league>: Round N" without a theme.
func PlaylistName(league *models.League, round *models.Round) string {
	if round.Theme != "" {
		return league.Name + ": " + round.Theme
	}
	return fmt.Sprintf("%s: Round %d", league.Name, round.RoundNumber)
}

// CreatePlaylist creates a private playlist for the round in the league
// admin's account.
func (c *Client) CreatePlaylist(ctx context.Context, league *models.League, round *models.Round) (string, string, error) {
	admin, err := c.leagueAdmin(ctx, league)
	if err != nil {
		return "", "", err
	}
	if admin.SpotifyID == nil || *admin.SpotifyID == "" {
		return "", "", fmt.Errorf("league admin: %w", ErrNotLinked)
	}
	hc, err := c.userClient(ctx, admin)
	if err != nil {
		return "", "", err
	}

	body := map[string]interface{}{
		"name":        PlaylistName(league, round),
		"description": fmt.Sprintf("Round %d - %s", round.RoundNumber, league.Name),
		"public":      false,
	}
	var resp struct {
		ID           string `json:"id"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	}
	path := "/v1/users/" + url.PathEscape(*admin.SpotifyID) + "/playlists"
	if err := c.do(ctx, hc, http.MethodPost, path, body, &resp); err != nil {
		return "", "", err
	}
	return resp.ID, resp.ExternalURLs.Spotify, nil
}

// AddTracks appends catalog tracks to the round's playlist.
func (c *Client) AddTracks(ctx context.Context, league *models.League, round *models.Round, trackIDs []string) error {
	if round.PlaylistID == "" {
		return fmt.Errorf("round %d has no playlist", round.RoundNumber)
	}
	admin, err := c.leagueAdmin(ctx, league)
	if err != nil {
		return err
	}
	hc, err := c.userClient(ctx, admin)
	if err != nil {
		return err
	}

	uris := make([]string, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = "spotify:track:" + id
	}
	path := "/v1/playlists/" + url.PathEscape(round.PlaylistID) + "/tracks"
	return c.do(ctx, hc, http.MethodPost, path, map[string][]string{"uris": uris}, nil)
}
