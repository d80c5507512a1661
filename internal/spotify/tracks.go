package spotify

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/trackid"
	"golang.org/x/oauth2"
)

type trackResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []Image `json:"images"`
	} `json:"album"`
}

// LookupTrack fetches display metadata for a catalog track using the given
// access token.
func (c *Client) LookupTrack(ctx context.Context, trackID, accessToken string) (*models.Track, error) {
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))

	var resp trackResponse
	if err := c.do(ctx, hc, http.MethodGet, "/v1/tracks/"+url.PathEscape(trackID), nil, &resp); err != nil {
		return nil, err
	}

	artists := make([]string, 0, len(resp.Artists))
	for _, a := range resp.Artists {
		artists = append(artists, a.Name)
	}
	return &models.Track{
		ID:         resp.ID,
		Name:       resp.Name,
		Artist:     strings.Join(artists, ", "),
		ArtworkURL: pickArtwork(resp.Album.Images),
		PreviewURL: resp.PreviewURL,
	}, nil
}

// FindTrack resolves a free-form track reference (link, URI or id) with the
// application's own token.
func (c *Client) FindTrack(ctx context.Context, input string) (*models.Track, error) {
	id, err := trackid.Extract(input)
	if err != nil {
		return nil, err
	}
	tok, err := c.app.Token()
	if err != nil {
		return nil, err
	}
	return c.LookupTrack(ctx, id, tok.AccessToken)
}

// pickArtwork prefers the 300px-high rendition, then the first listed image.
func pickArtwork(images []Image) string {
	for _, img := range images {
		if img.Height == 300 {
			return img.URL
		}
	}
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}
