// Spotify API implementation of [Gateway]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/psync/internal/models"
	"github.com/desertthunder/psync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// trackPageSize is Spotify's hard cap for add/replace/remove track calls.
	trackPageSize = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// spotifyPlaylist is the playlist object subset the gateway consumes.
type spotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// spotifyTrackPage is one page of a playlist's track listing.
type spotifyTrackPage struct {
	Items []struct {
		Track spotifyTrack `json:"track"`
	} `json:"items"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

// spotifyTrack is the track object subset the gateway consumes.
type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	DurationMS int `json:"duration_ms"`
}

// toDTO converts a Spotify track object to the shared track DTO.
func (t spotifyTrack) toDTO() models.Track {
	dto := models.Track{
		ExternalID:      t.ID,
		Title:           t.Name,
		Album:           t.Album.Name,
		DurationSeconds: t.DurationMS / 1000,
	}
	if len(t.Artists) > 0 {
		dto.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		dto.ImageRef = t.Album.Images[0].URL
	}
	return dto
}

// SpotifyGateway implements [Gateway] against the Spotify Web API.
//
// Requests are paced through a shared [rate.Limiter] and carry a per-request
// timeout. The gateway holds no token state; credentials are threaded through
// every call.
type SpotifyGateway struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// SpotifyGatewayOpts contains configuration options for creating a SpotifyGateway.
type SpotifyGatewayOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64
	Timeout    time.Duration
}

// NewSpotifyGateway creates a new Spotify gateway.
func NewSpotifyGateway(opts SpotifyGatewayOpts) *SpotifyGateway {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &SpotifyGateway{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		timeout:    opts.Timeout,
	}
}

// NewOAuthConfig builds the OAuth2 config for Spotify's authorization code flow.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
			"ugc-image-upload",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

func (g *SpotifyGateway) Name() string {
	return "Spotify"
}

// classifyStatus maps an HTTP status to the gateway error taxonomy.
//
// 4xx statuses are terminal with a reason code, 5xx are retryable. The
// gateway never retries; retry policy belongs to the caller.
func classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return shared.ErrRemoteNotFound
	case status == http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrForbidden, reasonFromBody(body))
	case status == http.StatusRequestEntityTooLarge:
		return shared.ErrPayloadTooLarge
	case status >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrRetryable, status)
	default:
		return fmt.Errorf("spotify API error: status %d", status)
	}
}

// reasonFromBody extracts the error message from a Spotify error payload.
func reasonFromBody(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return "no reason given"
}

// doRequest performs an authenticated JSON request against the Spotify API.
func (g *SpotifyGateway) doRequest(ctx context.Context, token *oauth2.Token, method, endpoint string, body any, result any) error {
	var reader io.Reader
	contentType := "application/json"

	switch b := body.(type) {
	case nil:
	case []byte:
		// Raw payloads (cover uploads) are sent as-is, base64-encoded JPEG.
		reader = bytes.NewReader(b)
		contentType = "image/jpeg"
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	return g.send(ctx, token, method, endpoint, reader, contentType, result)
}

// send executes the HTTP exchange with rate limiting, timeout, and status classification.
func (g *SpotifyGateway) send(ctx context.Context, token *oauth2.Token, method, endpoint string, body io.Reader, contentType string, result any) error {
	if token == nil || token.AccessToken == "" {
		return shared.ErrUnauthorized
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCancelled, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures are retryable, not terminal.
		return fmt.Errorf("%w: %v", shared.ErrRetryable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrRetryable, err)
	}

	if err := classifyStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchSnapshot retrieves the remote playlist with its full ordered track listing.
//
// A 404 is reported as Exists=false with a nil error so the sync engine can
// treat deletion as a state, not a failure. InLibrary is left false; callers
// combine with [SpotifyGateway.IsFollowedBy].
func (g *SpotifyGateway) FetchSnapshot(ctx context.Context, token *oauth2.Token, remoteID string) (*RemoteSnapshot, error) {
	var playlist spotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s?fields=id,name,description,tracks(total)", remoteID)
	if err := g.doRequest(ctx, token, http.MethodGet, endpoint, nil, &playlist); err != nil {
		if err == shared.ErrRemoteNotFound {
			return &RemoteSnapshot{RemoteID: remoteID, Exists: false}, nil
		}
		return nil, err
	}

	snapshot := &RemoteSnapshot{
		RemoteID:    playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		Exists:      true,
	}

	offset := 0
	for {
		var page spotifyTrackPage
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", remoteID, trackPageSize, offset)
		if err := g.doRequest(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.ID != "" {
				snapshot.Tracks = append(snapshot.Tracks, item.Track.toDTO())
				snapshot.TrackExternalIDs = append(snapshot.TrackExternalIDs, item.Track.ID)
			}
		}

		offset += trackPageSize
		if page.Next == nil || len(page.Items) == 0 || offset >= page.Total {
			break
		}
	}

	return snapshot, nil
}

// CreatePlaylist creates a new remote playlist and returns its id.
func (g *SpotifyGateway) CreatePlaylist(ctx context.Context, token *oauth2.Token, accountID string, meta PlaylistMeta) (string, error) {
	body := map[string]any{
		"name":          meta.Name,
		"description":   meta.Description,
		"public":        meta.Public,
		"collaborative": meta.Collaborative,
	}

	var created struct {
		ID string `json:"id"`
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(accountID))
	if err := g.doRequest(ctx, token, http.MethodPost, endpoint, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("create playlist returned no id")
	}

	return created.ID, nil
}

// UpdateMetadata pushes playlist metadata to the remote.
func (g *SpotifyGateway) UpdateMetadata(ctx context.Context, token *oauth2.Token, remoteID string, meta PlaylistMeta) error {
	body := map[string]any{
		"name":          meta.Name,
		"description":   meta.Description,
		"public":        meta.Public,
		"collaborative": meta.Collaborative,
	}

	endpoint := fmt.Sprintf("/playlists/%s", remoteID)
	return g.doRequest(ctx, token, http.MethodPut, endpoint, body, nil)
}

// ReplaceTracks replaces the remote track list with the given order.
//
// The first page is a PUT that replaces, remaining pages are POST appends, so
// the overall remote order matches the input across page boundaries. A failed
// page is recorded and later pages still run.
func (g *SpotifyGateway) ReplaceTracks(ctx context.Context, token *oauth2.Token, remoteID string, externalIDs []string) (*BatchReport, error) {
	report := &BatchReport{}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", remoteID)

	pages := pageIDs(externalIDs, trackPageSize)
	if len(pages) == 0 {
		// Empty local list still replaces: remote ends up empty.
		pages = [][]string{{}}
	}

	for i, page := range pages {
		method := http.MethodPost
		if i == 0 {
			method = http.MethodPut
		}

		body := map[string]any{"uris": trackURIs(page)}
		report.Pages++

		if err := g.doRequest(ctx, token, method, endpoint, body, nil); err != nil {
			report.Errors = append(report.Errors, BatchError{Page: i, Err: err})
			continue
		}
		report.Applied += len(page)
	}

	return report, nil
}

// RemoveTracks deletes the given tracks from the remote playlist, paged at 100.
func (g *SpotifyGateway) RemoveTracks(ctx context.Context, token *oauth2.Token, remoteID string, externalIDs []string) (*BatchReport, error) {
	report := &BatchReport{}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", remoteID)

	for i, page := range pageIDs(externalIDs, trackPageSize) {
		tracks := make([]map[string]string, len(page))
		for j, id := range page {
			tracks[j] = map[string]string{"uri": trackURI(id)}
		}

		body := map[string]any{"tracks": tracks}
		report.Pages++

		if err := g.doRequest(ctx, token, http.MethodDelete, endpoint, body, nil); err != nil {
			report.Errors = append(report.Errors, BatchError{Page: i, Err: err})
			continue
		}
		report.Applied += len(page)
	}

	return report, nil
}

// IsFollowedBy reports whether the account still follows the playlist.
func (g *SpotifyGateway) IsFollowedBy(ctx context.Context, token *oauth2.Token, remoteID, accountID string) (bool, error) {
	var contains []bool
	endpoint := fmt.Sprintf("/playlists/%s/followers/contains?ids=%s", remoteID, url.QueryEscape(accountID))
	if err := g.doRequest(ctx, token, http.MethodGet, endpoint, nil, &contains); err != nil {
		return false, err
	}
	if len(contains) == 0 {
		return false, nil
	}
	return contains[0], nil
}

// Unfollow removes the playlist from the account's library.
func (g *SpotifyGateway) Unfollow(ctx context.Context, token *oauth2.Token, remoteID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", remoteID)
	return g.doRequest(ctx, token, http.MethodDelete, endpoint, nil, nil)
}

// UploadCoverImage uploads a pre-normalized JPEG as the playlist cover.
//
// Callers are responsible for the byte budget; an oversized payload comes
// back as [shared.ErrPayloadTooLarge].
func (g *SpotifyGateway) UploadCoverImage(ctx context.Context, token *oauth2.Token, remoteID string, image []byte) error {
	encoded := base64.StdEncoding.EncodeToString(image)
	endpoint := fmt.Sprintf("/playlists/%s/images", remoteID)
	return g.send(ctx, token, http.MethodPut, endpoint, strings.NewReader(encoded), "image/jpeg", nil)
}

// CurrentAccount returns the account id for the token via the /me identity probe.
func (g *SpotifyGateway) CurrentAccount(ctx context.Context, token *oauth2.Token) (string, error) {
	var user SpotifyUser
	if err := g.doRequest(ctx, token, http.MethodGet, "/me", nil, &user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// pageIDs splits ids into pages of at most size elements, preserving order.
func pageIDs(ids []string, size int) [][]string {
	var pages [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		pages = append(pages, ids[start:end])
	}
	return pages
}

// trackURI converts a track external id to a Spotify URI.
func trackURI(id string) string {
	return "spotify:track:" + id
}

// trackURIs converts a page of external ids to Spotify URIs.
func trackURIs(ids []string) []string {
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = trackURI(id)
	}
	return uris
}
