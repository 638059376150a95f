// Package spotify implements the track search provider against the Spotify
// Web API using the client-credentials flow. The game only ever consumes
// search results; playback happens from the preview URLs.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stereoclub/blindtest/internal/gameerr"
	"github.com/stereoclub/blindtest/internal/song"
)

const (
	defaultAPIURL   = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	searchLimit     = 20
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAPIURL overrides the API base URL, used by tests.
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithTokenURL overrides the token endpoint, used by tests.
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

// WithCache installs a search-result cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client talks to the Spotify Web API. It refreshes its client-credentials
// token lazily and caches search results when a Cache is installed.
type Client struct {
	http         *http.Client
	logger       *slog.Logger
	clientID     string
	clientSecret string
	apiURL       string
	tokenURL     string
	cache        Cache
	now          func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func New(clientID, clientSecret string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		clientID:     clientID,
		clientSecret: clientSecret,
		apiURL:       defaultAPIURL,
		tokenURL:     defaultTokenURL,
		cache:        NopCache{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries the provider for tracks matching query. Results may lack a
// preview URL; callers filter through song.FromProviderAll before anything
// reaches a playlist.
func (c *Client) Search(ctx context.Context, query string) ([]song.ProviderTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, gameerr.New(gameerr.Validation, "search query cannot be empty")
	}

	if tracks, ok := c.cache.Get(ctx, query); ok {
		return tracks, nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/search?type=track&limit=%d&q=%s", c.apiURL, searchLimit, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, gameerr.Wrap(gameerr.Network, "building search request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gameerr.Wrap(gameerr.Network, "track search failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, gameerr.New(gameerr.Network,
			fmt.Sprintf("track search returned status %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, gameerr.Wrap(gameerr.Network, "decoding search response", err)
	}

	tracks := make([]song.ProviderTrack, 0, len(body.Tracks.Items))
	for _, item := range body.Tracks.Items {
		tracks = append(tracks, item.toProviderTrack())
	}

	c.cache.Set(ctx, query, tracks)
	c.logger.Debug("track search", "query", query, "results", len(tracks))
	return tracks, nil
}

// accessToken returns a valid bearer token, fetching a new one when the
// cached token is within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", gameerr.Wrap(gameerr.Network, "building token request", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", gameerr.Wrap(gameerr.Network, "token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gameerr.New(gameerr.Network,
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", gameerr.Wrap(gameerr.Network, "decoding token response", err)
	}
	if body.AccessToken == "" {
		return "", gameerr.New(gameerr.Network, "token endpoint returned no token")
	}

	c.token = body.AccessToken
	c.tokenExp = c.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return c.token, nil
}

type searchResponse struct {
	Tracks struct {
		Items []apiTrack `json:"items"`
	} `json:"tracks"`
}

type apiTrack struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	URI        string  `json:"uri"`
	PreviewURL *string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
		Images      []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (t apiTrack) toProviderTrack() song.ProviderTrack {
	pt := song.ProviderTrack{
		ID:    t.ID,
		Name:  t.Name,
		URI:   t.URI,
		Album: t.Album.Name,
	}
	if t.PreviewURL != nil {
		pt.PreviewURL = *t.PreviewURL
	}
	for _, a := range t.Artists {
		pt.Artists = append(pt.Artists, a.Name)
	}
	if len(t.Album.Images) > 0 {
		pt.AlbumCover = t.Album.Images[0].URL
	}
	// release_date is YYYY, YYYY-MM, or YYYY-MM-DD depending on precision.
	if len(t.Album.ReleaseDate) >= 4 {
		if y, err := strconv.Atoi(t.Album.ReleaseDate[:4]); err == nil {
			pt.Year = y
		}
	}
	return pt
}
