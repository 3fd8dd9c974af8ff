// Package enrich provides best-effort network metadata lookups: album
// artwork, artist info and release update checks. Every lookup is
// cache-backed and failure-silent; nothing here is ever awaited by a
// playback-critical path.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vagenralexx/smart-player/internal/cache"
)

// userAgent identifies our requests; MusicBrainz requires it and iTunes
// appreciates it.
const userAgent = "smart-player/1.1.0 (+https://github.com/vagenralexx/smart-player)"

// artworkCacheSize bounds the artwork URL cache; oldest entries are evicted
// first.
const artworkCacheSize = 300

const defaultITunesBaseURL = "https://itunes.apple.com"

// ArtworkFetcher resolves album artwork URLs via the iTunes Search API.
// Free, no API key required. Results (including misses) are cached.
type ArtworkFetcher struct {
	baseURL string
	client  *http.Client
	cache   *cache.Bounded[string] // "" caches a known miss
	logger  *logrus.Logger
}

// NewArtworkFetcher creates a fetcher against the public iTunes API.
func NewArtworkFetcher(logger *logrus.Logger) *ArtworkFetcher {
	return newArtworkFetcher(defaultITunesBaseURL, logger)
}

func newArtworkFetcher(baseURL string, logger *logrus.Logger) *ArtworkFetcher {
	return &ArtworkFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		cache:   cache.NewBounded[string](artworkCacheSize),
		logger:  logger,
	}
}

type itunesSearchResponse struct {
	Results []struct {
		ArtistName    string `json:"artistName"`
		ArtworkURL100 string `json:"artworkUrl100"`
	} `json:"results"`
}

// FetchArtworkURL returns a 600x600 artwork URL for the album, or "" when
// none is found or the lookup fails. Misses are cached so a dead lookup is
// not retried per request.
func (f *ArtworkFetcher) FetchArtworkURL(ctx context.Context, artist, album string) string {
	key := artist + "|" + album
	if cached, ok := f.cache.Get(key); ok {
		return cached
	}

	artURL, err := f.lookup(ctx, artist, album)
	if err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"artist": artist,
			"album":  album,
		}).Debug("Artwork lookup failed")
		f.cache.Set(key, "")
		return ""
	}

	f.cache.Set(key, artURL)
	return artURL
}

func (f *ArtworkFetcher) lookup(ctx context.Context, artist, album string) (string, error) {
	query := url.QueryEscape(artist + " " + album)
	reqURL := fmt.Sprintf("%s/search?term=%s&entity=album&limit=3", f.baseURL, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("itunes search returned status %d", resp.StatusCode)
	}

	var parsed itunesSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Results) == 0 {
		return "", nil
	}

	// Prefer the result whose artist matches closest.
	best := parsed.Results[0]
	for _, r := range parsed.Results {
		if strings.Contains(strings.ToLower(r.ArtistName), strings.ToLower(artist)) {
			best = r
			break
		}
	}
	if best.ArtworkURL100 == "" {
		return "", nil
	}

	// iTunes serves thumbnails; the same path at 600x600 is the full cover.
	return strings.Replace(best.ArtworkURL100, "100x100bb", "600x600bb", 1), nil
}

// ClearCache drops all cached artwork URLs (e.g. on a low-memory signal).
func (f *ArtworkFetcher) ClearCache() {
	f.cache.Clear()
}
