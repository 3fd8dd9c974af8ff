package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/vagenralexx/smart-player/internal/cache"
)

const defaultMusicBrainzBaseURL = "https://musicbrainz.org"

// artistInfoCacheSize bounds the artist info cache. MusicBrainz rate-limits
// at 1 req/s; the cache keeps us well under it.
const artistInfoCacheSize = 200

// ArtistInfo is the enrichment payload for one artist.
type ArtistInfo struct {
	Name           string   `json:"name"`
	Country        string   `json:"country,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	Disambiguation string   `json:"disambiguation,omitempty"` // e.g. "American rock band"
}

// ArtistInfoFetcher resolves artist metadata via the MusicBrainz API.
// Free, no authentication; an identifying User-Agent is mandatory.
type ArtistInfoFetcher struct {
	baseURL string
	client  *http.Client
	cache   *cache.Bounded[*ArtistInfo] // nil caches a known miss
	logger  *logrus.Logger
}

// NewArtistInfoFetcher creates a fetcher against the public MusicBrainz API.
func NewArtistInfoFetcher(logger *logrus.Logger) *ArtistInfoFetcher {
	return newArtistInfoFetcher(defaultMusicBrainzBaseURL, logger)
}

func newArtistInfoFetcher(baseURL string, logger *logrus.Logger) *ArtistInfoFetcher {
	return &ArtistInfoFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 6 * time.Second},
		cache:   cache.NewBounded[*ArtistInfo](artistInfoCacheSize),
		logger:  logger,
	}
}

type musicBrainzSearchResponse struct {
	Artists []struct {
		Name           string `json:"name"`
		Country        string `json:"country"`
		Disambiguation string `json:"disambiguation"`
		Tags           []struct {
			Count int    `json:"count"`
			Name  string `json:"name"`
		} `json:"tags"`
	} `json:"artists"`
}

// FetchArtistInfo returns metadata for an artist, or nil when unknown or the
// lookup fails. Misses are cached.
func (f *ArtistInfoFetcher) FetchArtistInfo(ctx context.Context, artistName string) *ArtistInfo {
	if cached, ok := f.cache.Get(artistName); ok {
		return cached
	}

	info, err := f.lookup(ctx, artistName)
	if err != nil {
		f.logger.WithError(err).WithField("artist", artistName).Debug("Artist info lookup failed")
		f.cache.Set(artistName, nil)
		return nil
	}

	f.cache.Set(artistName, info)
	return info
}

func (f *ArtistInfoFetcher) lookup(ctx context.Context, artistName string) (*ArtistInfo, error) {
	query := url.QueryEscape("artist:" + artistName)
	reqURL := fmt.Sprintf("%s/ws/2/artist/?query=%s&limit=1&fmt=json", f.baseURL, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz returned status %d", resp.StatusCode)
	}

	var parsed musicBrainzSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Artists) == 0 {
		return nil, nil
	}

	artist := parsed.Artists[0]
	info := &ArtistInfo{
		Name:           artist.Name,
		Country:        artist.Country,
		Disambiguation: artist.Disambiguation,
	}
	if info.Name == "" {
		info.Name = artistName
	}

	for _, tag := range artist.Tags {
		if len(info.Genres) == 5 {
			break
		}
		if tag.Count > 0 && tag.Name != "" {
			info.Genres = append(info.Genres, capitalize(tag.Name))
		}
	}

	return info, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ClearCache drops all cached artist info.
func (f *ArtistInfoFetcher) ClearCache() {
	f.cache.Clear()
}
