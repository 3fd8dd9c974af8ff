package player

import (
	"fmt"
	"time"

	"github.com/vagenralexx/smart-player/internal/store"
)

// wrappedTopLimit caps the top-track and top-artist lists in a yearly
// summary.
const wrappedTopLimit = 5

// Wrapped is one year's listening summary.
type Wrapped struct {
	Year          int               `json:"year"`
	TopTracks     []store.TopTrack  `json:"topTracks"`
	TopArtists    []store.TopArtist `json:"topArtists"`
	TotalPlays    int               `json:"totalPlays"`
	HoursListened float64           `json:"hoursListened"`
}

// LoadWrapped aggregates play history for the given calendar year. The range
// is [Jan 1 of year, Jan 1 of year+1) in UTC. Hours are estimated at
// EstimatedMinutesPerPlay per play.
func (c *Coordinator) LoadWrapped(year int) (*Wrapped, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	to := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	topTracks, err := c.store.TopTracksByPlayCount(from, to, wrappedTopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top tracks for %d: %w", year, err)
	}

	topArtists, err := c.store.TopArtistsByPlayCount(from, to, wrappedTopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top artists for %d: %w", year, err)
	}

	total, err := c.store.CountInRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count plays for %d: %w", year, err)
	}

	return &Wrapped{
		Year:          year,
		TopTracks:     topTracks,
		TopArtists:    topArtists,
		TotalPlays:    total,
		HoursListened: float64(total*EstimatedMinutesPerPlay) / 60.0,
	}, nil
}
