package player

import (
	"sort"

	"github.com/vagenralexx/smart-player/internal/catalog"
)

const (
	suggestionLimit     = 10
	suggestionPerArtist = 4
	suggestionArtists   = 3

	// Below this many artist-driven picks the list is padded with random
	// tracks, so a fresh session still gets something to show.
	suggestionBackfillBelow = 4
)

// Suggestions builds a listening list from this session's most-played
// artists: up to four not-recently-played tracks from each of the top three
// artists, shuffled per artist, capped at ten. When artist history is too
// thin the remainder is filled with random catalog tracks.
func (c *Coordinator) Suggestions() []catalog.Track {
	var out []catalog.Track
	c.call(func() { out = c.buildSuggestions() })
	return out
}

// buildSuggestions runs on the mutation loop.
func (c *Coordinator) buildSuggestions() []catalog.Track {
	all := c.catalog.Tracks()
	if len(all) == 0 {
		return nil
	}

	out := make([]catalog.Track, 0, suggestionLimit)
	seen := make(map[int64]bool)

	for _, artist := range topArtists(c.artistPlays, suggestionArtists) {
		var pool []catalog.Track
		for _, t := range all {
			if t.Artist == artist && !c.recents.contains(t.ID) && !seen[t.ID] {
				pool = append(pool, t)
			}
		}
		c.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		if len(pool) > suggestionPerArtist {
			pool = pool[:suggestionPerArtist]
		}
		for _, t := range pool {
			if len(out) >= suggestionLimit {
				return out
			}
			out = append(out, t)
			seen[t.ID] = true
		}
	}

	if len(out) >= suggestionBackfillBelow {
		return out
	}

	var rest []catalog.Track
	for _, t := range all {
		if !seen[t.ID] && !c.recents.contains(t.ID) {
			rest = append(rest, t)
		}
	}
	c.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	for _, t := range rest {
		if len(out) >= suggestionLimit {
			break
		}
		out = append(out, t)
	}
	return out
}

// topArtists returns up to limit artists by descending play count. Equal
// counts order alphabetically so repeated calls agree.
func topArtists(counts map[string]int, limit int) []string {
	artists := make([]string, 0, len(counts))
	for artist := range counts {
		artists = append(artists, artist)
	}
	sort.Slice(artists, func(i, j int) bool {
		if counts[artists[i]] != counts[artists[j]] {
			return counts[artists[i]] > counts[artists[j]]
		}
		return artists[i] < artists[j]
	})
	if len(artists) > limit {
		artists = artists[:limit]
	}
	return artists
}
