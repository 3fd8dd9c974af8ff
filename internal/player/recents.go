package player

import "github.com/vagenralexx/smart-player/internal/catalog"

// recentsLimit caps the recently-played list.
const recentsLimit = 30

// recentsList is a most-recent-first list of distinct tracks. Promoting a
// track that is already present moves it to the front instead of duplicating
// it. Not safe for concurrent use; the coordinator confines it to its
// mutation loop.
type recentsList struct {
	tracks []catalog.Track
}

func newRecentsList() *recentsList {
	return &recentsList{tracks: make([]catalog.Track, 0, recentsLimit)}
}

// promote puts track at the front, removing any earlier occurrence and
// trimming the list to recentsLimit.
func (r *recentsList) promote(track catalog.Track) {
	for i, t := range r.tracks {
		if t.ID == track.ID {
			r.tracks = append(r.tracks[:i], r.tracks[i+1:]...)
			break
		}
	}

	r.tracks = append(r.tracks, catalog.Track{})
	copy(r.tracks[1:], r.tracks)
	r.tracks[0] = track

	if len(r.tracks) > recentsLimit {
		r.tracks = r.tracks[:recentsLimit]
	}
}

// items returns a copy of the list, most recent first.
func (r *recentsList) items() []catalog.Track {
	out := make([]catalog.Track, len(r.tracks))
	copy(out, r.tracks)
	return out
}

// contains reports whether the track id is in the list.
func (r *recentsList) contains(id int64) bool {
	for _, t := range r.tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (r *recentsList) len() int {
	return len(r.tracks)
}
