package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeSource struct {
	tracks []Track
	err    error
}

func (f *fakeSource) Tracks(ctx context.Context) ([]Track, error) {
	return f.tracks, f.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func sampleTracks() []Track {
	return []Track{
		{ID: 1, Title: "Midnight Drive", Artist: "Neon City", Album: "Arcade Nights", DurationMs: 215_000},
		{ID: 2, Title: "Sunrise", Artist: "Dawn Patrol", Album: "First Light", DurationMs: 187_000},
		{ID: 3, Title: "City Lights", Artist: "Neon City", Album: "Arcade Nights", DurationMs: 240_000},
	}
}

func TestCatalog(t *testing.T) {
	source := &fakeSource{tracks: sampleTracks()}
	cat := New(source, testLogger())

	if err := cat.Refresh(context.Background()); err != nil {
		t.Fatalf("Failed to refresh catalog: %v", err)
	}

	t.Run("ByID", func(t *testing.T) {
		track, ok := cat.ByID(2)
		if !ok {
			t.Fatal("Expected track 2 to resolve")
		}
		if track.Title != "Sunrise" {
			t.Errorf("Expected Sunrise, got %s", track.Title)
		}

		if _, ok := cat.ByID(999); ok {
			t.Error("Expected unknown id to miss")
		}
	})

	t.Run("SearchIsCaseInsensitive", func(t *testing.T) {
		results := cat.Search("neon")
		if len(results) != 2 {
			t.Fatalf("Expected 2 results for 'neon', got %d", len(results))
		}

		results = cat.Search("ARCADE")
		if len(results) != 2 {
			t.Errorf("Expected album match to be case-insensitive, got %d results", len(results))
		}
	})

	t.Run("BlankSearchReturnsAll", func(t *testing.T) {
		results := cat.Search("   ")
		if len(results) != 3 {
			t.Errorf("Expected full snapshot for blank query, got %d", len(results))
		}
	})

	t.Run("FailedRefreshKeepsSnapshot", func(t *testing.T) {
		source.err = errors.New("disk unplugged")
		if err := cat.Refresh(context.Background()); err == nil {
			t.Fatal("Expected refresh error")
		}
		source.err = nil

		if cat.Len() != 3 {
			t.Errorf("Expected previous snapshot to survive, got %d tracks", cat.Len())
		}
	})

	t.Run("TracksReturnsACopy", func(t *testing.T) {
		tracks := cat.Tracks()
		tracks[0].Title = "Mutated"

		fresh, _ := cat.ByID(tracks[0].ID)
		if fresh.Title == "Mutated" {
			t.Error("Expected snapshot to be isolated from caller mutation")
		}
	})
}

func TestTrackID(t *testing.T) {
	t.Run("StableAcrossCalls", func(t *testing.T) {
		a := TrackID("/music/song.mp3")
		b := TrackID("/music/song.mp3")
		if a != b {
			t.Errorf("Expected stable id, got %d and %d", a, b)
		}
	})

	t.Run("AlwaysPositive", func(t *testing.T) {
		for _, uri := range []string{"/a.mp3", "/b.flac", "/deep/nested/track.wav", ""} {
			if id := TrackID(uri); id < 0 {
				t.Errorf("Expected positive id for %q, got %d", uri, id)
			}
		}
	})

	t.Run("DistinctPaths", func(t *testing.T) {
		if TrackID("/one.mp3") == TrackID("/two.mp3") {
			t.Error("Expected different paths to yield different ids")
		}
	})
}

func TestNormalization(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", UnknownArtist},
		{"<unknown>", UnknownArtist},
		{"Real Artist", "Real Artist"},
	}
	for _, tc := range cases {
		if got := normalizeArtist(tc.in); got != tc.want {
			t.Errorf("normalizeArtist(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := normalizeAlbum("<unknown>"); got != UnknownAlbum {
		t.Errorf("normalizeAlbum(<unknown>) = %q, want %q", got, UnknownAlbum)
	}
}

func TestDurationFormatted(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{59_000, "0:59"},
		{60_000, "1:00"},
		{215_000, "3:35"},
		{3_600_000, "60:00"},
	}
	for _, tc := range cases {
		track := Track{DurationMs: tc.ms}
		if got := track.DurationFormatted(); got != tc.want {
			t.Errorf("DurationFormatted(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}
