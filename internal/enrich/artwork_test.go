package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestFetchArtworkURL(t *testing.T) {
	t.Run("UpgradesThumbnail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[
				{"artistName":"Neon City","artworkUrl100":"https://img.example/a/100x100bb.jpg"}
			]}`))
		}))
		defer server.Close()

		f := newArtworkFetcher(server.URL, testLogger())
		got := f.FetchArtworkURL(context.Background(), "Neon City", "Arcade Nights")
		want := "https://img.example/a/600x600bb.jpg"
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("PrefersMatchingArtist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[
				{"artistName":"Tribute Band","artworkUrl100":"https://img.example/tribute/100x100bb.jpg"},
				{"artistName":"Neon City","artworkUrl100":"https://img.example/real/100x100bb.jpg"}
			]}`))
		}))
		defer server.Close()

		f := newArtworkFetcher(server.URL, testLogger())
		got := f.FetchArtworkURL(context.Background(), "Neon City", "Arcade Nights")
		want := "https://img.example/real/600x600bb.jpg"
		if got != want {
			t.Errorf("Expected artist-matching result, got %q", got)
		}
	})

	t.Run("EmptyResults", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":[]}`))
		}))
		defer server.Close()

		f := newArtworkFetcher(server.URL, testLogger())
		if got := f.FetchArtworkURL(context.Background(), "Nobody", "Nothing"); got != "" {
			t.Errorf("Expected empty URL for no results, got %q", got)
		}
	})

	t.Run("FailureIsCachedAsMiss", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		f := newArtworkFetcher(server.URL, testLogger())
		f.FetchArtworkURL(context.Background(), "A", "B")
		f.FetchArtworkURL(context.Background(), "A", "B")

		if calls != 1 {
			t.Errorf("Expected one upstream call for a cached miss, got %d", calls)
		}
	})

	t.Run("HitIsCached", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{"results":[{"artistName":"X","artworkUrl100":"https://img.example/x/100x100bb.jpg"}]}`))
		}))
		defer server.Close()

		f := newArtworkFetcher(server.URL, testLogger())
		first := f.FetchArtworkURL(context.Background(), "X", "Y")
		second := f.FetchArtworkURL(context.Background(), "X", "Y")

		if first != second {
			t.Errorf("Expected identical cached result, got %q then %q", first, second)
		}
		if calls != 1 {
			t.Errorf("Expected one upstream call, got %d", calls)
		}
	})
}
