package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchArtistInfo(t *testing.T) {
	t.Run("GenresFilteredAndCapitalized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"artists":[{
				"name":"Neon City",
				"country":"SE",
				"disambiguation":"synthwave project",
				"tags":[
					{"count":5,"name":"synthwave"},
					{"count":0,"name":"spam tag"},
					{"count":3,"name":"electronic"},
					{"count":2,"name":"retrowave"},
					{"count":2,"name":"instrumental"},
					{"count":1,"name":"dance"},
					{"count":1,"name":"ambient"}
				]
			}]}`))
		}))
		defer server.Close()

		f := newArtistInfoFetcher(server.URL, testLogger())
		info := f.FetchArtistInfo(context.Background(), "Neon City")
		if info == nil {
			t.Fatal("Expected artist info")
		}

		if info.Name != "Neon City" {
			t.Errorf("Expected name Neon City, got %s", info.Name)
		}
		if info.Country != "SE" {
			t.Errorf("Expected country SE, got %s", info.Country)
		}
		if info.Disambiguation != "synthwave project" {
			t.Errorf("Unexpected disambiguation %q", info.Disambiguation)
		}

		want := []string{"Synthwave", "Electronic", "Retrowave", "Instrumental", "Dance"}
		if len(info.Genres) != len(want) {
			t.Fatalf("Expected %d genres, got %v", len(want), info.Genres)
		}
		for i, g := range want {
			if info.Genres[i] != g {
				t.Errorf("Genre %d: expected %s, got %s", i, g, info.Genres[i])
			}
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"artists":[]}`))
		}))
		defer server.Close()

		f := newArtistInfoFetcher(server.URL, testLogger())
		if info := f.FetchArtistInfo(context.Background(), "Nobody"); info != nil {
			t.Errorf("Expected nil for unknown artist, got %+v", info)
		}
	})

	t.Run("FailureIsCached", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		f := newArtistInfoFetcher(server.URL, testLogger())
		f.FetchArtistInfo(context.Background(), "A")
		f.FetchArtistInfo(context.Background(), "A")

		if calls != 1 {
			t.Errorf("Expected one upstream call for cached failure, got %d", calls)
		}
	})
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"rock":    "Rock",
		"Rock":    "Rock",
		"émo":     "Émo",
		"hip hop": "Hip hop",
	}
	for in, want := range cases {
		if got := capitalize(in); got != want {
			t.Errorf("capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
