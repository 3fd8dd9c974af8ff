package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUpdateCheck(t *testing.T) {
	release := `{
		"tag_name": "v2.0.0",
		"body": "Bug fixes and a new equalizer.",
		"assets": [
			{"name": "checksums.txt", "browser_download_url": "https://dl.example/checksums.txt"},
			{"name": "smart-player.apk", "browser_download_url": "https://dl.example/smart-player.apk"}
		]
	}`

	t.Run("NewerVersionFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/repos/owner/repo/releases/latest" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(release))
		}))
		defer server.Close()

		u := newUpdateChecker(server.URL, "owner", "repo", "1.1.0", testLogger())
		info := u.Check(context.Background())
		if info == nil {
			t.Fatal("Expected update info")
		}
		if info.LatestVersion != "v2.0.0" {
			t.Errorf("Expected v2.0.0, got %s", info.LatestVersion)
		}
		if info.DownloadURL != "https://dl.example/smart-player.apk" {
			t.Errorf("Expected the apk asset, got %s", info.DownloadURL)
		}
	})

	t.Run("SameVersionIsNil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(release))
		}))
		defer server.Close()

		u := newUpdateChecker(server.URL, "owner", "repo", "2.0.0", testLogger())
		if info := u.Check(context.Background()); info != nil {
			t.Errorf("Expected nil for up-to-date version, got %+v", info)
		}
	})

	t.Run("NoPackageAssetIsNil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"tag_name":"v9.0.0","body":"","assets":[]}`))
		}))
		defer server.Close()

		u := newUpdateChecker(server.URL, "owner", "repo", "1.0.0", testLogger())
		if info := u.Check(context.Background()); info != nil {
			t.Errorf("Expected nil with no apk asset, got %+v", info)
		}
	})

	t.Run("ServerErrorIsSilent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		u := newUpdateChecker(server.URL, "owner", "repo", "1.0.0", testLogger())
		if info := u.Check(context.Background()); info != nil {
			t.Errorf("Expected nil on server error, got %+v", info)
		}
	})

	t.Run("LongNotesTruncated", func(t *testing.T) {
		long := strings.Repeat("x", 1000)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"tag_name": "v3.0.0",
				"body": "` + long + `",
				"assets": [{"name": "app.apk", "browser_download_url": "https://dl.example/app.apk"}]
			}`))
		}))
		defer server.Close()

		u := newUpdateChecker(server.URL, "owner", "repo", "1.0.0", testLogger())
		info := u.Check(context.Background())
		if info == nil {
			t.Fatal("Expected update info")
		}
		if len(info.ReleaseNotes) != releaseNotesLimit {
			t.Errorf("Expected notes capped at %d chars, got %d", releaseNotesLimit, len(info.ReleaseNotes))
		}
	})
}

func TestIsNewerVersion(t *testing.T) {
	cases := []struct {
		latest  string
		current string
		want    bool
	}{
		{"v2.0.0", "1.9.9", true},
		{"2.0.0", "v2.0.0", false},
		{"1.0.1", "1.0.0", true},
		{"1.0.0", "1.0.1", false},
		{"1.10.0", "1.9.0", true},
		{"2.0", "1.9.9", true},
		{"1.0", "1.0.0", false},
		{"garbage", "1.0.0", false},
	}
	for _, tc := range cases {
		if got := isNewerVersion(tc.latest, tc.current); got != tc.want {
			t.Errorf("isNewerVersion(%q, %q) = %v, want %v", tc.latest, tc.current, got, tc.want)
		}
	}
}
