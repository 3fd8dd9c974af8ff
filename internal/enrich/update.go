package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultGitHubBaseURL = "https://api.github.com"

// releaseNotesLimit caps how much of the release body is surfaced.
const releaseNotesLimit = 300

// UpdateInfo describes an available newer release.
type UpdateInfo struct {
	LatestVersion string `json:"latestVersion"` // e.g. "v1.2.0"
	DownloadURL   string `json:"downloadUrl"`
	ReleaseNotes  string `json:"releaseNotes"`
}

// UpdateChecker queries the GitHub releases API for a newer build. The public
// API allows 60 unauthenticated requests per hour; we make at most one per
// process start.
type UpdateChecker struct {
	baseURL        string
	owner          string
	repo           string
	currentVersion string
	client         *http.Client
	logger         *logrus.Logger
}

// NewUpdateChecker creates a checker comparing against currentVersion
// (with or without a leading "v").
func NewUpdateChecker(owner, repo, currentVersion string, logger *logrus.Logger) *UpdateChecker {
	return newUpdateChecker(defaultGitHubBaseURL, owner, repo, currentVersion, logger)
}

func newUpdateChecker(baseURL, owner, repo, currentVersion string, logger *logrus.Logger) *UpdateChecker {
	return &UpdateChecker{
		baseURL:        baseURL,
		owner:          owner,
		repo:           repo,
		currentVersion: currentVersion,
		client:         &http.Client{Timeout: 6 * time.Second},
		logger:         logger,
	}
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	Body    string `json:"body"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Check returns update details when a strictly newer release with a package
// asset exists, nil otherwise. All failures (offline, missing repo, bad JSON)
// are silent: an update prompt is never worth an error state.
func (u *UpdateChecker) Check(ctx context.Context) *UpdateInfo {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", u.baseURL, u.owner, u.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.WithError(err).Debug("Update check failed")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil
	}

	latest := strings.TrimSpace(release.TagName)
	if latest == "" || !isNewerVersion(latest, u.currentVersion) {
		return nil
	}

	var downloadURL string
	for _, asset := range release.Assets {
		if strings.HasSuffix(asset.Name, ".apk") {
			downloadURL = asset.BrowserDownloadURL
			break
		}
	}
	if downloadURL == "" {
		return nil
	}

	notes := release.Body
	if len(notes) > releaseNotesLimit {
		notes = notes[:releaseNotesLimit]
	}

	return &UpdateInfo{
		LatestVersion: latest,
		DownloadURL:   downloadURL,
		ReleaseNotes:  notes,
	}
}

// isNewerVersion reports whether latest is a strictly newer semantic version
// than current. Either may carry a leading "v". Non-numeric segments count
// as zero.
func isNewerVersion(latest, current string) bool {
	lParts := versionParts(latest)
	cParts := versionParts(current)

	n := len(lParts)
	if len(cParts) > n {
		n = len(cParts)
	}
	for i := 0; i < n; i++ {
		l, c := 0, 0
		if i < len(lParts) {
			l = lParts[i]
		}
		if i < len(cParts) {
			c = cParts[i]
		}
		if l > c {
			return true
		}
		if l < c {
			return false
		}
	}
	return false
}

func versionParts(v string) []int {
	v = strings.TrimSpace(strings.TrimLeft(v, "vV"))
	var parts []int
	for _, p := range strings.Split(v, ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		parts = append(parts, n)
	}
	return parts
}
