// Tests for asset downloading.

package export

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdvault/notion"
)

func TestIsHostedURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://prod-files-secure.s3.us-west-2.amazonaws.com/abc/file.png?X-Amz-Expires=3600", true},
		{"https://secure.notion-static.com/abc/file.pdf", true},
		{"https://www.notion.so/images/page-cover/met_canaletto.jpg", true},
		{"https://example.com/image.png", false},
		{"not a url at all ://", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isHostedURL(tc.url); got != tc.want {
			t.Errorf("isHostedURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

// withHostedDomain temporarily treats the test server's host as a hosted
// asset domain.
func withHostedDomain(t *testing.T, rawURL string) {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}
	old := hostedDomains
	hostedDomains = append(append([]string(nil), old...), parsed.Host)
	t.Cleanup(func() { hostedDomains = old })
}

func TestDownload(t *testing.T) {
	t.Run("external urls pass through", func(t *testing.T) {
		d := NewAssetDownloader(t.TempDir())
		got, err := d.Download("page1", "https://example.com/image.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://example.com/image.png" {
			t.Errorf("external urls must be kept, got %q", got)
		}
		if d.Skipped != 1 || d.Downloaded != 0 {
			t.Errorf("unexpected stats %+v", d)
		}
	})

	t.Run("hosted assets are materialized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "pixels")
		}))
		t.Cleanup(srv.Close)
		withHostedDomain(t, srv.URL)

		outDir := t.TempDir()
		d := NewAssetDownloader(outDir)
		got, err := d.Download("page1", srv.URL+"/shot.png?X-Amz-Expires=3600")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(got, "-shot.png") {
			t.Errorf("expected a hash-prefixed local name, got %q", got)
		}
		data, err := os.ReadFile(filepath.Join(outDir, "page1", got))
		if err != nil {
			t.Fatalf("failed to read downloaded asset: %v", err)
		}
		if string(data) != "pixels" {
			t.Errorf("unexpected asset content %q", data)
		}
		if d.Downloaded != 1 {
			t.Errorf("unexpected stats %+v", d)
		}
	})

	t.Run("repeat downloads are cached", func(t *testing.T) {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			fmt.Fprint(w, "pixels")
		}))
		t.Cleanup(srv.Close)
		withHostedDomain(t, srv.URL)

		d := NewAssetDownloader(t.TempDir())
		assetURL := srv.URL + "/shot.png"
		first, err := d.Download("page1", assetURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := d.Download("page1", assetURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Errorf("cached path must match: %q != %q", first, second)
		}
		if hits != 1 {
			t.Errorf("expected 1 fetch, got %d", hits)
		}
		if d.Downloaded != 1 || d.Skipped != 0 || d.Errors != 0 {
			t.Errorf("unexpected stats %+v", d)
		}
	})

	t.Run("failed downloads report an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		t.Cleanup(srv.Close)
		withHostedDomain(t, srv.URL)

		d := NewAssetDownloader(t.TempDir())
		if _, err := d.Download("page1", srv.URL+"/gone.png"); err == nil {
			t.Error("expected an error")
		}
		if d.Errors != 1 {
			t.Errorf("unexpected stats %+v", d)
		}
	})
}

func TestLocalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "pixels")
	}))
	t.Cleanup(srv.Close)
	withHostedDomain(t, srv.URL)

	img := block(t, fmt.Sprintf(`{"object": "block", "id": "x", "type": "image", "image": {
		"type": "file",
		"file": {"url": "%s/shot.png", "expiry_time": "2026-08-30T12:00:00.000Z"},
		"caption": []
	}}`, srv.URL))
	ext := block(t, `{"object": "block", "id": "y", "type": "image", "image": {
		"type": "external", "external": {"url": "https://example.com/a.png"}, "caption": []
	}}`)

	d := NewAssetDownloader(t.TempDir())
	if err := d.Localize("page1", notion.BlockArray{img, ext}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(img.Image.File.URL, "http") {
		t.Errorf("hosted media must be rewritten to a local path, got %q", img.Image.File.URL)
	}
	if img.Image.File.ExpiryTime != nil {
		t.Error("localized media must drop its expiry")
	}
	if ext.Image.External.URL != "https://example.com/a.png" {
		t.Errorf("external media must be untouched, got %q", ext.Image.External.URL)
	}
}
