// Downloads service-hosted assets referenced by exported content.

package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mdvault/notion"
)

// AssetDownloader downloads service-hosted files into a page's export
// directory. Service-hosted download URLs expire, so they must be
// materialized at export time; external URLs are kept as-is. Not safe
// for concurrent use: the exporter runs strictly sequentially.
type AssetDownloader struct {
	client    *http.Client
	outputDir string

	// downloaded maps source URL to the relative local path, so an asset
	// referenced twice is fetched once.
	downloaded map[string]string

	Downloaded int
	Skipped    int
	Errors     int
}

// NewAssetDownloader creates a downloader rooted at the export output
// directory.
func NewAssetDownloader(outputDir string) *AssetDownloader {
	return &AssetDownloader{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		outputDir:  outputDir,
		downloaded: make(map[string]string),
	}
}

// hostedDomains are the domains serving expiring download URLs.
var hostedDomains = []string{
	"s3.us-west-2.amazonaws.com",
	"prod-files-secure.s3.us-west-2.amazonaws.com",
	"secure.notion-static.com",
	"www.notion.so",
}

// isHostedURL reports whether a URL points at a service-hosted asset
// whose link will expire.
func isHostedURL(assetURL string) bool {
	parsed, err := url.Parse(assetURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, domain := range hostedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Download fetches one asset into {outputDir}/{pageID}/ and returns the
// path to reference from markdown: the bare local filename for hosted
// assets, the unchanged URL for external ones.
func (d *AssetDownloader) Download(pageID, assetURL string) (string, error) {
	if assetURL == "" {
		return "", nil
	}
	if !isHostedURL(assetURL) {
		d.Skipped++
		return assetURL, nil
	}

	if local, ok := d.downloaded[assetURL]; ok {
		return local, nil
	}

	parsed, err := url.Parse(assetURL)
	if err != nil {
		d.Errors++
		return "", fmt.Errorf("invalid asset url: %w", err)
	}

	filename := path.Base(parsed.Path)
	if filename == "" || filename == "/" || filename == "." {
		filename = "asset"
	}
	// Hash prefix keeps same-named assets from distinct URLs apart.
	hash := sha256.Sum256([]byte(assetURL))
	filename = hex.EncodeToString(hash[:8]) + "-" + filename

	pageDir := filepath.Join(d.outputDir, pageID)
	if err := os.MkdirAll(pageDir, 0o755); err != nil {
		d.Errors++
		return "", fmt.Errorf("failed to create page dir: %w", err)
	}
	localPath := filepath.Join(pageDir, filename)

	resp, err := d.client.Get(assetURL)
	if err != nil {
		d.Errors++
		return "", fmt.Errorf("failed to download asset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		d.Errors++
		return "", fmt.Errorf("asset download failed: status %d", resp.StatusCode)
	}

	f, err := os.Create(localPath)
	if err != nil {
		d.Errors++
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(localPath)
		d.Errors++
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	if err := f.Close(); err != nil {
		d.Errors++
		return "", fmt.Errorf("failed to close asset: %w", err)
	}

	d.downloaded[assetURL] = filename
	d.Downloaded++
	return filename, nil
}

// Localize rewrites the media URLs of every file-backed block in place,
// downloading hosted assets into the page's directory. Blocks whose
// download fails keep their original URL.
func (d *AssetDownloader) Localize(pageID string, blocks notion.BlockArray) error {
	var firstErr error
	for _, b := range blocks {
		var media *notion.MediaBlock
		switch b.Type {
		case "image":
			media = b.Image
		case "video":
			media = b.Video
		case "file":
			media = b.File
		case "pdf":
			media = b.PDF
		default:
			continue
		}
		if media == nil || media.File == nil {
			continue
		}
		local, err := d.Download(pageID, media.File.URL)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if local != "" {
			media.File.URL = local
			media.File.ExpiryTime = nil
		}
	}
	return firstErr
}
