// Writes exported content to the output directory layout.

package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer lays exported content out as one directory per resource id, each
// holding an index.md plus any downloaded assets.
type Writer struct {
	OutputDir string
}

// NewWriter creates a writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{OutputDir: outputDir}
}

// EnsureOutputDir creates the output directory if it doesn't exist.
func (w *Writer) EnsureOutputDir() error {
	return os.MkdirAll(w.OutputDir, 0o755)
}

// pagePath returns the directory for one exported resource.
func (w *Writer) pagePath(id string) string {
	return filepath.Join(w.OutputDir, id)
}

// WriteMarkdown writes {outputDir}/{id}/index.md with YAML front matter.
func (w *Writer) WriteMarkdown(id, title, mdContent string) error {
	dir := w.pagePath(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}
	md := fmt.Sprintf("---\ntitle: %q\n---\n\n%s", title, mdContent)
	path := filepath.Join(dir, "index.md")
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
