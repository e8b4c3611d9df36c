// Package export renders Notion pages and databases to a markdown
// directory tree: one directory per resource holding an index.md and any
// downloaded assets.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mdvault/notion"
)

// Exporter orchestrates one export run.
type Exporter struct {
	API      *notion.Notion
	Writer   *Writer
	Assets   *AssetDownloader
	Progress ProgressReporter
}

// New creates an exporter writing to outputDir. When downloadAssets is
// set, service-hosted files are materialized next to each page's
// index.md; otherwise their expiring URLs are kept.
func New(api *notion.Notion, outputDir string, downloadAssets bool) *Exporter {
	x := &Exporter{
		API:      api,
		Writer:   NewWriter(outputDir),
		Progress: &NullProgress{},
	}
	if downloadAssets {
		x.Assets = NewAssetDownloader(outputDir)
	}
	return x
}

// Run exports everything the manifest selects. Item-level failures are
// reported and skipped; only setup failures abort the run.
func (x *Exporter) Run(ctx context.Context, m *Manifest) (Stats, error) {
	start := time.Now()
	stats := Stats{}
	if err := x.Writer.EnsureOutputDir(); err != nil {
		return stats, err
	}

	total := len(m.Pages) + len(m.Databases)
	x.Progress.OnStart(total)
	current := 0

	for _, pc := range m.Pages {
		current++
		if err := x.exportPage(ctx, pc, current, &stats); err != nil {
			x.Progress.OnError(err)
			stats.Errors++
		}
	}
	for _, dc := range m.Databases {
		current++
		if err := x.exportDatabase(ctx, dc, current, &stats); err != nil {
			x.Progress.OnError(err)
			stats.Errors++
		}
	}

	if x.Assets != nil {
		stats.Assets = x.Assets.Downloaded
	}
	stats.Duration = time.Since(start)
	x.Progress.OnComplete(stats)
	return stats, nil
}

// exportPage renders one page subtree to {outputDir}/{id}/index.md.
func (x *Exporter) exportPage(ctx context.Context, pc PageConfig, current int, stats *Stats) error {
	e, err := x.API.Pages().Get(ctx, pc.ID)
	if err != nil {
		return fmt.Errorf("page %s: %w", pc.ID, err)
	}
	page := e.Page()
	if page == nil {
		return fmt.Errorf("page %s: not a page", pc.ID)
	}
	title := page.String()
	x.Progress.OnProgress(current, title)

	maxDepth := -1
	if pc.MaxDepth != nil {
		maxDepth = *pc.MaxDepth
	}
	children, err := x.API.Pages().GetBlockChildrenRecursive(ctx, page.ID, maxDepth, pc.Subpages)
	if err != nil {
		return fmt.Errorf("page %s: %w", pc.ID, err)
	}
	blocks := children.Blocks()

	if x.Assets != nil {
		if err := x.Assets.Localize(page.ID, blocks); err != nil {
			x.Progress.OnWarning(fmt.Sprintf("page %s: %v", pc.ID, err))
		}
	}

	if err := x.Writer.WriteMarkdown(page.ID, title, Markdown(blocks)); err != nil {
		return fmt.Errorf("page %s: %w", pc.ID, err)
	}
	stats.Pages++
	return nil
}

// exportDatabase renders one database as a markdown table to
// {outputDir}/{id}/index.md.
func (x *Exporter) exportDatabase(ctx context.Context, dc DatabaseConfig, current int, stats *Stats) error {
	e, err := x.API.Databases().Get(ctx, dc.ID)
	if err != nil {
		return fmt.Errorf("database %s: %w", dc.ID, err)
	}
	db := e.Database()
	if db == nil {
		return fmt.Errorf("database %s: not a database", dc.ID)
	}
	title := db.String()
	x.Progress.OnProgress(current, title)

	rowsEl, err := x.API.Databases().DBQuery(ctx, db.ID, notion.QueryParams{Limit: dc.Limit})
	if err != nil {
		return fmt.Errorf("database %s: %w", dc.ID, err)
	}
	rows := rowsEl.Pages()

	if err := x.Writer.WriteMarkdown(db.ID, title, databaseMarkdown(db, rows)); err != nil {
		return fmt.Errorf("database %s: %w", dc.ID, err)
	}
	stats.Databases++
	stats.Rows += len(rows)
	return nil
}

// databaseMarkdown renders a database's rows as a markdown table, one
// column per schema property in schema order.
func databaseMarkdown(db *notion.Database, rows notion.PageArray) string {
	columns := db.PropertyOrder
	if len(columns) == 0 {
		columns = make([]string, 0, len(db.Properties))
		for name := range db.Properties {
			columns = append(columns, name)
		}
		sort.Strings(columns)
	}
	if len(columns) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	seps := make([]string, len(columns))
	for i := range seps {
		seps[i] = "---"
	}
	sb.WriteString("| " + strings.Join(seps, " | ") + " |\n")
	for _, row := range rows {
		cells := make([]string, 0, len(columns))
		for _, name := range columns {
			if pv, ok := row.Properties[name]; ok {
				cells = append(cells, strings.ReplaceAll(pv.String(), "\n", " "))
			} else {
				cells = append(cells, "")
			}
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}
