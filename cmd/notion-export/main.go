// Package main is the entry point for the notion-export CLI tool.
//
// notion-export renders Notion pages and databases, selected by a YAML
// manifest or by id flags, into a markdown directory tree.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/mdvault/notion"
	"github.com/mdvault/notion/export"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notion-export: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	token := flag.String("token", "", "Notion integration token (required, or set NOTION_TOKEN)")
	manifestPath := flag.String("manifest", "", "Path to a YAML export manifest")
	pageIDs := flag.String("page", "", "Comma-separated page IDs to export")
	databaseIDs := flag.String("database", "", "Comma-separated database IDs to export")
	outputDir := flag.String("output", "./export", "Output directory")
	maxDepth := flag.Int("max-depth", -1, "Max nesting depth for blocks (-1=default)")
	subpages := flag.Bool("subpages", false, "Descend into sub-pages")
	assets := flag.Bool("assets", true, "Download service-hosted files next to each page")
	retry := flag.Duration("retry", 0, "Retry transient API failures for up to this long (0=off)")
	verbose := flag.Bool("v", false, "Log every API request")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *token == "" {
		*token = os.Getenv("NOTION_TOKEN")
	}
	if *token == "" {
		return errors.New("--token or NOTION_TOKEN environment variable is required")
	}

	manifest, err := buildManifest(*manifestPath, *pageIDs, *databaseIDs, *maxDepth, *subpages)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	if *verbose {
		ll.Set(slog.LevelDebug)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))

	opts := []notion.Option{notion.WithLogger(logger)}
	if *retry > 0 {
		opts = append(opts, notion.WithRetry(*retry))
	}
	api := notion.New(*token, opts...)

	exporter := export.New(api, *outputDir, *assets)
	exporter.Progress = &export.CLIProgress{
		Out: os.Stdout,
		Err: os.Stderr,
	}

	stats, err := exporter.Run(ctx, manifest)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("\nOutput: %s/\n", *outputDir)

	if stats.Errors > 0 {
		return fmt.Errorf("%d errors occurred during export", stats.Errors)
	}
	return nil
}

// buildManifest loads the manifest file or synthesizes one from the id
// flags.
func buildManifest(path, pageIDs, databaseIDs string, maxDepth int, subpages bool) (*export.Manifest, error) {
	if path != "" {
		if pageIDs != "" || databaseIDs != "" {
			return nil, errors.New("--manifest and --page/--database are mutually exclusive")
		}
		return export.ParseManifest(path)
	}

	m := &export.Manifest{Version: 1}
	for _, id := range splitIDs(pageIDs) {
		pc := export.PageConfig{ID: id, Subpages: subpages}
		if maxDepth >= 0 {
			depth := maxDepth
			pc.MaxDepth = &depth
		}
		m.Pages = append(m.Pages, pc)
	}
	for _, id := range splitIDs(databaseIDs) {
		m.Databases = append(m.Databases, export.DatabaseConfig{ID: id})
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// splitIDs parses a comma-separated id list.
func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
