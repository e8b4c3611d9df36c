// Tests for the export orchestrator.

package export

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdvault/notion"
)

const (
	testPageID = "878d628488d94894ab14f9b872cd6870"
	testDBID   = "0e9539099cff456d89e44684d6342a22"
)

// apiHandler serves a workspace of one page with two blocks and one
// database with one row.
func apiHandler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pages/"+testPageID, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"object": "page", "id": "%s", "archived": false,
			"parent": {"type": "workspace", "workspace": true},
			"properties": {"Name": {"id": "title", "type": "title", "title": [
				{"type": "text", "text": {"content": "Notes"}, "plain_text": "Notes"}
			]}}
		}`, testPageID)
	})
	mux.HandleFunc("/blocks/"+testPageID+"/children", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object": "list", "results": [
			{"object": "block", "id": "22222222-2222-2222-2222-222222222222", "type": "heading_1", "has_children": false,
				"heading_1": {"rich_text": [{"type": "text", "text": {"content": "Intro"}, "plain_text": "Intro"}]}},
			{"object": "block", "id": "33333333-3333-3333-3333-333333333333", "type": "paragraph", "has_children": false,
				"paragraph": {"rich_text": [{"type": "text", "text": {"content": "Some text."}, "plain_text": "Some text."}]}}
		], "has_more": false, "next_cursor": null, "type": "block"}`)
	})
	mux.HandleFunc("/databases/"+testDBID, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"object": "database", "id": "%s",
			"title": [{"type": "text", "text": {"content": "Tasks"}, "plain_text": "Tasks"}],
			"parent": {"type": "workspace", "workspace": true},
			"properties": {
				"Name": {"id": "title", "type": "title", "name": "Name", "title": {}},
				"Done": {"id": "a", "type": "checkbox", "name": "Done", "checkbox": {}}
			}
		}`, testDBID)
	})
	mux.HandleFunc("/databases/"+testDBID+"/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"object": "list", "results": [{
			"object": "page", "id": "44444444-4444-4444-4444-444444444444", "archived": false,
			"parent": {"type": "database_id", "database_id": "%s"},
			"properties": {
				"Name": {"id": "title", "type": "title", "title": [
					{"type": "text", "text": {"content": "task one"}, "plain_text": "task one"}
				]},
				"Done": {"id": "a", "type": "checkbox", "checkbox": true}
			}
		}], "has_more": false, "next_cursor": null, "type": "page_or_database"}`, testDBID)
	})
	return mux
}

func newTestExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	srv := httptest.NewServer(apiHandler(t))
	t.Cleanup(srv.Close)
	api := notion.New("secret_test", notion.WithBaseURL(srv.URL), notion.WithRateLimit(0))
	outDir := t.TempDir()
	return New(api, outDir, false), outDir
}

func TestExporterRun(t *testing.T) {
	x, outDir := newTestExporter(t)
	m, err := ParseManifestBytes([]byte(fmt.Sprintf(
		"version: 1\npages:\n  - id: %s\ndatabases:\n  - id: %s\n", testPageID, testDBID)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := x.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Pages != 1 || stats.Databases != 1 || stats.Rows != 1 || stats.Errors != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	t.Run("page markdown", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(outDir, testPageID, "index.md"))
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		got := string(data)
		if !strings.HasPrefix(got, "---\ntitle: \"Notes\"\n---\n") {
			t.Errorf("expected front matter, got %q", got)
		}
		if !strings.Contains(got, "# Intro\n") || !strings.Contains(got, "Some text.\n") {
			t.Errorf("unexpected body:\n%s", got)
		}
	})

	t.Run("database table", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(outDir, testDBID, "index.md"))
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		got := string(data)
		if !strings.Contains(got, "| Name | Done |") {
			t.Errorf("expected schema-ordered columns:\n%s", got)
		}
		if !strings.Contains(got, "| task one | true |") {
			t.Errorf("expected the row:\n%s", got)
		}
	})
}

func TestExporterSkipsFailedItems(t *testing.T) {
	x, _ := newTestExporter(t)
	m, err := ParseManifestBytes([]byte(fmt.Sprintf(
		"version: 1\npages:\n  - id: %032d\n  - id: %s\n", 9, testPageID)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, err := x.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("item failures must not abort the run, got %v", err)
	}
	if stats.Errors != 1 || stats.Pages != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
