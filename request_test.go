// Tests for the transport layer: pagination, limits and error
// classification.

package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient wires a client to a local test server with throttling
// disabled.
func newTestClient(t *testing.T, handler http.Handler) *Notion {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("secret_test", WithBaseURL(srv.URL), WithRateLimit(0))
}

// blockResult composes one raw paragraph result for list fixtures.
func blockResult(text string) string {
	return fmt.Sprintf(`{
		"object": "block",
		"id": "%032x",
		"type": "paragraph",
		"has_children": false,
		"paragraph": {"rich_text": [{"type": "text", "text": {"content": "%s"}, "plain_text": "%s"}]}
	}`, len(text), text, text)
}

// pageResult composes one raw page result with a title property.
func pageResult(title string) string {
	return fmt.Sprintf(`{
		"object": "page",
		"id": "%032x",
		"archived": false,
		"parent": {"type": "database_id", "database_id": "0e9539099cff456d89e44684d6342a22"},
		"properties": {
			"Name": {"id": "title", "type": "title", "title": [
				{"type": "text", "text": {"content": "%s"}, "plain_text": "%s"}
			]}
		}
	}`, len(title), title, title)
}

func listPage(results []string, nextCursor string) string {
	cursor := "null"
	hasMore := "false"
	if nextCursor != "" {
		cursor = `"` + nextCursor + `"`
		hasMore = "true"
	}
	out := `{"object": "list", "results": [`
	for i, r := range results {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return out + `], "has_more": ` + hasMore + `, "next_cursor": ` + cursor + `, "type": "block"}`
}

func TestPagination(t *testing.T) {
	t.Run("drains all pages", func(t *testing.T) {
		var requests []string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.URL.RawQuery)
			switch r.URL.Query().Get("start_cursor") {
			case "":
				fmt.Fprint(w, listPage([]string{blockResult("one"), blockResult("two")}, "c2"))
			case "c2":
				fmt.Fprint(w, listPage([]string{blockResult("three")}, ""))
			default:
				t.Errorf("unexpected cursor %q", r.URL.Query().Get("start_cursor"))
			}
		})
		api := newTestClient(t, handler)
		e, err := api.Blocks().GetBlockChildren(context.Background(), "878d628488d94894ab14f9b872cd6870", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		blocks := e.Blocks()
		if len(blocks) != 3 {
			t.Fatalf("expected 3 merged blocks, got %d", len(blocks))
		}
		if blocks.Simple() != "one\ntwo\nthree" {
			t.Errorf("unexpected order %q", blocks.Simple())
		}
		if len(requests) != 2 {
			t.Errorf("expected 2 requests, got %d", len(requests))
		}
	})

	t.Run("explicit limit takes one page", func(t *testing.T) {
		var count int
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count++
			if got := r.URL.Query().Get("page_size"); got != "2" {
				t.Errorf("expected page_size=2, got %q", got)
			}
			fmt.Fprint(w, listPage([]string{blockResult("one"), blockResult("two")}, "c2"))
		})
		api := newTestClient(t, handler)
		e, err := api.Blocks().GetBlockChildren(context.Background(), "878d628488d94894ab14f9b872cd6870", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(e.Blocks()); got != 2 {
			t.Errorf("expected 2 blocks, got %d", got)
		}
		if count != 1 {
			t.Errorf("a limited call must issue exactly one request, got %d", count)
		}
	})

	t.Run("limit is capped", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("page_size"); got != "100" {
				t.Errorf("expected page_size=100, got %q", got)
			}
			fmt.Fprint(w, listPage([]string{blockResult("one")}, ""))
		})
		api := newTestClient(t, handler)
		if _, err := api.Blocks().GetBlockChildren(context.Background(), "878d628488d94894ab14f9b872cd6870", 101); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("post carries cursor in body", func(t *testing.T) {
		var cursors []any
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			cursors = append(cursors, body["start_cursor"])
			if body["start_cursor"] == nil {
				fmt.Fprint(w, listPage([]string{pageResult("row one")}, "c2"))
				return
			}
			fmt.Fprint(w, listPage([]string{pageResult("row two")}, ""))
		})
		api := newTestClient(t, handler)
		e, err := api.Databases().DBQuery(context.Background(), "0e9539099cff456d89e44684d6342a22", QueryParams{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(e.Pages()); got != 2 {
			t.Fatalf("expected 2 rows, got %d", got)
		}
		if len(cursors) != 2 || cursors[0] != nil || cursors[1] != "c2" {
			t.Errorf("unexpected cursor sequence %v", cursors)
		}
	})
}

func TestErrorClassification(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"object": "error", "status": 404, "code": "object_not_found", "message": "Could not find block."}`)
		})
		api := newTestClient(t, handler)
		_, err := api.Blocks().Get(context.Background(), "878d628488d94894ab14f9b872cd6870")
		if err == nil {
			t.Fatal("expected an error")
		}
		if !errors.Is(err, ErrObjectNotFound) {
			t.Errorf("expected object_not_found, got %v", err)
		}
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if apiErr.Status != 404 || apiErr.Message != "Could not find block." {
			t.Errorf("error must retain status and message, got %+v", apiErr)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"object": "error", "status": 400, "code": "validation_error", "message": "body failed validation"}`)
		})
		api := newTestClient(t, handler)
		_, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation_error, got %v", err)
		}
	})

	t.Run("unknown code falls back by status", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			fmt.Fprint(w, `{"object": "error", "status": 418, "code": "short_and_stout", "message": "no"}`)
		})
		api := newTestClient(t, handler)
		_, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870")
		if !errors.Is(err, ErrClient) {
			t.Errorf("expected the client fallback bucket, got %v", err)
		}
	})

	t.Run("non-json body", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>definitely not an api</html>")
		})
		api := newTestClient(t, handler)
		_, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870")
		var contentErr *ContentError
		if !errors.As(err, &contentErr) {
			t.Fatalf("expected *ContentError, got %v", err)
		}
	})

	t.Run("non-json error body", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "upstream exploded")
		})
		api := newTestClient(t, handler)
		_, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870")
		var contentErr *ContentError
		if !errors.As(err, &contentErr) {
			t.Fatalf("expected *ContentError, got %v", err)
		}
		if contentErr.Status != http.StatusBadGateway {
			t.Errorf("unexpected status %d", contentErr.Status)
		}
	})

	t.Run("malformed list keeps request body for diagnostics", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Valid JSON, but not an object the client can read.
			fmt.Fprint(w, `{"object": 5}`)
		})
		api := newTestClient(t, handler)
		q := QueryParams{Filter: NewFilter("Done", true, "checkbox", "equals")}
		_, err := api.Databases().DBQuery(context.Background(), "0e9539099cff456d89e44684d6342a22", q)
		var contentErr *ContentError
		if !errors.As(err, &contentErr) {
			t.Fatalf("expected *ContentError, got %v", err)
		}
		if !strings.Contains(string(contentErr.RequestBody), "checkbox") {
			t.Errorf("request body missing from error: %q", contentErr.RequestBody)
		}
	})

	t.Run("empty token fails before dispatch", func(t *testing.T) {
		var called bool
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		api := New("", WithBaseURL(srv.URL), WithRateLimit(0))
		_, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
		if called {
			t.Error("no request must be issued without a token")
		}
	})
}

func TestRequestHeaders(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret_test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != APIVersion {
			t.Errorf("unexpected version header %q", got)
		}
		fmt.Fprint(w, pageResult("row one"))
	})
	api := newTestClient(t, handler)
	if _, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetry(t *testing.T) {
	t.Run("retries rate limiting", func(t *testing.T) {
		var count int
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count++
			if count == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"object": "error", "status": 429, "code": "rate_limited", "message": "slow down"}`)
				return
			}
			fmt.Fprint(w, pageResult("row one"))
		})
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		api := New("secret_test", WithBaseURL(srv.URL), WithRateLimit(0), WithRetry(5*time.Second))
		if _, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870"); err != nil {
			t.Fatalf("expected the retry to succeed, got %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 attempts, got %d", count)
		}
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		var count int
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count++
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"object": "error", "status": 404, "code": "object_not_found", "message": "nope"}`)
		})
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		api := New("secret_test", WithBaseURL(srv.URL), WithRateLimit(0), WithRetry(5*time.Second))
		if _, err := api.Pages().Get(context.Background(), "878d628488d94894ab14f9b872cd6870"); !errors.Is(err, ErrObjectNotFound) {
			t.Fatalf("expected object_not_found, got %v", err)
		}
		if count != 1 {
			t.Errorf("client errors must not be retried, got %d attempts", count)
		}
	})
}
