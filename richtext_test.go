// Tests for rich text runs and run sequences.

package notion

import (
	"encoding/json"
	"testing"
)

func parseRichTextArray(t *testing.T, raw string) RichTextArray {
	t.Helper()
	var rta RichTextArray
	if err := json.Unmarshal([]byte(raw), &rta); err != nil {
		t.Fatalf("failed to parse rich text: %v", err)
	}
	return rta
}

func TestRichTextArray(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		rta := parseRichTextArray(t, `[
			{"type": "text", "text": {"content": "Hello"}, "plain_text": "Hello"},
			{"type": "text", "text": {"content": "World"}, "plain_text": "World"}
		]`)
		if got := rta.String(); got != "Hello World" {
			t.Errorf("expected %q, got %q", "Hello World", got)
		}
		if got := rta.Simple(); got != "HelloWorld" {
			t.Errorf("expected %q, got %q", "HelloWorld", got)
		}
	})

	t.Run("IsEmpty", func(t *testing.T) {
		if !(RichTextArray{}).IsEmpty() {
			t.Error("empty array must be empty")
		}
		empties := parseRichTextArray(t, `[
			{"type": "text", "text": {"content": ""}, "plain_text": ""},
			{"type": "text", "text": {"content": ""}, "plain_text": ""}
		]`)
		if !empties.IsEmpty() {
			t.Error("array of empty runs must be empty")
		}
		one := parseRichTextArray(t, `[
			{"type": "text", "text": {"content": ""}, "plain_text": ""},
			{"type": "text", "text": {"content": "x"}, "plain_text": "x"}
		]`)
		if one.IsEmpty() {
			t.Error("array with one non-empty run must not be empty")
		}
	})

	t.Run("Concat", func(t *testing.T) {
		a := NewRichTextArray("prefix: ")
		b := NewRichTextArray("content")
		c := a.Concat(b)
		if len(c) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(c))
		}
		if got := c.Simple(); got != "prefix: content" {
			t.Errorf("expected %q, got %q", "prefix: content", got)
		}
		if len(a) != 1 || len(b) != 1 {
			t.Error("concat must not mutate its inputs")
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		href := "https://example.com"
		rta := RichTextArray{
			{Type: "text", PlainText: "bold", Annotations: &Annotations{Bold: true}},
			{Type: "text", PlainText: "link", Href: &href},
		}
		if got := rta.Markdown(); got != "**bold**[link](https://example.com)" {
			t.Errorf("unexpected markdown %q", got)
		}
	})

	t.Run("Get", func(t *testing.T) {
		got := NewRichTextArray("hi").Get()
		if len(got) != 1 {
			t.Fatalf("expected 1 run, got %d", len(got))
		}
		if got[0]["type"] != "text" {
			t.Errorf("expected type text, got %v", got[0]["type"])
		}
		text, ok := got[0]["text"].(*TextContent)
		if !ok || text.Content != "hi" {
			t.Errorf("unexpected text payload %v", got[0]["text"])
		}
		if empty := (RichTextArray{}).Get(); empty == nil || len(empty) != 0 {
			t.Error("empty array must serialize as an empty list, not null")
		}
	})

	t.Run("MentionLinkTo", func(t *testing.T) {
		rta := parseRichTextArray(t, `[{
			"type": "mention",
			"mention": {"type": "page", "page": {"id": "878d6284-88d9-4894-ab14-f9b872cd6870"}},
			"plain_text": "Some page"
		}]`)
		lt := rta[0].Mention.LinkTo()
		if lt == nil {
			t.Fatal("expected a link")
		}
		if lt.ID != "878d628488d94894ab14f9b872cd6870" {
			t.Errorf("unexpected id %q", lt.ID)
		}
		if lt.URI != "pages" {
			t.Errorf("unexpected uri %q", lt.URI)
		}
	})
}
