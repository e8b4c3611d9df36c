// Rich text runs and run sequences.

package notion

import (
	"strings"
)

// TextContent is the payload of a "text" rich text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink attached to a text run.
type Link struct {
	URL string `json:"url"`
}

// Equation is the payload of an "equation" rich text run.
type Equation struct {
	Expression string `json:"expression"`
}

// Annotations is the style bag of a rich text run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// Mention is the secondary payload of a "mention" rich text run: a typed
// reference to a user, page, database or date range.
type Mention struct {
	Type        string       `json:"type"` // "user", "page", "database", "date", "link_preview"
	User        *User        `json:"user,omitempty"`
	Page        *PageRef     `json:"page,omitempty"`
	Database    *DatabaseRef `json:"database,omitempty"`
	Date        *DateValue   `json:"date,omitempty"`
	LinkPreview *LinkPreview `json:"link_preview,omitempty"`
}

// PageRef is a bare reference to a page.
type PageRef struct {
	ID string `json:"id"`
}

// DatabaseRef is a bare reference to a database.
type DatabaseRef struct {
	ID string `json:"id"`
}

// LinkPreview is a link preview mention payload.
type LinkPreview struct {
	URL string `json:"url"`
}

// LinkTo resolves the mention target to a typed reference, or nil for
// date and link_preview mentions which do not address a resource.
func (m *Mention) LinkTo() *LinkTo {
	switch m.Type {
	case "user":
		if m.User != nil {
			return NewLinkTo("user", m.User.ID)
		}
	case "page":
		if m.Page != nil {
			return NewLinkTo("page", m.Page.ID)
		}
	case "database":
		if m.Database != nil {
			return NewLinkTo("database", m.Database.ID)
		}
	}
	return nil
}

// RichText is one styled run of text, the atomic unit of all text-bearing
// content.
type RichText struct {
	Type        string       `json:"type"` // "text", "mention", "equation"
	Text        *TextContent `json:"text,omitempty"`
	Mention     *Mention     `json:"mention,omitempty"`
	Equation    *Equation    `json:"equation,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	PlainText   string       `json:"plain_text"`
	Href        *string      `json:"href,omitempty"`
}

// String returns the run's plain text.
func (rt *RichText) String() string {
	return rt.PlainText
}

// Get serializes the run back to the wire shape accepted by write requests.
func (rt *RichText) Get() map[string]any {
	switch rt.Type {
	case "mention":
		return map[string]any{"type": "mention", "mention": rt.Mention}
	case "equation":
		return map[string]any{"type": "equation", "equation": rt.Equation}
	}
	text := rt.Text
	if text == nil {
		text = &TextContent{Content: rt.PlainText}
	}
	out := map[string]any{"type": "text", "text": text}
	if rt.Annotations != nil {
		out["annotations"] = rt.Annotations
	}
	return out
}

// markdown renders the run with markdown-style annotation markers.
func (rt *RichText) markdown() string {
	text := rt.PlainText
	if a := rt.Annotations; a != nil {
		if a.Code {
			text = "`" + text + "`"
		}
		if a.Bold {
			text = "**" + text + "**"
		}
		if a.Italic {
			text = "_" + text + "_"
		}
		if a.Strikethrough {
			text = "~~" + text + "~~"
		}
	}
	if rt.Href != nil && *rt.Href != "" {
		text = "[" + text + "](" + *rt.Href + ")"
	}
	return text
}

// RichTextArray is an ordered sequence of styled runs.
type RichTextArray []*RichText

// NewRichTextArray builds a single-run array from plain text, suitable for
// composing write requests.
func NewRichTextArray(text string) RichTextArray {
	return RichTextArray{{
		Type:      "text",
		Text:      &TextContent{Content: text},
		PlainText: text,
	}}
}

// String joins the plain text of all runs with spaces.
func (a RichTextArray) String() string {
	parts := make([]string, 0, len(a))
	for _, rt := range a {
		parts = append(parts, rt.PlainText)
	}
	return strings.Join(parts, " ")
}

// Simple returns the concatenated plain text without separators or
// formatting, suitable for plain-text export.
func (a RichTextArray) Simple() string {
	var sb strings.Builder
	for _, rt := range a {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

// Markdown renders all runs with markdown annotation markers applied.
func (a RichTextArray) Markdown() string {
	var sb strings.Builder
	for _, rt := range a {
		sb.WriteString(rt.markdown())
	}
	return sb.String()
}

// IsEmpty reports whether no run carries any text. An array of empty runs
// is empty.
func (a RichTextArray) IsEmpty() bool {
	for _, rt := range a {
		if rt.PlainText != "" {
			return false
		}
	}
	return true
}

// Concat returns a new array holding the runs of a followed by the runs
// of b. Used to build "prefix + content" renderings.
func (a RichTextArray) Concat(b RichTextArray) RichTextArray {
	out := make(RichTextArray, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// Get serializes the array back to the wire shape accepted by write
// requests. An empty array serializes to an empty list, never null.
func (a RichTextArray) Get() []map[string]any {
	out := make([]map[string]any, 0, len(a))
	for _, rt := range a {
		out = append(out, rt.Get())
	}
	return out
}
