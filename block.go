// Block variants and their rendering and serialization rules.

package notion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// File is a file reference. ExpiryTime is set for service-hosted files,
// whose download URL is temporary.
type File struct {
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// Icon is a page, database or callout icon.
type Icon struct {
	Type     string `json:"type"` // "emoji", "external", "file"
	Emoji    string `json:"emoji,omitempty"`
	External *File  `json:"external,omitempty"`
	File     *File  `json:"file,omitempty"`
}

// TextBlock is the payload of plain text-bearing variants (paragraph,
// quote, toggle, list items, template).
type TextBlock struct {
	RichText RichTextArray `json:"rich_text"`
	Color    string        `json:"color,omitempty"`
}

// HeadingBlock is the payload of the heading_1..3 variants.
type HeadingBlock struct {
	RichText     RichTextArray `json:"rich_text"`
	Color        string        `json:"color,omitempty"`
	IsToggleable bool          `json:"is_toggleable,omitempty"`
}

// ToDoBlock is the payload of the to_do variant.
type ToDoBlock struct {
	RichText RichTextArray `json:"rich_text"`
	Checked  bool          `json:"checked"`
	Color    string        `json:"color,omitempty"`
}

// CodeBlock is the payload of the code variant.
type CodeBlock struct {
	RichText RichTextArray `json:"rich_text"`
	Caption  RichTextArray `json:"caption,omitempty"`
	Language string        `json:"language,omitempty"`
}

// CalloutBlock is the payload of the callout variant.
type CalloutBlock struct {
	RichText RichTextArray `json:"rich_text"`
	Icon     *Icon         `json:"icon,omitempty"`
	Color    string        `json:"color,omitempty"`
}

// MediaBlock is the payload of image, video, file, pdf and similar
// file-backed variants.
type MediaBlock struct {
	Type     string        `json:"type,omitempty"` // "file" or "external"
	File     *File         `json:"file,omitempty"`
	External *File         `json:"external,omitempty"`
	Caption  RichTextArray `json:"caption,omitempty"`
}

// URL returns the media source URL, hosted or external.
func (m *MediaBlock) URL() string {
	if m.File != nil {
		return m.File.URL
	}
	if m.External != nil {
		return m.External.URL
	}
	return ""
}

// Expiry returns the expiry of the temporary download URL for
// service-hosted media, nil for external sources.
func (m *MediaBlock) Expiry() *time.Time {
	if m.File != nil {
		return m.File.ExpiryTime
	}
	return nil
}

// BookmarkBlock is the payload of the bookmark variant.
type BookmarkBlock struct {
	URL     string        `json:"url"`
	Caption RichTextArray `json:"caption,omitempty"`
}

// EmbedBlock is the payload of the embed variant.
type EmbedBlock struct {
	URL string `json:"url"`
}

// LinkPreviewBlock is the payload of the link_preview variant.
type LinkPreviewBlock struct {
	URL string `json:"url"`
}

// EquationBlock is the payload of the equation variant.
type EquationBlock struct {
	Expression string `json:"expression"`
}

// SyncedBlockContent is the payload of the synced_block variant.
type SyncedBlockContent struct {
	SyncedFrom *SyncedFrom `json:"synced_from,omitempty"`
}

// SyncedFrom names the origin of a synced block.
type SyncedFrom struct {
	BlockID string `json:"block_id"`
}

// TableBlock is the payload of the table variant.
type TableBlock struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// TableRowBlock is the payload of the table_row variant.
type TableRowBlock struct {
	Cells []RichTextArray `json:"cells"`
}

// ChildPageBlock is the payload of the child_page variant.
type ChildPageBlock struct {
	Title string `json:"title"`
}

// ChildDatabaseBlock is the payload of the child_database variant.
type ChildDatabaseBlock struct {
	Title string `json:"title"`
}

// Block is one node of a page's content tree: a discriminated union keyed
// by Type. Only the payload matching Type is populated.
type Block struct {
	Model
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`
	Archived    bool   `json:"archived"`
	// Level is the 0-based nesting depth, populated only during recursive
	// traversal, never by the API.
	Level int `json:"-"`
	// ChildrenLink addresses this block's child collection. For
	// child_database blocks it points at the database itself, since the
	// block and its embedded database share identity.
	ChildrenLink *LinkTo `json:"-"`
	// ParentLink is set for child_page and child_database blocks only: the
	// owning page or database the block stands for. Nil for ordinary
	// blocks.
	ParentLink *LinkTo `json:"-"`

	Paragraph        *TextBlock          `json:"paragraph,omitempty"`
	Heading1         *HeadingBlock       `json:"heading_1,omitempty"`
	Heading2         *HeadingBlock       `json:"heading_2,omitempty"`
	Heading3         *HeadingBlock       `json:"heading_3,omitempty"`
	Callout          *CalloutBlock       `json:"callout,omitempty"`
	Quote            *TextBlock          `json:"quote,omitempty"`
	BulletedListItem *TextBlock          `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock          `json:"numbered_list_item,omitempty"`
	ToDo             *ToDoBlock          `json:"to_do,omitempty"`
	Toggle           *TextBlock          `json:"toggle,omitempty"`
	Code             *CodeBlock          `json:"code,omitempty"`
	Template         *TextBlock          `json:"template,omitempty"`
	ChildPage        *ChildPageBlock     `json:"child_page,omitempty"`
	ChildDatabase    *ChildDatabaseBlock `json:"child_database,omitempty"`
	Embed            *EmbedBlock         `json:"embed,omitempty"`
	Image            *MediaBlock         `json:"image,omitempty"`
	Video            *MediaBlock         `json:"video,omitempty"`
	File             *MediaBlock         `json:"file,omitempty"`
	PDF              *MediaBlock         `json:"pdf,omitempty"`
	Bookmark         *BookmarkBlock      `json:"bookmark,omitempty"`
	LinkPreview      *LinkPreviewBlock   `json:"link_preview,omitempty"`
	Equation         *EquationBlock      `json:"equation,omitempty"`
	Divider          *struct{}           `json:"divider,omitempty"`
	TableOfContents  *struct{}           `json:"table_of_contents,omitempty"`
	Breadcrumb       *struct{}           `json:"breadcrumb,omitempty"`
	ColumnList       *struct{}           `json:"column_list,omitempty"`
	Column           *struct{}           `json:"column,omitempty"`
	SyncedBlock      *SyncedBlockContent `json:"synced_block,omitempty"`
	Table            *TableBlock         `json:"table,omitempty"`
	TableRow         *TableRowBlock      `json:"table_row,omitempty"`
}

// UnmarshalJSON decodes the block and derives its children and parent
// references.
func (b *Block) UnmarshalJSON(data []byte) error {
	type block Block
	var v block
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Block(v)
	b.retain(data)
	b.deriveLinks()
	return nil
}

// deriveLinks computes ChildrenLink and ParentLink from the block type.
func (b *Block) deriveLinks() {
	switch b.Type {
	case "child_page":
		b.ChildrenLink = LinkToChildren(b)
		b.ParentLink = NewLinkTo("page", b.ID)
	case "child_database":
		b.ChildrenLink = NewLinkTo("database", b.ID)
		b.ParentLink = NewLinkTo("database", b.ID)
	default:
		b.ChildrenLink = LinkToChildren(b)
	}
}

// textPayload returns the variant's rich text payload for text-bearing
// types, nil otherwise.
func (b *Block) textPayload() *RichTextArray {
	switch b.Type {
	case "paragraph":
		if b.Paragraph != nil {
			return &b.Paragraph.RichText
		}
	case "heading_1":
		if b.Heading1 != nil {
			return &b.Heading1.RichText
		}
	case "heading_2":
		if b.Heading2 != nil {
			return &b.Heading2.RichText
		}
	case "heading_3":
		if b.Heading3 != nil {
			return &b.Heading3.RichText
		}
	case "callout":
		if b.Callout != nil {
			return &b.Callout.RichText
		}
	case "quote":
		if b.Quote != nil {
			return &b.Quote.RichText
		}
	case "bulleted_list_item":
		if b.BulletedListItem != nil {
			return &b.BulletedListItem.RichText
		}
	case "numbered_list_item":
		if b.NumberedListItem != nil {
			return &b.NumberedListItem.RichText
		}
	case "to_do":
		if b.ToDo != nil {
			return &b.ToDo.RichText
		}
	case "toggle":
		if b.Toggle != nil {
			return &b.Toggle.RichText
		}
	case "code":
		if b.Code != nil {
			return &b.Code.RichText
		}
	case "template":
		if b.Template != nil {
			return &b.Template.RichText
		}
	}
	return nil
}

// RichText returns the block's rich text content, nil for variants that
// carry none.
func (b *Block) RichText() RichTextArray {
	if rta := b.textPayload(); rta != nil {
		return *rta
	}
	return nil
}

// IsToggleable reports whether a heading block is toggleable.
func (b *Block) IsToggleable() bool {
	switch b.Type {
	case "heading_1":
		return b.Heading1 != nil && b.Heading1.IsToggleable
	case "heading_2":
		return b.Heading2 != nil && b.Heading2.IsToggleable
	case "heading_3":
		return b.Heading3 != nil && b.Heading3.IsToggleable
	}
	return false
}

// media returns the media payload of a file-backed variant.
func (b *Block) media() *MediaBlock {
	switch b.Type {
	case "image":
		return b.Image
	case "video":
		return b.Video
	case "file":
		return b.File
	case "pdf":
		return b.PDF
	}
	return nil
}

// Simple returns a flattened, prefix-free plain-text rendering suitable
// for plain-text export.
func (b *Block) Simple() string {
	if rta := b.textPayload(); rta != nil {
		return rta.Simple()
	}
	switch b.Type {
	case "child_page":
		if b.ChildPage != nil {
			return b.ChildPage.Title
		}
	case "child_database":
		if b.ChildDatabase != nil {
			return b.ChildDatabase.Title
		}
	case "image", "video", "file", "pdf":
		if m := b.media(); m != nil {
			if caption := m.Caption.Simple(); caption != "" {
				return caption
			}
			return m.URL()
		}
	case "bookmark":
		if b.Bookmark != nil {
			if caption := b.Bookmark.Caption.Simple(); caption != "" {
				return caption
			}
			return b.Bookmark.URL
		}
	case "embed":
		if b.Embed != nil {
			return b.Embed.URL
		}
	case "link_preview":
		if b.LinkPreview != nil {
			return b.LinkPreview.URL
		}
	case "equation":
		if b.Equation != nil {
			return b.Equation.Expression
		}
	case "table_row":
		if b.TableRow != nil {
			cells := make([]string, 0, len(b.TableRow.Cells))
			for _, c := range b.TableRow.Cells {
				cells = append(cells, c.Simple())
			}
			return strings.Join(cells, " | ")
		}
	case "divider":
		return "---"
	}
	return ""
}

// mediaString renders a media variant as a markdown link, or a bare <url>
// when no caption is set.
func mediaString(caption, url string) string {
	if caption == "" {
		return "<" + url + ">"
	}
	return fmt.Sprintf("[%s](%s)", caption, url)
}

// String renders the block for human-readable dumps, applying the
// variant's markdown-style prefix.
func (b *Block) String() string {
	switch b.Type {
	case "paragraph", "template":
		return b.Simple()
	case "heading_1":
		return "# " + b.Simple()
	case "heading_2":
		return "## " + b.Simple()
	case "heading_3":
		return "### " + b.Simple()
	case "callout", "quote":
		return "| " + b.Simple()
	case "bulleted_list_item", "numbered_list_item":
		return "- " + b.Simple()
	case "to_do":
		box := "[ ] "
		if b.ToDo != nil && b.ToDo.Checked {
			box = "[x] "
		}
		return box + b.Simple()
	case "toggle":
		return "> " + b.Simple()
	case "code":
		lang := ""
		if b.Code != nil {
			lang = b.Code.Language
		}
		return "```" + lang + "\n" + b.Simple() + "\n```"
	case "child_page", "child_database":
		return b.Simple()
	case "image", "video", "file", "pdf":
		if m := b.media(); m != nil {
			return mediaString(m.Caption.Simple(), m.URL())
		}
	case "bookmark":
		if b.Bookmark != nil {
			return mediaString(b.Bookmark.Caption.Simple(), b.Bookmark.URL)
		}
	case "embed":
		if b.Embed != nil {
			return mediaString("", b.Embed.URL)
		}
	case "link_preview":
		if b.LinkPreview != nil {
			return mediaString("", b.LinkPreview.URL)
		}
	case "equation":
		if b.Equation != nil {
			return "$$ " + b.Equation.Expression + " $$"
		}
	case "table_row":
		return "| " + b.Simple() + " |"
	case "divider":
		return "---"
	case "table":
		return "[table]"
	case "table_of_contents":
		return "[table of contents]"
	case "breadcrumb":
		return "[breadcrumb]"
	case "synced_block":
		return "[synced block]"
	case "column_list", "column":
		return ""
	case "unsupported":
		return "[unsupported block]"
	}
	return "[unknown block type " + b.Type + "]"
}

// BlockOption customizes a block composed with NewBlock.
type BlockOption func(*Block)

// WithChecked sets the checked state of a to_do block.
func WithChecked(checked bool) BlockOption {
	return func(b *Block) {
		if b.ToDo != nil {
			b.ToDo.Checked = checked
		}
	}
}

// WithLanguage sets the language of a code block.
func WithLanguage(language string) BlockOption {
	return func(b *Block) {
		if b.Code != nil {
			b.Code.Language = language
		}
	}
}

// WithCaption sets the caption of a code block.
func WithCaption(caption string) BlockOption {
	return func(b *Block) {
		if b.Code != nil {
			b.Code.Caption = NewRichTextArray(caption)
		}
	}
}

// NewBlock composes a minimal block suitable only for serialization in
// create and append requests. Supported types are the text-bearing
// variants; typ defaults to "paragraph" when empty, and a block of any
// other type carries no payload and serializes to nil.
func NewBlock(text string, typ string, opts ...BlockOption) *Block {
	if typ == "" {
		typ = "paragraph"
	}
	b := &Block{
		Model: Model{Object: "block"},
		Type:  typ,
	}
	rta := NewRichTextArray(text)
	switch typ {
	case "paragraph":
		b.Paragraph = &TextBlock{RichText: rta}
	case "heading_1":
		b.Heading1 = &HeadingBlock{RichText: rta}
	case "heading_2":
		b.Heading2 = &HeadingBlock{RichText: rta}
	case "heading_3":
		b.Heading3 = &HeadingBlock{RichText: rta}
	case "callout":
		b.Callout = &CalloutBlock{RichText: rta}
	case "quote":
		b.Quote = &TextBlock{RichText: rta}
	case "bulleted_list_item":
		b.BulletedListItem = &TextBlock{RichText: rta}
	case "numbered_list_item":
		b.NumberedListItem = &TextBlock{RichText: rta}
	case "to_do":
		b.ToDo = &ToDoBlock{RichText: rta}
	case "toggle":
		b.Toggle = &TextBlock{RichText: rta}
	case "code":
		b.Code = &CodeBlock{RichText: rta}
	case "template":
		b.Template = &TextBlock{RichText: rta}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// payload serializes the mutable sub-fields of a writable variant. Only
// the whitelisted fields (rich text, checked, language, caption) are
// emitted; type changes are unsupported and left for the server to
// reject.
func (b *Block) payload() map[string]any {
	rta := b.textPayload()
	if rta == nil {
		if b.Type == "child_database" && b.ChildDatabase != nil {
			return map[string]any{"title": b.ChildDatabase.Title}
		}
		return nil
	}
	out := map[string]any{"rich_text": rta.Get()}
	switch b.Type {
	case "to_do":
		out["checked"] = b.ToDo.Checked
	case "code":
		if b.Code.Language != "" {
			out["language"] = b.Code.Language
		}
		if len(b.Code.Caption) > 0 {
			out["caption"] = b.Code.Caption.Get()
		}
	}
	return out
}

// Get serializes the block for create and append requests. Structural and
// read-only variants serialize to nil.
func (b *Block) Get() map[string]any {
	payload := b.payload()
	if payload == nil {
		return nil
	}
	return map[string]any{
		"object": "block",
		"type":   b.Type,
		b.Type:   payload,
	}
}
