// Converts block trees to Markdown.

package export

import (
	"fmt"
	"strings"

	"github.com/mdvault/notion"
)

// Markdown renders a flattened block tree (as returned by the recursive
// children traversal, with nesting levels populated) to markdown.
func Markdown(blocks notion.BlockArray) string {
	var sb strings.Builder
	ls := &listState{}
	for _, b := range blocks {
		if md := blockToMarkdown(b, ls); md != "" {
			sb.WriteString(md)
		}
	}
	return sb.String()
}

// listState tracks list context so consecutive list items group into one
// list and numbered items count up.
type listState struct {
	numberedCount int
	inBulleted    bool
	inNumbered    bool
}

// blockToMarkdown converts a single block to markdown, indented by its
// nesting level.
func blockToMarkdown(b *notion.Block, ls *listState) string {
	indent := strings.Repeat("  ", b.Level)

	if b.Type != "bulleted_list_item" {
		ls.inBulleted = false
	}
	if b.Type != "numbered_list_item" {
		ls.inNumbered = false
		ls.numberedCount = 0
	}

	switch b.Type {
	case "paragraph":
		text := b.RichText().Markdown()
		if text == "" {
			return "\n"
		}
		return indent + text + "\n\n"

	case "heading_1":
		return "# " + b.RichText().Markdown() + "\n\n"

	case "heading_2":
		return "## " + b.RichText().Markdown() + "\n\n"

	case "heading_3":
		return "### " + b.RichText().Markdown() + "\n\n"

	case "bulleted_list_item":
		prefix := ""
		if !ls.inBulleted {
			ls.inBulleted = true
			prefix = "\n"
		}
		return prefix + indent + "- " + b.RichText().Markdown() + "\n"

	case "numbered_list_item":
		prefix := ""
		if !ls.inNumbered {
			ls.inNumbered = true
			ls.numberedCount = 0
			prefix = "\n"
		}
		ls.numberedCount++
		return fmt.Sprintf("%s%s%d. %s\n", prefix, indent, ls.numberedCount, b.RichText().Markdown())

	case "to_do":
		box := "[ ]"
		if b.ToDo != nil && b.ToDo.Checked {
			box = "[x]"
		}
		return indent + "- " + box + " " + b.RichText().Markdown() + "\n"

	case "toggle":
		return indent + "**" + b.RichText().Markdown() + "**\n\n"

	case "code":
		lang := ""
		if b.Code != nil {
			lang = b.Code.Language
		}
		if lang == "plain text" {
			lang = ""
		}
		return "```" + lang + "\n" + b.RichText().Simple() + "\n```\n\n"

	case "quote":
		lines := strings.Split(b.RichText().Markdown(), "\n")
		quoted := make([]string, 0, len(lines))
		for _, line := range lines {
			quoted = append(quoted, "> "+line)
		}
		return strings.Join(quoted, "\n") + "\n\n"

	case "callout":
		emoji := ""
		if b.Callout != nil && b.Callout.Icon != nil && b.Callout.Icon.Emoji != "" {
			emoji = b.Callout.Icon.Emoji + " "
		}
		return "> " + emoji + b.RichText().Markdown() + "\n\n"

	case "divider":
		return "---\n\n"

	case "image":
		if b.Image == nil {
			return ""
		}
		caption := b.Image.Caption.Simple()
		if caption == "" {
			caption = "image"
		}
		return fmt.Sprintf("![%s](%s)\n\n", caption, b.Image.URL())

	case "video":
		if b.Video == nil {
			return ""
		}
		return fmt.Sprintf("[Video](%s)\n\n", b.Video.URL())

	case "file":
		if b.File == nil {
			return ""
		}
		return fmt.Sprintf("[File](%s)\n\n", b.File.URL())

	case "pdf":
		if b.PDF == nil {
			return ""
		}
		return fmt.Sprintf("[File](%s)\n\n", b.PDF.URL())

	case "bookmark":
		if b.Bookmark == nil {
			return ""
		}
		caption := b.Bookmark.Caption.Simple()
		if caption == "" {
			caption = b.Bookmark.URL
		}
		return fmt.Sprintf("[%s](%s)\n\n", caption, b.Bookmark.URL)

	case "embed":
		if b.Embed == nil {
			return ""
		}
		return fmt.Sprintf("[Embed](%s)\n\n", b.Embed.URL)

	case "link_preview":
		if b.LinkPreview == nil {
			return ""
		}
		return fmt.Sprintf("[Link](%s)\n\n", b.LinkPreview.URL)

	case "equation":
		if b.Equation == nil {
			return ""
		}
		return "$$\n" + b.Equation.Expression + "\n$$\n\n"

	case "table_of_contents":
		return "[TOC]\n\n"

	case "table_row":
		if b.TableRow == nil {
			return ""
		}
		cells := make([]string, 0, len(b.TableRow.Cells))
		for _, cell := range b.TableRow.Cells {
			cells = append(cells, cell.Markdown())
		}
		return "| " + strings.Join(cells, " | ") + " |\n"

	case "child_page":
		if b.ChildPage == nil {
			return ""
		}
		return fmt.Sprintf("[%s](%s/)\n\n", b.ChildPage.Title, b.ID)

	case "child_database":
		if b.ChildDatabase == nil {
			return ""
		}
		return fmt.Sprintf("[%s](%s/)\n\n", b.ChildDatabase.Title, b.ID)
	}

	// breadcrumb, columns, synced_block wrappers and tables are structural;
	// their children render on their own.
	return ""
}
