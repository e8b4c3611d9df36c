// Base model identity and the addressable resource kinds.

package notion

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeID canonicalizes a resource id to its 32-character form,
// accepting ids with or without hyphen separators. Values that are not
// UUIDs are returned with hyphens stripped; the server is the authority
// on id validity.
func NormalizeID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return hex.EncodeToString(u[:])
	}
	return strings.ReplaceAll(id, "-", "")
}

// Object is implemented by the addressable resource kinds (Page,
// Database, Block, User).
type Object interface {
	ObjectID() string
	ObjectKind() string
	fmt.Stringer
}

// Model carries the identity fields shared by every resource kind. The
// raw source JSON is retained verbatim for debugging and round-trip
// fallback.
type Model struct {
	ID             string          `json:"id"`
	Object         string          `json:"object"`
	CreatedTime    time.Time       `json:"created_time"`
	LastEditedTime time.Time       `json:"last_edited_time"`
	CreatedBy      *User           `json:"created_by,omitempty"`
	LastEditedBy   *User           `json:"last_edited_by,omitempty"`
	Raw            json.RawMessage `json:"-"`
}

// ObjectID returns the normalized resource id.
func (m *Model) ObjectID() string {
	return m.ID
}

// ObjectKind returns the resource kind discriminator.
func (m *Model) ObjectKind() string {
	return m.Object
}

// retain normalizes the id and keeps the source payload.
func (m *Model) retain(data []byte) {
	m.ID = NormalizeID(m.ID)
	m.Raw = append([]byte(nil), data...)
}

// Parent is the wire shape of a parent pointer.
type Parent struct {
	Type       string `json:"type"` // "database_id", "page_id", "block_id", "workspace"
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// User is a Notion user or bot. Lazily-resolvable references
// (created_by, people values) are partial Users carrying only the id.
type User struct {
	Object    string          `json:"object"`
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	Type      string          `json:"type,omitempty"` // "person" or "bot"
	Person    *PersonDetails  `json:"person,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// PersonDetails carries person-specific fields.
type PersonDetails struct {
	Email string `json:"email"`
}

// UnmarshalJSON normalizes the id and retains the source payload.
func (u *User) UnmarshalJSON(data []byte) error {
	type user User
	var v user
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = User(v)
	u.ID = NormalizeID(u.ID)
	u.Raw = append([]byte(nil), data...)
	return nil
}

// ObjectID returns the normalized user id.
func (u *User) ObjectID() string { return u.ID }

// ObjectKind returns "user".
func (u *User) ObjectKind() string { return "user" }

// String returns the user's display name.
func (u *User) String() string { return u.Name }

// Get serializes the user as the minimal stub accepted by write requests.
func (u *User) Get() map[string]any {
	return map[string]any{"object": "user", "id": u.ID}
}

// Database is a Notion database: a titled, parented schema of named
// properties.
type Database struct {
	Model
	Title      RichTextArray        `json:"title"`
	Properties map[string]*Property `json:"properties"`
	// PropertyOrder lists property names in source order; the wire format
	// is an object and Go maps do not preserve insertion order.
	PropertyOrder []string        `json:"-"`
	Parent        *LinkTo         `json:"-"`
	Cover         json.RawMessage `json:"cover,omitempty"`
	Icon          json.RawMessage `json:"icon,omitempty"`
	URL           string          `json:"url,omitempty"`
}

// UnmarshalJSON decodes the database, derives the parent reference and
// records schema property order.
func (d *Database) UnmarshalJSON(data []byte) error {
	type database Database
	var v struct {
		database
		RawParent *Parent `json:"parent"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Database(v.database)
	d.retain(data)
	d.Parent = linkToParent(v.RawParent)
	order, err := propertyKeyOrder(data)
	if err != nil {
		return err
	}
	d.PropertyOrder = order
	for name, p := range d.Properties {
		if p.Name == "" {
			p.Name = name
		}
	}
	return nil
}

// String returns the database title as plain text.
func (d *Database) String() string {
	return d.Title.String()
}

// propertyKeyOrder extracts the key order of the top-level "properties"
// object from the raw payload.
func propertyKeyOrder(data []byte) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	props, ok := top["properties"]
	if !ok {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(props))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, nil
	}
	var order []string
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected properties key token %v", key)
		}
		order = append(order, name)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Page is a Notion page, including database rows.
type Page struct {
	Model
	Parent     *LinkTo                   `json:"-"`
	Archived   bool                      `json:"archived"`
	Properties map[string]*PropertyValue `json:"-"`
	// Title is the hoisted value of the page's single title property.
	// Nil when the page has no title property.
	Title RichTextArray   `json:"-"`
	Cover json.RawMessage `json:"cover,omitempty"`
	Icon  json.RawMessage `json:"icon,omitempty"`
	URL   string          `json:"url,omitempty"`
	// Children holds blocks supplied at creation time. It is write-only;
	// reads never populate it.
	Children []*Block `json:"-"`
}

// UnmarshalJSON decodes the page, derives the parent reference and hoists
// the title property.
func (p *Page) UnmarshalJSON(data []byte) error {
	type page Page
	var v struct {
		page
		RawParent *Parent                    `json:"parent"`
		RawProps  map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Page(v.page)
	p.retain(data)
	p.Parent = linkToParent(v.RawParent)
	p.Properties = make(map[string]*PropertyValue, len(v.RawProps))
	for name, raw := range v.RawProps {
		pv, err := parsePropertyValue(raw, name)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		p.Properties[name] = pv
	}
	for _, pv := range p.Properties {
		if pv.Type == "title" {
			if rta, ok := pv.Value().(RichTextArray); ok {
				p.Title = rta
			}
			break
		}
	}
	return nil
}

// String returns the page title as plain text, empty when absent.
func (p *Page) String() string {
	return p.Title.String()
}

// NewPage composes a page suitable only for a create request.
func NewPage(parent *LinkTo, title string, properties map[string]*PropertyValue, children ...*Block) *Page {
	p := &Page{
		Model:      Model{Object: "page"},
		Parent:     parent,
		Properties: map[string]*PropertyValue{},
		Children:   children,
	}
	for name, pv := range properties {
		p.Properties[name] = pv
	}
	if title != "" {
		p.Properties["title"] = NewPropertyValue("title", title)
		p.Title = NewRichTextArray(title)
	}
	return p
}

// Get serializes the page as a create request body.
func (p *Page) Get() map[string]any {
	props := map[string]any{}
	for name, pv := range p.Properties {
		if w := pv.Get(); w != nil {
			props[name] = map[string]any{pv.Type: w}
		}
	}
	body := map[string]any{"properties": props}
	if p.Parent != nil {
		body["parent"] = p.Parent.Get()
	}
	if len(p.Children) > 0 {
		children := make([]map[string]any, 0, len(p.Children))
		for _, b := range p.Children {
			if w := b.Get(); w != nil {
				children = append(children, w)
			}
		}
		body["children"] = children
	}
	return body
}

// ElementArray is an ordered, possibly heterogeneous collection of
// resources, as returned by the search endpoint.
type ElementArray []Object

// parseElementArray decodes a list of raw objects, keeping the kinds the
// library models and skipping anything else.
func parseElementArray(raws []json.RawMessage) (ElementArray, error) {
	out := make(ElementArray, 0, len(raws))
	for _, raw := range raws {
		obj, err := parseObject(raw)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out, nil
}

// parseObject decodes one raw resource by its kind discriminator.
// Unmodeled kinds yield nil, not an error.
func parseObject(raw json.RawMessage) (Object, error) {
	var head struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Object {
	case "page":
		p := &Page{}
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}
		return p, nil
	case "database":
		d := &Database{}
		if err := json.Unmarshal(raw, d); err != nil {
			return nil, err
		}
		return d, nil
	case "block":
		b := &Block{}
		if err := json.Unmarshal(raw, b); err != nil {
			return nil, err
		}
		return b, nil
	case "user":
		u := &User{}
		if err := json.Unmarshal(raw, u); err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, nil
}

// String renders one element per line.
func (a ElementArray) String() string {
	parts := make([]string, 0, len(a))
	for _, o := range a {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, "\n")
}

// BlockArray is an ordered collection of blocks.
type BlockArray []*Block

// parseBlockArray decodes a list of raw blocks.
func parseBlockArray(raws []json.RawMessage) (BlockArray, error) {
	out := make(BlockArray, 0, len(raws))
	for _, raw := range raws {
		b := &Block{}
		if err := json.Unmarshal(raw, b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// String renders one block per line, indented by nesting level.
func (a BlockArray) String() string {
	parts := make([]string, 0, len(a))
	for _, b := range a {
		parts = append(parts, strings.Repeat("\t", b.Level)+b.String())
	}
	return strings.Join(parts, "\n")
}

// Simple renders the prefix-free text of every block, one per line.
func (a BlockArray) Simple() string {
	parts := make([]string, 0, len(a))
	for _, b := range a {
		parts = append(parts, b.Simple())
	}
	return strings.Join(parts, "\n")
}

// PageArray is an ordered collection of pages.
type PageArray []*Page

// parsePageArray decodes a list of raw pages.
func parsePageArray(raws []json.RawMessage) (PageArray, error) {
	out := make(PageArray, 0, len(raws))
	for _, raw := range raws {
		p := &Page{}
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// String renders one page title per line.
func (a PageArray) String() string {
	parts := make([]string, 0, len(a))
	for _, p := range a {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, "\n")
}
