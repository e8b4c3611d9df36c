// Typed references between resources.

package notion

// LinkTo is a typed, resolvable reference to a remote resource or to a
// resource's child collection. It carries enough information to serialize
// a "parent" pointer and to issue a follow-up fetch.
type LinkTo struct {
	// Type is the resource kind or parent discriminator ("page",
	// "page_id", "database", "database_id", "block", "block_id", "user",
	// "workspace").
	Type string
	// ID is the normalized target id. Empty for workspace references.
	ID string
	// URI is the resource path used to fetch the target ("pages",
	// "databases", "blocks", "users"). Empty when the target cannot be
	// fetched.
	URI string
	// AfterPath is the sub-path appended when the reference addresses a
	// relationship rather than the object itself ("children").
	AfterPath string
}

// uriForType maps a reference type to its resource path.
func uriForType(typ string) string {
	switch typ {
	case "page", "page_id":
		return "pages"
	case "database", "database_id":
		return "databases"
	case "block", "block_id":
		return "blocks"
	case "user":
		return "users"
	}
	return ""
}

// NewLinkTo builds a reference from raw wire fields. A "workspace" type
// yields the degenerate reference with an empty id.
func NewLinkTo(typ, id string) *LinkTo {
	return &LinkTo{
		Type: typ,
		ID:   NormalizeID(id),
		URI:  uriForType(typ),
	}
}

// LinkToChildren builds a reference to a block's child collection,
// resolvable through the blocks endpoint.
func LinkToChildren(b *Block) *LinkTo {
	return &LinkTo{
		Type:      b.Object,
		ID:        b.ID,
		URI:       "blocks",
		AfterPath: "children",
	}
}

// LinkToObject builds a reference to an already-fetched object. Supported
// inputs are *Page, *Database, *Block and *User; anything else yields nil.
func LinkToObject(obj any) *LinkTo {
	switch o := obj.(type) {
	case *Page:
		return &LinkTo{Type: "page", ID: o.ID, URI: "pages"}
	case *Database:
		return &LinkTo{Type: "database", ID: o.ID, URI: "databases"}
	case *Block:
		return &LinkTo{Type: "block", ID: o.ID, URI: "blocks"}
	case *User:
		return &LinkTo{Type: "user", ID: o.ID, URI: "users"}
	}
	return nil
}

// linkToParent builds a reference from a parent wire object.
func linkToParent(p *Parent) *LinkTo {
	if p == nil {
		return nil
	}
	switch p.Type {
	case "database_id":
		return NewLinkTo("database_id", p.DatabaseID)
	case "page_id":
		return NewLinkTo("page_id", p.PageID)
	case "block_id":
		return NewLinkTo("block_id", p.BlockID)
	case "workspace":
		return &LinkTo{Type: "workspace"}
	}
	return nil
}

// IsWorkspace reports whether the reference is the degenerate workspace
// reference.
func (lt *LinkTo) IsWorkspace() bool {
	return lt.Type == "workspace"
}

// Get serializes the reference as a parent pointer for write requests.
func (lt *LinkTo) Get() map[string]any {
	if lt.IsWorkspace() {
		return map[string]any{"type": "workspace", "workspace": true}
	}
	key := lt.Type
	switch lt.Type {
	case "page":
		key = "page_id"
	case "database":
		key = "database_id"
	case "block":
		key = "block_id"
	}
	return map[string]any{"type": key, key: lt.ID}
}

// String returns a compact path-like rendering of the reference.
func (lt *LinkTo) String() string {
	s := lt.URI + "/" + lt.ID
	if lt.AfterPath != "" {
		s += "/" + lt.AfterPath
	}
	return s
}
