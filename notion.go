// Client facade and resource-kind-scoped operations.

package notion

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxDepth bounds recursive child traversal when the caller does
// not pick a ceiling.
const DefaultMaxDepth = 10

// Option customizes a client.
type Option func(*Notion)

// WithBaseURL overrides the API base URL. Useful for testing.
func WithBaseURL(base string) Option {
	return func(n *Notion) { n.s.base = base }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notion) { n.s.httpClient = c }
}

// WithVersion overrides the pinned API version header.
func WithVersion(version string) Option {
	return func(n *Notion) { n.s.version = version }
}

// WithLogger routes request-level debug logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notion) { n.s.logger = l }
}

// WithRetry enables retrying rate-limited and server-side failures with
// exponential backoff for at most max elapsed time. Off by default;
// retrying is the caller's decision.
func WithRetry(max time.Duration) Option {
	return func(n *Notion) { n.s.retryMax = max }
}

// WithRateLimit replaces the default 3 req/sec throttle. A non-positive
// value disables throttling.
func WithRateLimit(rps float64) Option {
	return func(n *Notion) {
		if rps <= 0 {
			n.s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		n.s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// Notion is the client facade. It owns the transport session; all
// request-issuing operations close over it.
type Notion struct {
	s *session
}

// New creates a client. An empty token is accepted and fails with a
// labeled unauthorized error on the first real call.
func New(token string, opts ...Option) *Notion {
	n := &Notion{s: newSession(token)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Pages scopes operations to the pages resource kind.
func (n *Notion) Pages() *Element { return &Element{api: n, name: "pages"} }

// Blocks scopes operations to the blocks resource kind.
func (n *Notion) Blocks() *Element { return &Element{api: n, name: "blocks"} }

// Databases scopes operations to the databases resource kind.
func (n *Notion) Databases() *Element { return &Element{api: n, name: "databases"} }

// Users scopes operations to the users resource kind.
func (n *Notion) Users() *Element { return &Element{api: n, name: "users"} }

// Searcher scopes operations to the search pseudo-kind.
func (n *Notion) Searcher() *Element { return &Element{api: n, name: "search"} }

// FromObject binds an already-fetched object to the kind-scoped element
// that can operate on it.
func (n *Notion) FromObject(obj any) *Element {
	switch obj.(type) {
	case *Page:
		return &Element{api: n, name: "pages", obj: obj}
	case *Database:
		return &Element{api: n, name: "databases", obj: obj}
	case *Block:
		return &Element{api: n, name: "blocks", obj: obj}
	case *User:
		return &Element{api: n, name: "users", obj: obj}
	}
	return nil
}

// FromLinkTo resolves a typed reference: a fetch of the referenced object
// or, when the reference addresses a child collection, of its children.
func (n *Notion) FromLinkTo(ctx context.Context, lt *LinkTo) (*Element, error) {
	if lt == nil || lt.URI == "" {
		return nil, nil
	}
	e := &Element{api: n, name: lt.URI}
	if lt.AfterPath == "children" {
		return e.GetBlockChildren(ctx, lt.ID, 0)
	}
	return e.Get(ctx, lt.ID)
}

// Element binds a resource kind to an optional already-fetched object and
// exposes kind-appropriate operations. Operations self-restrict by kind:
// calling an operation on the wrong kind is a soft no-op returning nil,
// not an error, so exploratory chained calls need no kind guards.
type Element struct {
	api  *Notion
	name string
	obj  any
}

// Kind returns the bound resource kind name.
func (e *Element) Kind() string { return e.name }

// Object returns the held object, if any.
func (e *Element) Object() any { return e.obj }

// Page returns the held object as a page, or nil.
func (e *Element) Page() *Page {
	p, _ := e.obj.(*Page)
	return p
}

// Database returns the held object as a database, or nil.
func (e *Element) Database() *Database {
	d, _ := e.obj.(*Database)
	return d
}

// Block returns the held object as a block, or nil.
func (e *Element) Block() *Block {
	b, _ := e.obj.(*Block)
	return b
}

// User returns the held object as a user, or nil.
func (e *Element) User() *User {
	u, _ := e.obj.(*User)
	return u
}

// Blocks returns the held object as a block collection, or nil.
func (e *Element) Blocks() BlockArray {
	a, _ := e.obj.(BlockArray)
	return a
}

// Pages returns the held object as a page collection, or nil.
func (e *Element) Pages() PageArray {
	a, _ := e.obj.(PageArray)
	return a
}

// Elements returns the held object as a mixed collection, or nil.
func (e *Element) Elements() ElementArray {
	a, _ := e.obj.(ElementArray)
	return a
}

// PropertyValue returns the held object as a property value, or nil.
func (e *Element) PropertyValue() *PropertyValue {
	pv, _ := e.obj.(*PropertyValue)
	return pv
}

// String renders the element as a path plus held object.
func (e *Element) String() string {
	if e.obj == nil {
		return "notion/" + e.name + "/"
	}
	if s, ok := e.obj.(interface{ String() string }); ok {
		return "notion/" + e.name + "/" + s.String()
	}
	return "notion/" + e.name + "/"
}

// resolveID falls back to the held object's id when none is given.
func (e *Element) resolveID(id string) string {
	if id == "" {
		if o, ok := e.obj.(Object); ok {
			return o.ObjectID()
		}
		return ""
	}
	return NormalizeID(id)
}

// Get fetches the object with the given id through the bound kind's
// endpoint and returns an element holding it.
func (e *Element) Get(ctx context.Context, id string) (*Element, error) {
	if e.name == "search" {
		return nil, nil
	}
	resp, err := e.api.s.method(ctx, http.MethodGet, e.name, e.resolveID(id), "", nil, requestOptions{})
	if err != nil {
		return nil, err
	}
	obj, err := parseObject(resp.Raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return e.api.FromObject(obj), nil
}

// parentLink extracts the parent reference from the held object. For
// blocks only child_page and child_database blocks have one; an ordinary
// nested block has no parent in this sense.
func (e *Element) parentLink() *LinkTo {
	switch o := e.obj.(type) {
	case *Page:
		return o.Parent
	case *Database:
		return o.Parent
	case *Block:
		return o.ParentLink
	}
	return nil
}

// GetParent resolves the held (or fetched) object's parent by following
// its reference, dispatching to whatever kind that reference targets.
// Objects without a parent, including workspace-parented ones, yield nil.
func (e *Element) GetParent(ctx context.Context, id string) (*Element, error) {
	if e.name == "search" || e.name == "users" {
		return nil, nil
	}
	if e.obj == nil {
		fetched, err := e.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return nil, nil
		}
		e = fetched
	}
	lt := e.parentLink()
	if lt == nil || lt.IsWorkspace() || lt.URI == "" {
		return nil, nil
	}
	next := &Element{api: e.api, name: lt.URI}
	return next.Get(ctx, lt.ID)
}

// GetBlockChildren fetches the immediate children of a page or block. A
// positive limit bounds the result to one page of at most limit blocks.
// For a held child_database block the embedded database itself is
// returned, since the two share identity.
func (e *Element) GetBlockChildren(ctx context.Context, id string, limit int) (*Element, error) {
	if e.name != "pages" && e.name != "blocks" {
		return nil, nil
	}
	if b := e.Block(); b != nil && b.ChildrenLink != nil && b.ChildrenLink.URI == "databases" {
		next := &Element{api: e.api, name: "databases"}
		return next.Get(ctx, b.ChildrenLink.ID)
	}
	resp, err := e.api.s.method(ctx, http.MethodGet, "blocks", e.resolveID(id), "children", nil, requestOptions{limit: limit})
	if err != nil {
		return nil, err
	}
	if resp.List == nil {
		return nil, nil
	}
	blocks, err := parseBlockArray(resp.List.Results)
	if err != nil {
		return nil, err
	}
	return &Element{api: e.api, name: "blocks", obj: blocks}, nil
}

// GetBlockChildrenRecursive returns the flattened, depth-ordered block
// tree under a page or block: a depth-first pre-order walk, each block
// tagged with its nesting level.
//
// Recursion stops at maxDepth (a ceiling of 0 returns only direct
// children; negative means DefaultMaxDepth). A child_page subtree is
// skipped unless force is set: sub-pages are semantically separate
// documents. child_database blocks are returned as leaves, never
// recursed into.
func (e *Element) GetBlockChildrenRecursive(ctx context.Context, id string, maxDepth int, force bool) (*Element, error) {
	if e.name != "pages" && e.name != "blocks" {
		return nil, nil
	}
	if b := e.Block(); b != nil && b.ChildrenLink != nil && b.ChildrenLink.URI == "databases" {
		next := &Element{api: e.api, name: "databases"}
		return next.Get(ctx, b.ChildrenLink.ID)
	}
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	blocks, err := e.walkChildren(ctx, e.resolveID(id), 0, maxDepth, force)
	if err != nil {
		return nil, err
	}
	return &Element{api: e.api, name: "blocks", obj: blocks}, nil
}

// walkChildren fetches one node's children and recurses depth-first.
func (e *Element) walkChildren(ctx context.Context, id string, depth, maxDepth int, force bool) (BlockArray, error) {
	resp, err := e.api.s.method(ctx, http.MethodGet, "blocks", id, "children", nil, requestOptions{})
	if err != nil {
		return nil, err
	}
	if resp.List == nil {
		return BlockArray{}, nil
	}
	children, err := parseBlockArray(resp.List.Results)
	if err != nil {
		return nil, err
	}
	out := make(BlockArray, 0, len(children))
	for _, b := range children {
		b.Level = depth
		out = append(out, b)
		if b.Type == "child_database" {
			continue
		}
		if b.Type == "child_page" && !force {
			continue
		}
		if b.HasChildren && depth < maxDepth {
			sub, err := e.walkChildren(ctx, b.ID, depth+1, maxDepth, force)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// GetPageProperty fetches one property value of a page. Paginated
// property-item responses are flattened into a single bulk value. A
// positive limit bounds the fetch to one page of items.
func (e *Element) GetPageProperty(ctx context.Context, propertyID, pageID string, limit int) (*Element, error) {
	if e.name != "pages" {
		return nil, nil
	}
	resp, err := e.api.s.method(ctx, http.MethodGet, "pages", e.resolveID(pageID), "properties/"+propertyID, nil, requestOptions{limit: limit})
	if err != nil {
		return nil, err
	}
	raw := resp.Raw
	if resp.List != nil {
		// Re-serialize the merged list so the flattening path sees the
		// union of all property-item pages.
		raw, err = json.Marshal(resp.List)
		if err != nil {
			return nil, err
		}
	}
	pv, err := parsePropertyValue(raw, propertyID)
	if err != nil {
		return nil, err
	}
	return &Element{api: e.api, name: "pages", obj: pv}, nil
}

// GetPageProperties fetches a page and re-fetches every property through
// the property-item endpoint, replacing possibly truncated inline values
// with complete ones.
func (e *Element) GetPageProperties(ctx context.Context, pageID string) (*Element, error) {
	if e.name != "pages" {
		return nil, nil
	}
	fetched, err := e.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	page := fetched.Page()
	if page == nil {
		return nil, nil
	}
	for name, pv := range page.Properties {
		if pv.ID == "" {
			continue
		}
		full, err := e.GetPageProperty(ctx, pv.ID, page.ID, 0)
		if err != nil {
			return nil, err
		}
		if v := full.PropertyValue(); v != nil {
			v.Name = name
			page.Properties[name] = v
		}
	}
	return fetched, nil
}

// QueryParams tune a database query.
type QueryParams struct {
	Filter *Filter
	Sorts  *Sort
	// Limit bounds the result to one page of at most Limit rows and
	// disables auto-pagination.
	Limit int
}

// DBQuery queries a database for its rows.
func (e *Element) DBQuery(ctx context.Context, id string, q QueryParams) (*Element, error) {
	if e.name != "databases" {
		return nil, nil
	}
	resp, err := e.api.s.method(ctx, http.MethodPost, "databases", e.resolveID(id), "query", map[string]any{}, requestOptions{
		limit:  q.Limit,
		filter: q.Filter,
		sorts:  q.Sorts,
	})
	if err != nil {
		return nil, err
	}
	if resp.List == nil {
		return nil, nil
	}
	pages, err := parsePageArray(resp.List.Results)
	if err != nil {
		return nil, err
	}
	return &Element{api: e.api, name: "pages", obj: pages}, nil
}

// DBFilter queries a database with a single filter criterion.
func (e *Element) DBFilter(ctx context.Context, id string, f *Filter) (*Element, error) {
	return e.DBQuery(ctx, id, QueryParams{Filter: f})
}

// DBCreate creates a database under a parent page.
func (e *Element) DBCreate(ctx context.Context, parent *LinkTo, title string, properties map[string]*Property) (*Element, error) {
	if e.name != "databases" || parent == nil {
		return nil, nil
	}
	body := map[string]any{
		"parent":     parent.Get(),
		"properties": propertiesBody(properties),
	}
	if title != "" {
		body["title"] = NewRichTextArray(title).Get()
	}
	resp, err := e.api.s.method(ctx, http.MethodPost, "databases", "", "", body, requestOptions{})
	if err != nil {
		return nil, err
	}
	return e.elementFromRaw(resp)
}

// DBUpdate updates a database's title and/or schema. A property mapped
// to a deletion descriptor is removed; property identity may be its name
// or its opaque id.
func (e *Element) DBUpdate(ctx context.Context, id string, title string, properties map[string]*Property) (*Element, error) {
	if e.name != "databases" {
		return nil, nil
	}
	body := map[string]any{}
	if title != "" {
		body["title"] = NewRichTextArray(title).Get()
	}
	if len(properties) > 0 {
		body["properties"] = propertiesBody(properties)
	}
	resp, err := e.api.s.method(ctx, http.MethodPatch, "databases", e.resolveID(id), "", body, requestOptions{})
	if err != nil {
		return nil, err
	}
	return e.elementFromRaw(resp)
}

// propertiesBody serializes a schema property map; deletion descriptors
// serialize as JSON null.
func propertiesBody(properties map[string]*Property) map[string]any {
	out := map[string]any{}
	for name, p := range properties {
		if p == nil || p.ToDelete() {
			out[name] = nil
			continue
		}
		out[name] = p.Get()
	}
	return out
}

// PageCreate creates a page composed with NewPage.
func (e *Element) PageCreate(ctx context.Context, page *Page) (*Element, error) {
	if e.name != "pages" || page == nil {
		return nil, nil
	}
	resp, err := e.api.s.method(ctx, http.MethodPost, "pages", "", "", page.Get(), requestOptions{})
	if err != nil {
		return nil, err
	}
	return e.elementFromRaw(resp)
}

// PageUpdate patches a page's properties and archived flag. The held
// object is not mutated; the server's returned representation replaces
// it wholesale in the result element.
func (e *Element) PageUpdate(ctx context.Context, id string, properties map[string]*PropertyValue, archived *bool) (*Element, error) {
	if e.name != "pages" {
		return nil, nil
	}
	body := map[string]any{}
	if len(properties) > 0 {
		props := map[string]any{}
		for name, pv := range properties {
			if w := pv.Get(); w != nil {
				props[name] = map[string]any{pv.Type: w}
			}
		}
		body["properties"] = props
	}
	if archived != nil {
		body["archived"] = *archived
	}
	resp, err := e.api.s.method(ctx, http.MethodPatch, "pages", e.resolveID(id), "", body, requestOptions{})
	if err != nil {
		return nil, err
	}
	return e.elementFromRaw(resp)
}

// BlockUpdate patches a block's mutable sub-fields. Variants that cannot
// be written (structural and read-only types) are a soft no-op; type
// changes are left for the server to reject.
func (e *Element) BlockUpdate(ctx context.Context, id string, block *Block) (*Element, error) {
	if e.name != "blocks" || block == nil {
		return nil, nil
	}
	payload := block.payload()
	if payload == nil {
		return nil, nil
	}
	body := map[string]any{block.Type: payload}
	resp, err := e.api.s.method(ctx, http.MethodPatch, "blocks", e.resolveID(id), "", body, requestOptions{})
	if err != nil {
		return nil, err
	}
	return e.elementFromRaw(resp)
}

// BlockAppend appends composed blocks to a page's or block's children.
func (e *Element) BlockAppend(ctx context.Context, id string, blocks ...*Block) (*Element, error) {
	if e.name != "pages" && e.name != "blocks" {
		return nil, nil
	}
	children := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		if w := b.Get(); w != nil {
			children = append(children, w)
		}
	}
	body := map[string]any{"children": children}
	resp, err := e.api.s.method(ctx, http.MethodPatch, "blocks", e.resolveID(id), "children", body, requestOptions{})
	if err != nil {
		return nil, err
	}
	if resp.List == nil {
		return nil, nil
	}
	appended, err := parseBlockArray(resp.List.Results)
	if err != nil {
		return nil, err
	}
	return &Element{api: e.api, name: "blocks", obj: appended}, nil
}

// GetMyself fetches the user the integration token is acting as.
func (e *Element) GetMyself(ctx context.Context) (*Element, error) {
	if e.name != "users" {
		return nil, nil
	}
	resp, err := e.api.s.method(ctx, http.MethodGet, "users", "me", "", nil, requestOptions{})
	if err != nil {
		return nil, err
	}
	return e.elementFromRaw(resp)
}

// Search queries the search pseudo-kind. Sorting is single-criterion by
// last edited time only. A positive limit bounds the result to one page.
func (e *Element) Search(ctx context.Context, query string, s *Sort, limit int) (*Element, error) {
	if e.name != "search" {
		return nil, nil
	}
	body := map[string]any{}
	if query != "" {
		body["query"] = query
	}
	resp, err := e.api.s.method(ctx, http.MethodPost, "search", "", "", body, requestOptions{
		limit:      limit,
		sorts:      s,
		searchSort: true,
	})
	if err != nil {
		return nil, err
	}
	if resp.List == nil {
		return nil, nil
	}
	results, err := parseElementArray(resp.List.Results)
	if err != nil {
		return nil, err
	}
	return &Element{api: e.api, name: "search", obj: results}, nil
}

// elementFromRaw parses a single-object response into a kind-bound
// element.
func (e *Element) elementFromRaw(resp *response) (*Element, error) {
	obj, err := parseObject(resp.Raw)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return e.api.FromObject(obj), nil
}
