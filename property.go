// Property schemas and typed property values.

package notion

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnsupportedValue is the sentinel carried by property values the library
// does not model (files, most formulas, unknown future types). Reads
// degrade to it instead of failing.
const UnsupportedValue = "unsupported"

// SelectValue is a select, multi-select or status tag.
type SelectValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateValue is the wire shape of a date range. Start and End are ISO-8601
// strings, date-only or time-bearing.
type DateValue struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// FormulaValue is the wire shape of a formula result.
type FormulaValue struct {
	Type    string     `json:"type"` // "string", "number", "boolean", "date"
	String  *string    `json:"string,omitempty"`
	Number  *float64   `json:"number,omitempty"`
	Boolean *bool      `json:"boolean,omitempty"`
	Date    *DateValue `json:"date,omitempty"`
}

// RelationValue is a reference to a related record.
type RelationValue struct {
	ID string `json:"id"`
}

// RollupValue is the wire shape of a rollup result.
type RollupValue struct {
	Type     string            `json:"type"` // "number", "date", "array", "unsupported", "incomplete"
	Number   *float64          `json:"number,omitempty"`
	Date     *DateValue        `json:"date,omitempty"`
	Array    []json.RawMessage `json:"array,omitempty"`
	Function string            `json:"function,omitempty"`
}

// parseTime parses the ISO-8601 forms the API emits: full RFC3339
// (including the offset-naive Z form), naive datetime and bare date.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}

// NumberConfig configures a number schema property.
type NumberConfig struct {
	Format string `json:"format,omitempty"`
}

// SelectConfig configures a select or multi-select schema property.
type SelectConfig struct {
	Options []SelectValue `json:"options,omitempty"`
}

// StatusConfig configures a status schema property.
type StatusConfig struct {
	Options []SelectValue `json:"options,omitempty"`
	Groups  []StatusGroup `json:"groups,omitempty"`
}

// StatusGroup groups status options.
type StatusGroup struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	OptionIDs []string `json:"option_ids"`
}

// FormulaConfig configures a formula schema property.
type FormulaConfig struct {
	Expression string `json:"expression"`
}

// RelationConfig configures a relation schema property.
type RelationConfig struct {
	DatabaseID     string          `json:"database_id"`
	Type           string          `json:"type,omitempty"` // "single_property" or "dual_property"
	SingleProperty *struct{}       `json:"single_property,omitempty"`
	DualProperty   json.RawMessage `json:"dual_property,omitempty"`
}

// RollupConfig configures a rollup schema property.
type RollupConfig struct {
	RelationPropertyName string `json:"relation_property_name"`
	RelationPropertyID   string `json:"relation_property_id"`
	RollupPropertyName   string `json:"rollup_property_name"`
	RollupPropertyID     string `json:"rollup_property_id"`
	Function             string `json:"function"`
}

// Property is the schema descriptor of one named database field. Property
// ids are opaque API tokens and are kept verbatim.
type Property struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	Number      *NumberConfig   `json:"number,omitempty"`
	Select      *SelectConfig   `json:"select,omitempty"`
	MultiSelect *SelectConfig   `json:"multi_select,omitempty"`
	Status      *StatusConfig   `json:"status,omitempty"`
	Formula     *FormulaConfig  `json:"formula,omitempty"`
	Relation    *RelationConfig `json:"relation,omitempty"`
	Rollup      *RollupConfig   `json:"rollup,omitempty"`

	// RelationTarget is the typed reference to the related database,
	// derived from Relation on read and used on write.
	RelationTarget *LinkTo `json:"-"`
	// Subtype is the relation flavor ("single_property" or
	// "dual_property").
	Subtype string `json:"-"`

	toDelete bool
}

// UnmarshalJSON decodes the schema descriptor and derives the relation
// target reference.
func (p *Property) UnmarshalJSON(data []byte) error {
	type property Property
	var v property
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Property(v)
	if p.Relation != nil {
		p.RelationTarget = NewLinkTo("database", p.Relation.DatabaseID)
		p.Subtype = p.Relation.Type
	}
	return nil
}

// NewProperty composes a schema descriptor for database create and update
// requests.
func NewProperty(typ string, name string) *Property {
	return &Property{Type: typ, Name: name}
}

// NewRelationProperty composes a relation schema descriptor targeting the
// given database. Dual relations synchronize a mirrored property on the
// target.
func NewRelationProperty(databaseID string, dual bool) *Property {
	subtype := "single_property"
	if dual {
		subtype = "dual_property"
	}
	return &Property{
		Type:           "relation",
		RelationTarget: NewLinkTo("database", databaseID),
		Subtype:        subtype,
	}
}

// NewPropertyDeletion composes the descriptor that removes a property on
// database update.
func NewPropertyDeletion() *Property {
	return &Property{toDelete: true}
}

// ToDelete reports whether the descriptor removes its property on update.
func (p *Property) ToDelete() bool {
	return p.toDelete
}

// String returns the property name.
func (p *Property) String() string {
	return p.Name
}

// Get serializes the descriptor for database create and update requests.
// A deletion descriptor serializes to nil, which the request body carries
// as JSON null.
func (p *Property) Get() map[string]any {
	if p.toDelete {
		return nil
	}
	out := map[string]any{}
	if p.Name != "" {
		out["name"] = p.Name
	}
	switch p.Type {
	case "":
		// Rename-only descriptor.
	case "relation":
		rel := map[string]any{p.Subtype: struct{}{}}
		if p.RelationTarget != nil {
			rel["database_id"] = p.RelationTarget.ID
		}
		out["relation"] = rel
	default:
		out[p.Type] = struct{}{}
	}
	return out
}

// propertyPayload is the wire shape of a property value, one field per
// type tag.
type propertyPayload struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`

	Title          RichTextArray   `json:"title,omitempty"`
	RichText       RichTextArray   `json:"rich_text,omitempty"`
	Number         *float64        `json:"number,omitempty"`
	Select         *SelectValue    `json:"select,omitempty"`
	MultiSelect    []SelectValue   `json:"multi_select,omitempty"`
	Status         *SelectValue    `json:"status,omitempty"`
	Date           *DateValue      `json:"date,omitempty"`
	Checkbox       *bool           `json:"checkbox,omitempty"`
	URL            *string         `json:"url,omitempty"`
	Email          *string         `json:"email,omitempty"`
	PhoneNumber    *string         `json:"phone_number,omitempty"`
	Formula        *FormulaValue   `json:"formula,omitempty"`
	Relation       []RelationValue `json:"relation,omitempty"`
	Rollup         *RollupValue    `json:"rollup,omitempty"`
	People         []*User         `json:"people,omitempty"`
	CreatedTime    *time.Time      `json:"created_time,omitempty"`
	LastEditedTime *time.Time      `json:"last_edited_time,omitempty"`
	CreatedBy      *User           `json:"created_by,omitempty"`
	LastEditedBy   *User           `json:"last_edited_by,omitempty"`
}

// PropertyValue is the typed content of one named field on a page: a
// discriminated union over the property type tags.
type PropertyValue struct {
	ID   string
	Type string
	Name string
	Raw  json.RawMessage

	value    any
	start    *time.Time
	end      *time.Time
	withTime bool
}

// parsePropertyValue decodes a wire property value. A paginated
// property-item list (the "retrieve a page property item" shape) is first
// flattened into the equivalent bulk shape.
func parsePropertyValue(raw json.RawMessage, name string) (*PropertyValue, error) {
	var head struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if head.Object == "list" {
		flat, err := flattenPropertyItems(raw)
		if err != nil {
			return nil, err
		}
		raw = flat
	}
	var p propertyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	pv := &PropertyValue{
		ID:   p.ID,
		Type: p.Type,
		Name: name,
		Raw:  append([]byte(nil), raw...),
	}
	pv.setValue(&p)
	return pv, nil
}

// flattenPropertyItems merges a paginated list of single property items
// into one bulk property value payload.
func flattenPropertyItems(raw json.RawMessage) (json.RawMessage, error) {
	var list struct {
		Results      []json.RawMessage `json:"results"`
		PropertyItem struct {
			ID     string          `json:"id"`
			Type   string          `json:"type"`
			Rollup json.RawMessage `json:"rollup"`
		} `json:"property_item"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	typ := list.PropertyItem.Type
	merged := map[string]any{
		"id":   list.PropertyItem.ID,
		"type": typ,
	}
	switch typ {
	case "rollup":
		// The aggregate rides on property_item while results carry the
		// underlying items in their own sub-types.
		agg, err := mergeRollupItems(list.PropertyItem.Rollup, list.Results)
		if err != nil {
			return nil, err
		}
		merged["rollup"] = agg
	case "title", "rich_text", "relation", "people":
		items := make([]json.RawMessage, 0, len(list.Results))
		for _, res := range list.Results {
			var item map[string]json.RawMessage
			if err := json.Unmarshal(res, &item); err != nil {
				return nil, err
			}
			if payload, ok := item[typ]; ok {
				items = append(items, payload)
			}
		}
		merged[typ] = items
	default:
		// Scalar items do not paginate; take the first result verbatim.
		if len(list.Results) > 0 {
			return list.Results[0], nil
		}
	}
	return json.Marshal(merged)
}

// mergeRollupItems rebuilds the bulk rollup shape from a paginated
// property-item response. Scalar aggregates (number, date) pass through
// unchanged; an array aggregate gets its array filled from the result
// items, re-wrapping the item payloads into the bulk per-entry shape.
func mergeRollupItems(aggregate json.RawMessage, results []json.RawMessage) (json.RawMessage, error) {
	agg := map[string]json.RawMessage{}
	if len(aggregate) > 0 {
		if err := json.Unmarshal(aggregate, &agg); err != nil {
			return nil, err
		}
	}
	var aggType string
	if t, ok := agg["type"]; ok {
		_ = json.Unmarshal(t, &aggType)
	}
	if aggType != "array" {
		return json.Marshal(agg)
	}
	entries := make([]json.RawMessage, 0, len(results))
	for _, res := range results {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(res, &item); err != nil {
			return nil, err
		}
		var itemType string
		if t, ok := item["type"]; ok {
			_ = json.Unmarshal(t, &itemType)
		}
		payload, ok := item[itemType]
		if !ok {
			continue
		}
		switch itemType {
		case "title", "rich_text", "relation", "people":
			// Paginated items carry one element each; the bulk entry
			// holds them as an array.
			wrapped, err := json.Marshal([]json.RawMessage{payload})
			if err != nil {
				return nil, err
			}
			payload = wrapped
		}
		entry, err := json.Marshal(map[string]any{
			"type":   itemType,
			itemType: payload,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	arr, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	agg["array"] = arr
	return json.Marshal(agg)
}

// setValue applies the per-type mapping rules to produce a native value.
func (pv *PropertyValue) setValue(p *propertyPayload) {
	switch pv.Type {
	case "title":
		pv.value = p.Title
	case "rich_text":
		pv.value = p.RichText
	case "number":
		if p.Number != nil {
			pv.value = *p.Number
		}
	case "select":
		if p.Select != nil {
			pv.value = p.Select.Name
		}
	case "status":
		if p.Status != nil {
			pv.value = p.Status.Name
		}
	case "multi_select":
		tags := make([]string, 0, len(p.MultiSelect))
		for _, v := range p.MultiSelect {
			tags = append(tags, v.Name)
		}
		pv.value = tags
	case "checkbox":
		pv.value = p.Checkbox != nil && *p.Checkbox
	case "date":
		pv.setDate(p.Date)
	case "created_time":
		if p.CreatedTime != nil {
			pv.value = *p.CreatedTime
		}
	case "last_edited_time":
		if p.LastEditedTime != nil {
			pv.value = *p.LastEditedTime
		}
	case "created_by":
		if p.CreatedBy != nil {
			pv.value = p.CreatedBy
		}
	case "last_edited_by":
		if p.LastEditedBy != nil {
			pv.value = p.LastEditedBy
		}
	case "formula":
		pv.setFormula(p.Formula)
	case "relation":
		ids := make([]string, 0, len(p.Relation))
		for _, r := range p.Relation {
			ids = append(ids, NormalizeID(r.ID))
		}
		pv.value = ids
	case "rollup":
		pv.setRollup(p.Rollup)
	case "people":
		pv.value = p.People
	case "files":
		pv.value = UnsupportedValue
	case "url":
		if p.URL != nil {
			pv.value = *p.URL
		}
	case "email":
		if p.Email != nil {
			pv.value = *p.Email
		}
	case "phone_number":
		if p.PhoneNumber != nil {
			pv.value = *p.PhoneNumber
		}
	default:
		pv.value = UnsupportedValue
	}
}

// setDate maps a wire date range to value/start/end. Whether the range is
// time-bearing is decided by the start carrying a non-zero hour or
// minute.
func (pv *PropertyValue) setDate(d *DateValue) {
	if d == nil {
		return
	}
	pv.value = d.Start
	pv.start = parseTime(d.Start)
	if d.End != nil {
		pv.end = parseTime(*d.End)
	}
	if pv.start != nil && (pv.start.Hour() != 0 || pv.start.Minute() != 0) {
		pv.withTime = true
	}
}

// setFormula unwraps a formula result to whichever sub-type it evaluates
// to.
func (pv *PropertyValue) setFormula(f *FormulaValue) {
	if f == nil {
		return
	}
	switch f.Type {
	case "date":
		pv.setDate(f.Date)
	case "string":
		if f.String != nil {
			pv.value = *f.String
		}
	case "number":
		if f.Number != nil {
			pv.value = *f.Number
		}
	case "boolean":
		if f.Boolean != nil {
			pv.value = *f.Boolean
		}
	default:
		pv.value = UnsupportedValue
	}
}

// setRollup recurses into a rollup result: zero array entries yield nil,
// one yields a nested PropertyValue, many yield a list of them. Numeric
// and date rollups flatten directly.
func (pv *PropertyValue) setRollup(r *RollupValue) {
	if r == nil {
		return
	}
	switch r.Type {
	case "number":
		if r.Number != nil {
			pv.value = *r.Number
		}
	case "date":
		pv.setDate(r.Date)
	case "array":
		switch len(r.Array) {
		case 0:
			pv.value = nil
		case 1:
			nested, err := parsePropertyValue(r.Array[0], pv.Name)
			if err == nil {
				pv.value = nested
			}
		default:
			nested := make([]*PropertyValue, 0, len(r.Array))
			for _, raw := range r.Array {
				n, err := parsePropertyValue(raw, pv.Name)
				if err != nil {
					continue
				}
				nested = append(nested, n)
			}
			pv.value = nested
		}
	default:
		pv.value = UnsupportedValue
	}
}

// Value returns the native typed content of the property.
func (pv *PropertyValue) Value() any {
	return pv.value
}

// Start returns the parsed range start for date-bearing values, nil
// otherwise.
func (pv *PropertyValue) Start() *time.Time {
	return pv.start
}

// End returns the parsed range end for date-bearing values, nil
// otherwise.
func (pv *PropertyValue) End() *time.Time {
	return pv.end
}

// String renders the value as display text.
func (pv *PropertyValue) String() string {
	switch v := pv.value.(type) {
	case nil:
		return ""
	case RichTextArray:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// NewPropertyValue composes a typed value suitable for page create and
// update requests. Accepted value types per property type:
//
//	title, rich_text: string or RichTextArray
//	number:           float64 or int
//	select, status, url, email, phone_number: string
//	multi_select:     []string
//	checkbox:         bool
//	date:             time.Time, or [2]time.Time for a range
//	relation:         []string of record ids
//	people:           []*User or []string of user ids
func NewPropertyValue(typ string, value any) *PropertyValue {
	pv := &PropertyValue{Type: typ}
	switch typ {
	case "title", "rich_text":
		switch v := value.(type) {
		case RichTextArray:
			pv.value = v
		case string:
			pv.value = NewRichTextArray(v)
		}
	case "number":
		switch v := value.(type) {
		case float64:
			pv.value = v
		case int:
			pv.value = float64(v)
		}
	case "multi_select":
		if v, ok := value.([]string); ok {
			pv.value = v
		}
	case "checkbox":
		v, _ := value.(bool)
		pv.value = v
	case "date":
		switch v := value.(type) {
		case time.Time:
			t := v
			pv.start = &t
			pv.value = t.Format(time.RFC3339)
		case [2]time.Time:
			s, e := v[0], v[1]
			pv.start, pv.end = &s, &e
			pv.value = s.Format(time.RFC3339)
		}
		if pv.start != nil && (pv.start.Hour() != 0 || pv.start.Minute() != 0) {
			pv.withTime = true
		}
	case "relation":
		if v, ok := value.([]string); ok {
			ids := make([]string, 0, len(v))
			for _, id := range v {
				ids = append(ids, NormalizeID(id))
			}
			pv.value = ids
		}
	case "people":
		switch v := value.(type) {
		case []*User:
			pv.value = v
		case []string:
			users := make([]*User, 0, len(v))
			for _, id := range v {
				users = append(users, &User{Object: "user", ID: NormalizeID(id)})
			}
			pv.value = users
		}
	default:
		// select, status, url, email, phone_number and forward-compatible
		// plain string types.
		if v, ok := value.(string); ok {
			pv.value = v
		}
	}
	return pv
}

// dateWire serializes the held date range: bare date strings when the
// range is not time-bearing, full offset-aware ISO-8601 otherwise.
func (pv *PropertyValue) dateWire() map[string]any {
	if pv.start == nil {
		return nil
	}
	layout := "2006-01-02"
	if pv.withTime {
		layout = time.RFC3339
	}
	out := map[string]any{"start": pv.start.Format(layout)}
	if pv.end != nil {
		out["end"] = pv.end.Format(layout)
	}
	return out
}

// Get produces the exact inverse wire shape accepted by a write request,
// or nil when the field cannot be legally written (derived and read-only
// types).
func (pv *PropertyValue) Get() any {
	switch pv.Type {
	case "title", "rich_text":
		if rta, ok := pv.value.(RichTextArray); ok {
			return rta.Get()
		}
		return []map[string]any{}
	case "number":
		return pv.value
	case "select", "status":
		if name, ok := pv.value.(string); ok {
			return map[string]any{"name": name}
		}
		return nil
	case "multi_select":
		tags, _ := pv.value.([]string)
		out := make([]map[string]any, 0, len(tags))
		for _, t := range tags {
			out = append(out, map[string]any{"name": t})
		}
		return out
	case "checkbox":
		v, _ := pv.value.(bool)
		return v
	case "date":
		return pv.dateWire()
	case "relation":
		ids, _ := pv.value.([]string)
		out := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			out = append(out, map[string]any{"id": id})
		}
		return out
	case "people":
		users, _ := pv.value.([]*User)
		out := make([]map[string]any, 0, len(users))
		for _, u := range users {
			out = append(out, u.Get())
		}
		return out
	case "files":
		return []any{}
	case "url", "email", "phone_number":
		return pv.value
	}
	// created_time, last_edited_time, created_by, last_edited_by,
	// formula, rollup and unknown types are read-only.
	return nil
}
