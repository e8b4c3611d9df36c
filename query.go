// Filter and sort builders for database queries and search.

package notion

import (
	"fmt"
)

// containsTypes are the text-like property types whose filter condition
// defaults to "contains".
var containsTypes = map[string]bool{
	"rich_text":    true,
	"title":        true,
	"multi_select": true,
	"phone_number": true,
	"people":       true,
	"relation":     true,
	"url":          true,
	"email":        true,
}

// timestampTypes restructure the emitted filter to use a "timestamp" key
// instead of "property". A documented quirk of the API schema.
var timestampTypes = map[string]bool{
	"created_time":     true,
	"last_edited_time": true,
	"timestamp":        true,
}

// relativeDateConditions take no literal value; the API expects an empty
// object.
var relativeDateConditions = map[string]bool{
	"past_week":  true,
	"past_month": true,
	"past_year":  true,
	"this_week":  true,
	"next_week":  true,
	"next_month": true,
	"next_year":  true,
}

// Filter is a single-criterion database query filter. Combining multiple
// criteria is unsupported except by supplying a fully custom raw
// expression through NewRawFilter.
type Filter struct {
	property  string
	typ       string
	condition string
	value     any
	raw       map[string]any
}

// NewFilter builds a filter for one property. The condition defaults by
// property type: "contains" for text-like types, "equals" for scalar
// ones. "is_empty"/"is_not_empty" conditions force the value to true;
// relative-date conditions force it to an empty object.
func NewFilter(property string, value any, propertyType, condition string) *Filter {
	if condition == "" {
		if containsTypes[propertyType] {
			condition = "contains"
		} else {
			condition = "equals"
		}
	}
	switch {
	case condition == "is_empty" || condition == "is_not_empty":
		value = true
	case relativeDateConditions[condition]:
		value = map[string]any{}
	case propertyType == "checkbox" && value == nil:
		value = true
	}
	return &Filter{
		property:  property,
		typ:       propertyType,
		condition: condition,
		value:     value,
	}
}

// NewRawFilter wraps a fully custom filter expression, the only way to
// combine multiple criteria.
func NewRawFilter(raw map[string]any) *Filter {
	return &Filter{raw: raw}
}

// NewFilterFromProperty builds a filter reusing a live property's name,
// type and value as the comparison target. Multi-select values are
// narrowed to their first tag.
func NewFilterFromProperty(obj any, condition string) *Filter {
	switch p := obj.(type) {
	case *Property:
		return NewFilter(p.Name, nil, p.Type, condition)
	case *PropertyValue:
		value := p.Value()
		if tags, ok := value.([]string); ok {
			if len(tags) == 0 {
				value = nil
			} else {
				value = tags[0]
			}
		}
		return NewFilter(p.Name, value, p.Type, condition)
	}
	return nil
}

// Get produces the filter body field. Timestamp-kind filters place the
// discriminator under a "timestamp" key instead of "property".
func (f *Filter) Get() map[string]any {
	if f.raw != nil {
		return f.raw
	}
	criterion := map[string]any{f.condition: f.value}
	if timestampTypes[f.typ] {
		tsType := f.typ
		if tsType == "timestamp" {
			tsType = f.property
		}
		return map[string]any{"timestamp": tsType, tsType: criterion}
	}
	return map[string]any{"property": f.property, f.typ: criterion}
}

// Sort orders database query results. Database queries accept multiple
// criteria; search accepts a single timestamp criterion only.
type Sort struct {
	criteria []map[string]any
}

// NewSort builds a sort on one property or, for "created_time" and
// "last_edited_time", on a timestamp. Direction is "ascending" or
// "descending", defaulting to ascending.
func NewSort(property, direction string) (*Sort, error) {
	s := &Sort{}
	if err := s.Add(property, direction); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends one more criterion.
func (s *Sort) Add(property, direction string) error {
	if direction == "" {
		direction = "ascending"
	}
	if direction != "ascending" && direction != "descending" {
		return fmt.Errorf("notion: invalid sort direction %q", direction)
	}
	criterion := map[string]any{"direction": direction}
	if property == "created_time" || property == "last_edited_time" {
		criterion["timestamp"] = property
	} else {
		criterion["property"] = property
	}
	s.criteria = append(s.criteria, criterion)
	return nil
}

// Get produces the multi-criterion "sorts" body field for database
// queries.
func (s *Sort) Get() []map[string]any {
	return s.criteria
}

// GetSearch produces the single-criterion "sort" body field for search
// queries. Search only supports sorting by last_edited_time; the first
// criterion's direction is kept.
func (s *Sort) GetSearch() map[string]any {
	direction := "ascending"
	if len(s.criteria) > 0 {
		if d, ok := s.criteria[0]["direction"].(string); ok {
			direction = d
		}
	}
	return map[string]any{"direction": direction, "timestamp": "last_edited_time"}
}
