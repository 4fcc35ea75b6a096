package record

import "encoding/json"

// MarshalJSON emits only the payload matching Type, which is the shape the
// source accepts on create and update.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": v.Type}
	if v.ID != "" {
		out["id"] = v.ID
	}
	switch v.Type {
	case TypeTitle:
		out[TypeTitle] = nonNil(v.Title)
	case TypeRichText:
		out[TypeRichText] = nonNil(v.RichText)
	case TypeStatus:
		out[TypeStatus] = v.Status
	case TypeSelect:
		out[TypeSelect] = v.Select
	case TypeRelation:
		out[TypeRelation] = nonNil(v.Relation)
	case TypeDate:
		out[TypeDate] = v.Date
	case TypeCheckbox:
		out[TypeCheckbox] = v.Checkbox
	case TypeNumber:
		out[TypeNumber] = v.Number
	}
	return json.Marshal(out)
}

// TitleValue builds a title property.
func TitleValue(s string) PropertyValue {
	return PropertyValue{Type: TypeTitle, Title: Text(s)}
}

// RichTextValue builds a rich_text property.
func RichTextValue(s string) PropertyValue {
	return PropertyValue{Type: TypeRichText, RichText: Text(s)}
}

// StatusValue builds a status property.
func StatusValue(name string) PropertyValue {
	return PropertyValue{Type: TypeStatus, Status: &SelectOption{Name: name}}
}

// SelectValue builds a select property.
func SelectValue(name string) PropertyValue {
	return PropertyValue{Type: TypeSelect, Select: &SelectOption{Name: name}}
}

// RelationValue builds a relation property referencing ids.
func RelationValue(ids ...string) PropertyValue {
	rel := make([]Relation, 0, len(ids))
	for _, id := range ids {
		rel = append(rel, Relation{ID: id})
	}
	return PropertyValue{Type: TypeRelation, Relation: rel}
}

// DateStart builds a date property with only a start value.
func DateStart(start string) PropertyValue {
	return PropertyValue{Type: TypeDate, Date: &DateValue{Start: start}}
}

// CheckboxValue builds a checkbox property.
func CheckboxValue(b bool) PropertyValue {
	return PropertyValue{Type: TypeCheckbox, Checkbox: b}
}

// NumberValue builds a number property.
func NumberValue(n float64) PropertyValue {
	return PropertyValue{Type: TypeNumber, Number: &n}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
