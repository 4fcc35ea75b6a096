// Package record defines the workspace page model and the defensive
// property accessors that interpret a page as a task, project, or goal.
package record

import "time"

// Property type discriminators as reported by the data source.
const (
	TypeTitle    = "title"
	TypeRichText = "rich_text"
	TypeStatus   = "status"
	TypeSelect   = "select"
	TypeRelation = "relation"
	TypeDate     = "date"
	TypeCheckbox = "checkbox"
	TypeNumber   = "number"
)

// Page is a generic workspace record: an identifier plus a bag of named properties.
type Page struct {
	ID             string                   `json:"id"`
	URL            string                   `json:"url"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// PropertyValue is a tagged union keyed by Type. Only the field matching Type
// is meaningful; the others are left at their zero value.
type PropertyValue struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type"`
	Title    []RichText    `json:"title,omitempty"`
	RichText []RichText    `json:"rich_text,omitempty"`
	Status   *SelectOption `json:"status,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
	Relation []Relation    `json:"relation,omitempty"`
	Date     *DateValue    `json:"date,omitempty"`
	Checkbox bool          `json:"checkbox,omitempty"`
	Number   *float64      `json:"number,omitempty"`
}

// RichText is a single text run. PlainText is what the source reports on
// read; Text carries the content on write.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
}

// TextContent is the writable content of a text run.
type TextContent struct {
	Content string `json:"content"`
}

// SelectOption is a named option of a status or select property.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Relation references another page by id.
type Relation struct {
	ID string `json:"id"`
}

// DateValue holds ISO date or datetime strings.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// Text builds a title or rich_text run list from a single string.
func Text(s string) []RichText {
	return []RichText{{Type: "text", PlainText: s, Text: &TextContent{Content: s}}}
}
