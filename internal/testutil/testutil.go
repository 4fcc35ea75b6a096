// Package testutil provides page builders and an in-memory fake of the
// workspace API so higher layers can be tested over real HTTP.
package testutil

import (
	"os"
	"testing"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
)

// PageBuilder assembles a record.Page fluently.
type PageBuilder struct {
	p record.Page
}

// NewPage starts a page with the given id and a derived URL.
func NewPage(id string) *PageBuilder {
	return &PageBuilder{p: record.Page{
		ID:         id,
		URL:        "https://www.notion.so/" + record.NormalizeID(id),
		Properties: map[string]record.PropertyValue{},
	}}
}

// Title sets the canonical title property ("Name").
func (b *PageBuilder) Title(s string) *PageBuilder {
	return b.Prop("Name", record.TitleValue(s))
}

// Text sets a rich_text property.
func (b *PageBuilder) Text(name, s string) *PageBuilder {
	return b.Prop(name, record.RichTextValue(s))
}

// Status sets the Status property as a status-typed value.
func (b *PageBuilder) Status(name string) *PageBuilder {
	return b.Prop(record.PropStatus, record.StatusValue(name))
}

// Priority sets the Priority property as a select.
func (b *PageBuilder) Priority(name string) *PageBuilder {
	return b.Prop(record.PropPriority, record.SelectValue(name))
}

// Date sets a date property.
func (b *PageBuilder) Date(name, start string) *PageBuilder {
	return b.Prop(name, record.DateStart(start))
}

// Relation sets a relation property.
func (b *PageBuilder) Relation(name string, ids ...string) *PageBuilder {
	return b.Prop(name, record.RelationValue(ids...))
}

// Checkbox sets a checkbox property.
func (b *PageBuilder) Checkbox(name string, v bool) *PageBuilder {
	return b.Prop(name, record.CheckboxValue(v))
}

// Prop sets an arbitrary property.
func (b *PageBuilder) Prop(name string, v record.PropertyValue) *PageBuilder {
	b.p.Properties[name] = v
	return b
}

// Build returns the page.
func (b *PageBuilder) Build() record.Page {
	return b.p
}

// TestDB returns a path for a temporary SQLite database that is removed after the test.
func TestDB(t *testing.T) string {
	t.Helper()
	dbFile, err := os.CreateTemp("", "pmbot-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	return dbFile.Name()
}
