package record_test

import (
	"strings"
	"testing"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/record"
	"github.com/WesleySmits/project-manager-bot-sub000/internal/testutil"
)

func TestClassify_EveryListedValue(t *testing.T) {
	for _, group := range record.StatusCategories {
		for _, v := range group.Values {
			variants := []string{v, strings.ToUpper(v), "  " + v + "\t"}
			for _, in := range variants {
				if got := record.Classify(in); got != group.Category {
					t.Errorf("Classify(%q) = %s, want %s", in, got, group.Category)
				}
			}
		}
	}
}

func TestClassify_ListsAreDisjoint(t *testing.T) {
	seen := map[string]record.StatusCategory{}
	for _, group := range record.StatusCategories {
		for _, v := range group.Values {
			if prev, ok := seen[v]; ok {
				t.Errorf("%q listed under both %s and %s", v, prev, group.Category)
			}
			seen[v] = group.Category
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	for _, in := range []string{"", "   ", "in progress!", "wip", "🚀", "done-ish"} {
		if got := record.Classify(in); got != record.CategoryUnknown {
			t.Errorf("Classify(%q) = %s, want UNKNOWN", in, got)
		}
	}
}

func TestProjectStatusCategory_Idempotent(t *testing.T) {
	p := testutil.NewPage("p").Status("In Progress").Build()
	first := record.ProjectStatusCategory(p)
	second := record.ProjectStatusCategory(p)
	if first != second || first != record.CategoryActive {
		t.Errorf("categories = %s, %s; want ACTIVE twice", first, second)
	}

	sel := testutil.NewPage("q").Prop(record.PropStatus, record.SelectValue("On Hold")).Build()
	if got := record.ProjectStatusCategory(sel); got != record.CategoryParked {
		t.Errorf("select Status = %s, want PARKED", got)
	}
}

func TestIsActiveProject(t *testing.T) {
	tests := []struct {
		name string
		page record.Page
		want bool
	}{
		{"active", testutil.NewPage("1").Status("Active").Build(), true},
		{"blocked", testutil.NewPage("2").Status("Active").Checkbox(record.PropBlocked, true).Build(), false},
		{"evergreen", testutil.NewPage("3").Status("Doing").Checkbox(record.PropEvergreen, true).Build(), false},
		{"ready", testutil.NewPage("4").Status("Ready").Build(), false},
		{"no status", testutil.NewPage("5").Build(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := record.IsActiveProject(tt.page); got != tt.want {
				t.Errorf("IsActiveProject() = %v, want %v", got, tt.want)
			}
		})
	}
}
