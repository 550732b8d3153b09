package forms

import (
	"sort"

	"github.com/fbastos/demandboard/internal/types"
)

// DefaultTabID identifies the implicit tab used by templates that
// declare no tabs of their own.
const DefaultTabID = "general"

// DefaultTab is the implicit single tab for templates without tabs.
var DefaultTab = types.Tab{ID: DefaultTabID, Name: "Geral", Order: 0}

// TabsOrDefault returns the template's tabs ordered by their declared
// order, or the implicit default tab when the template declares none.
func TabsOrDefault(tpl *types.Template) []types.Tab {
	if len(tpl.Tabs) == 0 {
		return []types.Tab{DefaultTab}
	}
	tabs := make([]types.Tab, len(tpl.Tabs))
	copy(tabs, tpl.Tabs)
	sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].Order < tabs[j].Order })
	return tabs
}

// OrderedVisibleFields filters fields to the given tab, orders them by
// the field's per-tab order hint, and drops non-group fields whose
// visibility condition evaluates false.
//
// Fields without an order hint for the tab sort after all fields that
// have one, preserving their relative position within the tab. Group
// fields are never hidden by a condition — conditions only apply to a
// group's children once the group is rendered.
func OrderedVisibleFields(fields []types.FieldDefinition, tabID string, values Values) []types.FieldDefinition {
	filtered := make([]types.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		if onTab(f, tabID) {
			filtered = append(filtered, f)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		oi, iok := tabOrder(filtered[i], tabID)
		oj, jok := tabOrder(filtered[j], tabID)
		if iok && jok {
			return oi < oj
		}
		return iok && !jok
	})

	visible := make([]types.FieldDefinition, 0, len(filtered))
	for _, f := range filtered {
		if f.IsGroup() || Evaluate(f.Visibility, values) {
			visible = append(visible, f)
		}
	}
	return visible
}

// onTab reports tab membership. The implicit default tab is a
// catch-all only for fields that declare no tabs of their own; a
// declared tab that happens to reuse the id "general" filters by
// membership like any other tab.
func onTab(f types.FieldDefinition, tabID string) bool {
	for _, id := range f.TabIDs {
		if id == tabID {
			return true
		}
	}
	return tabID == DefaultTabID && len(f.TabIDs) == 0
}

func tabOrder(f types.FieldDefinition, tabID string) (int, bool) {
	if f.TabOrder == nil {
		return 0, false
	}
	o, ok := f.TabOrder[tabID]
	return o, ok
}
