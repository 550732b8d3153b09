package forms

import (
	"strings"

	"github.com/fbastos/demandboard/internal/types"
)

// ComplementName builds a demand's display name from the template name
// and the values of fields flagged complements_name, in field order.
// Group children contribute their first non-empty replica value. With
// no complement values the bare template name is returned.
func ComplementName(tpl *types.Template, values Values) string {
	var parts []string
	appendPart := func(fieldID string) {
		v, ok := ResolveValue(values, fieldID)
		if !ok {
			return
		}
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}

	for i := range tpl.Fields {
		f := &tpl.Fields[i]
		if f.IsGroup() {
			for j := range f.Children {
				if f.Children[j].ComplementsName {
					appendPart(f.Children[j].FieldID)
				}
			}
			continue
		}
		if f.ComplementsName {
			appendPart(f.FieldID)
		}
	}

	if len(parts) == 0 {
		return tpl.Name
	}
	return tpl.Name + " - " + strings.Join(parts, " ")
}
