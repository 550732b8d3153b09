// Package board produces the dashboard views over demand collections:
// the canonical per-column orderings and the compound dashboard filter.
// Like the form engine, everything is pure and leaves its inputs alone.
package board

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/fbastos/demandboard/internal/types"
)

// nameSeparator splits a display name into "<Template> - <Complement>".
const nameSeparator = " - "

// ExtractComplement returns the part of a demand name after the first
// " - " separator. ok is false for a pure template name.
func ExtractComplement(name string) (complement string, ok bool) {
	_, after, found := strings.Cut(name, nameSeparator)
	return after, found
}

// Sorter orders demands within a status column. The zero value is not
// usable; construct with NewSorter.
type Sorter struct {
	collator *collate.Collator
}

// NewSorter returns a Sorter collating complements case-insensitively
// in Brazilian Portuguese, the locale of the source data.
func NewSorter() *Sorter {
	return NewSorterWithCollator(collate.New(language.BrazilianPortuguese, collate.IgnoreCase))
}

// NewSorterWithCollator returns a Sorter using the given collator for
// complement comparison.
func NewSorterWithCollator(c *collate.Collator) *Sorter {
	return &Sorter{collator: c}
}

// SortActive returns the Created/InProgress column ordering: forecast
// date ascending, ties broken by name complement. The sort is stable
// and the input slice is not modified.
func (s *Sorter) SortActive(demands []types.Demand) []types.Demand {
	out := append([]types.Demand(nil), demands...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ForecastAt.Equal(out[j].ForecastAt) {
			return out[i].ForecastAt.Before(out[j].ForecastAt)
		}
		return s.compareComplements(out[i].Name, out[j].Name) < 0
	})
	return out
}

// SortFinished returns the Finished column ordering: finish date
// descending with never-finished demands last, ties broken by name
// complement. Stable; input untouched.
func (s *Sorter) SortFinished(demands []types.Demand) []types.Demand {
	out := append([]types.Demand(nil), demands...)
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].FinishedAt, out[j].FinishedAt
		switch {
		case fi == nil && fj == nil:
			return s.compareComplements(out[i].Name, out[j].Name) < 0
		case fi == nil:
			return false
		case fj == nil:
			return true
		case !fi.Equal(*fj):
			return fi.After(*fj)
		}
		return s.compareComplements(out[i].Name, out[j].Name) < 0
	})
	return out
}

// compareComplements orders by name complement: locale collation when
// both names have one, a demand without a complement after one that
// has one, and equal (stable order preserved) when neither does.
func (s *Sorter) compareComplements(a, b string) int {
	ca, aok := ExtractComplement(a)
	cb, bok := ExtractComplement(b)
	switch {
	case aok && bok:
		return s.collator.CompareString(ca, cb)
	case aok:
		return -1
	case bok:
		return 1
	}
	return 0
}
