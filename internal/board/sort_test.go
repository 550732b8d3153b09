package board

import (
	"testing"
	"time"

	"github.com/fbastos/demandboard/internal/types"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func active(name string, forecast time.Time) types.Demand {
	return types.Demand{Name: name, Status: types.StatusInProgress, ForecastAt: forecast}
}

func finished(name string, at *time.Time) types.Demand {
	return types.Demand{Name: name, Status: types.StatusFinished, FinishedAt: at}
}

func names(ds []types.Demand) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

func assertNames(t *testing.T, got []types.Demand, want ...string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

func TestExtractComplement(t *testing.T) {
	if c, ok := ExtractComplement("Matrícula - Ana"); !ok || c != "Ana" {
		t.Errorf("got %q, %v", c, ok)
	}
	// Split on the first separator only.
	if c, _ := ExtractComplement("Matrícula - Ana - Silva"); c != "Ana - Silva" {
		t.Errorf("got %q", c)
	}
	if _, ok := ExtractComplement("Matrícula"); ok {
		t.Error("pure template name has no complement")
	}
}

func TestSortActive_ForecastThenComplement(t *testing.T) {
	s := NewSorter()
	ds := []types.Demand{
		active("Matrícula - Bruno", base),
		active("Matrícula", base),
		active("Matrícula - Ana", base),
		active("Rematrícula - Zeca", base.AddDate(0, 0, -1)),
	}
	got := s.SortActive(ds)
	assertNames(t, got, "Rematrícula - Zeca", "Matrícula - Ana", "Matrícula - Bruno", "Matrícula")
}

func TestSortActive_CollationIgnoresCase(t *testing.T) {
	s := NewSorter()
	ds := []types.Demand{
		active("Matrícula - bruno", base),
		active("Matrícula - Ana", base),
	}
	assertNames(t, s.SortActive(ds), "Matrícula - Ana", "Matrícula - bruno")
}

func TestSortActive_StableWithoutComplements(t *testing.T) {
	s := NewSorter()
	ds := []types.Demand{
		active("Rematrícula", base),
		active("Matrícula", base),
	}
	// Neither has a complement: input order is preserved.
	assertNames(t, s.SortActive(ds), "Rematrícula", "Matrícula")
}

func TestSortActive_DoesNotMutateInput(t *testing.T) {
	s := NewSorter()
	ds := []types.Demand{
		active("B - x", base.AddDate(0, 0, 1)),
		active("A - y", base),
	}
	s.SortActive(ds)
	if ds[0].Name != "B - x" {
		t.Error("input slice was reordered")
	}
}

func TestSortFinished(t *testing.T) {
	s := NewSorter()
	march := base
	january := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ds := []types.Demand{
		finished("Matrícula - Ana", &march),
		finished("Matrícula - Bruno", nil),
		finished("Matrícula - Carla", &january),
	}
	// Most recent first, never-finished last.
	got := s.SortFinished(ds)
	assertNames(t, got, "Matrícula - Ana", "Matrícula - Carla", "Matrícula - Bruno")
}

func TestSortFinished_TieBreakByComplement(t *testing.T) {
	s := NewSorter()
	at := base
	ds := []types.Demand{
		finished("Matrícula - Bruno", &at),
		finished("Matrícula", &at),
		finished("Matrícula - Ana", &at),
	}
	assertNames(t, s.SortFinished(ds), "Matrícula - Ana", "Matrícula - Bruno", "Matrícula")
}
