package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/fbastos/demandboard/internal/board"
	"github.com/fbastos/demandboard/internal/deadline"
	"github.com/fbastos/demandboard/internal/store"
	"github.com/fbastos/demandboard/internal/types"
)

// BoardHandler serves the Kanban board view: filtered, sorted columns
// with per-card deadline health.
type BoardHandler struct {
	store  *store.Store
	sorter *board.Sorter
	now    func() time.Time
}

// NewBoardHandler creates a BoardHandler.
func NewBoardHandler(s *store.Store) *BoardHandler {
	return &BoardHandler{store: s, sorter: board.NewSorter(), now: time.Now}
}

// Card is one demand on the board, annotated with its computed
// deadline health and a fresh on-time value.
type Card struct {
	types.Demand
	Health deadline.Health `json:"health"`
}

type boardResponse struct {
	Created    []Card `json:"created"`
	InProgress []Card `json:"in_progress"`
	Finished   []Card `json:"finished"`
}

// Board handles GET /v1/board. Query params: period (months, "all" or
// "custom"), start, end (RFC 3339, custom period only), owner,
// template, status (comma-separated), bucket ("dentro", "atrasado").
func (h *BoardHandler) Board(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}

	demands, err := h.store.ListDemands(r.Context())
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}

	now := h.now()
	filtered := board.Apply(now, demands, filters)

	byStatus := map[types.DemandStatus][]types.Demand{}
	for _, d := range filtered {
		byStatus[d.Status] = append(byStatus[d.Status], d)
	}

	resp := boardResponse{
		Created:    h.cards(now, h.sorter.SortActive(byStatus[types.StatusCreated])),
		InProgress: h.cards(now, h.sorter.SortActive(byStatus[types.StatusInProgress])),
		Finished:   h.cards(now, h.sorter.SortFinished(byStatus[types.StatusFinished])),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BoardHandler) cards(now time.Time, demands []types.Demand) []Card {
	out := make([]Card, len(demands))
	for i, d := range demands {
		d.OnTime = deadline.OnTime(now, d.CreatedAt, d.FinishedAt, d.ExpectedDurationDays)
		out[i] = Card{
			Demand: d,
			Health: deadline.Classify(now, d.ForecastAt, d.FinishedAt),
		}
	}
	return out
}

func parseFilters(w http.ResponseWriter, r *http.Request) (board.Filters, bool) {
	q := r.URL.Query()
	f := board.Filters{
		PeriodPreset: q.Get("period"),
		OwnerID:      q.Get("owner"),
		TemplateID:   q.Get("template"),
		Bucket:       q.Get("bucket"),
	}

	if raw := q.Get("status"); raw != "" {
		f.Statuses = make(map[types.DemandStatus]bool)
		for _, s := range strings.Split(raw, ",") {
			st := types.DemandStatus(strings.TrimSpace(s))
			if !st.Valid() {
				writeError(w, http.StatusBadRequest, "INVALID_STATUS", "unknown status: "+string(st))
				return board.Filters{}, false
			}
			f.Statuses[st] = true
		}
	}

	for name, dst := range map[string]**time.Time{"start": &f.CustomStart, "end": &f.CustomEnd} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_DATE", name+" must be RFC 3339")
				return board.Filters{}, false
			}
			*dst = &t
		}
	}
	return f, true
}
