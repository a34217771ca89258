package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type statsResponse struct {
	CurrentCycle     uint64 `json:"currentCycle"`
	NextCycleBlock   uint64 `json:"nextCycleBlock"`
	MaxSubmissions   uint64 `json:"maxSubmissions"`
	TotalSubmissions uint64 `json:"totalSubmissions"`
	RewardsLeft      string `json:"rewardsLeft"`
	GateRequired     bool   `json:"gateRequired"`
	AccessGrants     uint64 `json:"accessGrants"`
	TotalPassports   uint64 `json:"totalPassports"`
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	// The registry count is best-effort; the local grant cache is the floor.
	totalPassports := stats.AccessGrants
	if h.passports != nil {
		if total, err := h.passports.TotalPassports(r.Context()); err == nil {
			totalPassports = total
		}
	}
	writeJSON(w, http.StatusOK, statsResponse{
		CurrentCycle:     stats.CurrentCycle,
		NextCycleBlock:   stats.NextCycleBlock,
		MaxSubmissions:   stats.MaxSubmissions,
		TotalSubmissions: stats.TotalSubmissions,
		RewardsLeft:      stats.RewardsLeft.String(),
		GateRequired:     stats.GateRequired,
		AccessGrants:     stats.AccessGrants,
		TotalPassports:   totalPassports,
	})
}

type preflightResponse struct {
	Actor           string `json:"actor"`
	HasAccess       bool   `json:"hasAccess"`
	SubmissionsUsed uint64 `json:"submissionsUsed"`
	MaxSubmissions  uint64 `json:"maxSubmissions"`
	RewardsLeft     string `json:"rewardsLeft"`
}

// handlePreflight lets clients check access, remaining quota and the pool
// balance before spending classification work on a photo.
func (h *handlers) handlePreflight(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	held, err := h.engine.HasAccess(r.Context(), actor)
	if err != nil {
		h.metrics.ObserveRegistryLookup("error")
		writeErr(w, http.StatusBadGateway, "passport registry unavailable")
		return
	}
	stats := h.engine.Stats()
	writeJSON(w, http.StatusOK, preflightResponse{
		Actor:           actor,
		HasAccess:       held,
		SubmissionsUsed: h.engine.SubmissionCount(stats.CurrentCycle, actor),
		MaxSubmissions:  stats.MaxSubmissions,
		RewardsLeft:     stats.RewardsLeft.String(),
	})
}

type passportResponse struct {
	Actor     string `json:"actor"`
	HasAccess bool   `json:"hasAccess"`
}

func (h *handlers) handlePassport(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	held, err := h.engine.HasAccess(r.Context(), actor)
	if err != nil {
		h.metrics.ObserveRegistryLookup("error")
		h.logger.Error("passport lookup failed", "actor", actor, "error", err)
		writeErr(w, http.StatusBadGateway, "passport registry unavailable")
		return
	}
	if held {
		h.metrics.ObserveRegistryLookup("hit")
	} else {
		h.metrics.ObserveRegistryLookup("miss")
	}
	writeJSON(w, http.StatusOK, passportResponse{Actor: actor, HasAccess: held})
}

type cycleResponse struct {
	Cycle           uint64 `json:"cycle"`
	BudgetTotal     string `json:"budgetTotal"`
	BudgetRemaining string `json:"budgetRemaining"`
	OpenedAtBlock   uint64 `json:"openedAtBlock"`
	NextBoundary    uint64 `json:"nextBoundary"`
	Withdrawn       bool   `json:"withdrawn"`
}

func (h *handlers) handleCycleInfo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "cycle"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "cycle must be a non-negative integer")
		return
	}
	cycle, ok := h.engine.CycleInfo(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown cycle")
		return
	}
	writeJSON(w, http.StatusOK, cycleResponse{
		Cycle:           cycle.ID,
		BudgetTotal:     cycle.BudgetTotal.String(),
		BudgetRemaining: cycle.BudgetRemaining.String(),
		OpenedAtBlock:   cycle.OpenedAtBlock,
		NextBoundary:    cycle.NextBoundary,
		Withdrawn:       cycle.Withdrawn,
	})
}

type historyEntry struct {
	Cycle     uint64  `json:"cycle"`
	Count     uint64  `json:"count"`
	Reward    string  `json:"reward"`
	Validity  float64 `json:"validity"`
	CreatedAt string  `json:"createdAt"`
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeErr(w, http.StatusNotFound, "history is not enabled")
		return
	}
	actor := chi.URLParam(r, "actor")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	records, err := h.history.ByActor(r.Context(), actor, limit)
	if err != nil {
		h.logger.Error("history lookup failed", "actor", actor, "error", err)
		writeErr(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			Cycle:     record.Cycle,
			Count:     record.Count,
			Reward:    record.Reward,
			Validity:  record.Validity,
			CreatedAt: record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}
