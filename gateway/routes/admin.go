package routes

import (
	"encoding/json"
	"math/big"
	"net/http"
)

// Admin routes sit behind the JWT middleware, so the authenticated caller
// acts as the configured operator when invoking ledger operations.

func (h *handlers) handleTriggerCycle(w http.ResponseWriter, r *http.Request) {
	newCycle, err := h.engine.TriggerCycle(r.Context(), h.engine.Operator())
	if err != nil {
		writeLedgerErr(w, err)
		return
	}
	h.metrics.ObserveCycleTransition()
	writeJSON(w, http.StatusOK, map[string]uint64{"cycle": newCycle})
}

type budgetRequest struct {
	Amount string `json:"amount"`
}

func (h *handlers) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeErr(w, http.StatusBadRequest, "amount must be a base-10 integer")
		return
	}
	if err := h.engine.SetNextBudget(h.engine.Operator(), amount); err != nil {
		writeLedgerErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pending": amount.String()})
}

type capRequest struct {
	Cap uint64 `json:"cap"`
}

func (h *handlers) handleSetCap(w http.ResponseWriter, r *http.Request) {
	var req capRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.engine.SetCap(h.engine.Operator(), req.Cap); err != nil {
		writeLedgerErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"cap": req.Cap})
}

type gateRequest struct {
	Required bool `json:"required"`
}

func (h *handlers) handleSetGate(w http.ResponseWriter, r *http.Request) {
	var req gateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.engine.SetGateRequired(h.engine.Operator(), req.Required); err != nil {
		writeLedgerErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"gateRequired": req.Required})
}

type withdrawRequest struct {
	Cycle uint64 `json:"cycle"`
}

func (h *handlers) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := h.engine.Withdraw(r.Context(), h.engine.Operator(), req.Cycle)
	if err != nil && amount == nil {
		writeLedgerErr(w, err)
		return
	}
	if err != nil {
		h.metrics.ObservePayout("error")
		h.logger.Error("withdrawal payout failed", "cycle", req.Cycle, "error", err)
	} else {
		h.metrics.ObservePayout("ok")
	}
	h.metrics.ObserveWithdrawal()
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount.String()})
}
