package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"juscat/native/rewards"
)

type submitParams struct {
	Actor string `json:"actor"`
}

type submitResult struct {
	Cycle  uint64 `json:"cycle"`
	Actor  string `json:"actor"`
	Count  uint64 `json:"count"`
	Reward string `json:"reward"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type setNextBudgetParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type setCapParams struct {
	Caller string `json:"caller"`
	Cap    uint64 `json:"cap"`
}

type setGateRequiredParams struct {
	Caller   string `json:"caller"`
	Required bool   `json:"required"`
}

type withdrawParams struct {
	Caller string `json:"caller"`
	Cycle  uint64 `json:"cycle"`
}

type withdrawResult struct {
	Cycle  uint64 `json:"cycle"`
	Amount string `json:"amount"`
}

type statsResult struct {
	CurrentCycle     uint64 `json:"currentCycle"`
	NextCycleBlock   uint64 `json:"nextCycleBlock"`
	MaxSubmissions   uint64 `json:"maxSubmissions"`
	TotalSubmissions uint64 `json:"totalSubmissions"`
	RewardsLeft      string `json:"rewardsLeft"`
	GateRequired     bool   `json:"gateRequired"`
	AccessGrants     uint64 `json:"accessGrants"`
}

type hasAccessParams struct {
	Actor string `json:"actor"`
}

type cycleInfoParams struct {
	Cycle uint64 `json:"cycle"`
}

type cycleInfoResult struct {
	Cycle           uint64 `json:"cycle"`
	BudgetTotal     string `json:"budgetTotal"`
	BudgetRemaining string `json:"budgetRemaining"`
	OpenedAtBlock   uint64 `json:"openedAtBlock"`
	NextBoundary    uint64 `json:"nextBoundary"`
	Withdrawn       bool   `json:"withdrawn"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) == 0 {
		return errors.New("missing parameters")
	}
	return json.Unmarshal(req.Params[0], out)
}

// ledgerErrorCode maps engine sentinels to HTTP statuses so callers can tell
// rejections apart from server faults.
func ledgerErrorStatus(err error) int {
	switch {
	case errors.Is(err, rewards.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, rewards.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, rewards.ErrCapExceeded):
		return http.StatusConflict
	case errors.Is(err, rewards.ErrTooEarly),
		errors.Is(err, rewards.ErrStillOpen),
		errors.Is(err, rewards.ErrAlreadyWithdrawn),
		errors.Is(err, rewards.ErrUnknownCycle),
		errors.Is(err, rewards.ErrInvalidAmount),
		errors.Is(err, rewards.ErrInvalidActor):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	status := ledgerErrorStatus(err)
	code := codeLedgerReject
	if status == http.StatusInternalServerError {
		code = codeServerError
	}
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params submitParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	receipt, err := s.engine.Submit(r.Context(), params.Actor)
	if err != nil && receipt == nil {
		s.observeSubmitFailure(err)
		writeLedgerError(w, req.ID, err)
		return
	}
	if err != nil {
		// Payout failed after the debit was applied; the submission stands
		// and the caller retries the transfer out of band.
		s.metrics.ObservePayout("error")
		s.logger.Error("payout failed after debit", "actor", receipt.Actor, "error", err)
	} else if receipt.Reward.Sign() > 0 {
		s.metrics.ObservePayout("ok")
	}
	if receipt.Reward.Sign() > 0 {
		s.metrics.ObserveSubmission("accepted")
	} else {
		s.metrics.ObserveSubmission("unrewarded")
	}
	writeResult(w, req.ID, submitResult{
		Cycle:  receipt.Cycle,
		Actor:  receipt.Actor,
		Count:  receipt.Count,
		Reward: receipt.Reward.String(),
	})
}

func (s *Server) observeSubmitFailure(err error) {
	switch {
	case errors.Is(err, rewards.ErrAccessDenied):
		s.metrics.ObserveSubmission("access_denied")
	case errors.Is(err, rewards.ErrCapExceeded):
		s.metrics.ObserveSubmission("cap_exceeded")
	default:
		s.metrics.ObserveSubmission("error")
	}
}

func (s *Server) handleTriggerCycle(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	newCycle, err := s.engine.TriggerCycle(r.Context(), params.Caller)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.ObserveCycleTransition()
	writeResult(w, req.ID, map[string]uint64{"cycle": newCycle})
}

func (s *Server) handleSetNextBudget(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setNextBudgetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	amount, ok := new(big.Int).SetString(params.Amount, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "amount must be a base-10 integer", params.Amount)
		return
	}
	if err := s.engine.SetNextBudget(params.Caller, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetCap(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setCapParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	if err := s.engine.SetCap(params.Caller, params.Cap); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleSetGateRequired(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setGateRequiredParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	if err := s.engine.SetGateRequired(params.Caller, params.Required); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params withdrawParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	amount, err := s.engine.Withdraw(r.Context(), params.Caller, params.Cycle)
	if err != nil && amount == nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if err != nil {
		s.metrics.ObservePayout("error")
		s.logger.Error("withdrawal payout failed", "cycle", params.Cycle, "error", err)
	} else {
		s.metrics.ObservePayout("ok")
	}
	s.metrics.ObserveWithdrawal()
	writeResult(w, req.ID, withdrawResult{Cycle: params.Cycle, Amount: amount.String()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	stats := s.engine.Stats()
	writeResult(w, req.ID, statsResult{
		CurrentCycle:     stats.CurrentCycle,
		NextCycleBlock:   stats.NextCycleBlock,
		MaxSubmissions:   stats.MaxSubmissions,
		TotalSubmissions: stats.TotalSubmissions,
		RewardsLeft:      stats.RewardsLeft.String(),
		GateRequired:     stats.GateRequired,
		AccessGrants:     stats.AccessGrants,
	})
}

func (s *Server) handleHasAccess(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params hasAccessParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	held, err := s.engine.HasAccess(r.Context(), params.Actor)
	if err != nil {
		s.metrics.ObserveRegistryLookup("error")
		writeError(w, http.StatusBadGateway, req.ID, codeServerError, "registry unavailable", err.Error())
		return
	}
	if held {
		s.metrics.ObserveRegistryLookup("hit")
	} else {
		s.metrics.ObserveRegistryLookup("miss")
	}
	writeResult(w, req.ID, held)
}

func (s *Server) handleCycleInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params cycleInfoParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	cycle, ok := s.engine.CycleInfo(params.Cycle)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeLedgerReject, "unknown cycle", params.Cycle)
		return
	}
	writeResult(w, req.ID, cycleInfoResult{
		Cycle:           cycle.ID,
		BudgetTotal:     cycle.BudgetTotal.String(),
		BudgetRemaining: cycle.BudgetRemaining.String(),
		OpenedAtBlock:   cycle.OpenedAtBlock,
		NextBoundary:    cycle.NextBoundary,
		Withdrawn:       cycle.Withdrawn,
	})
}
