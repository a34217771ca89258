package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"juscat/history"
	"juscat/native/rewards"
)

// Base64 photos from mobile clients run to a few megabytes.
const maxSubmissionBytes = 8 << 20

type submitRequest struct {
	Actor    string `json:"actor"`
	Image    string `json:"image"`
	DeviceID string `json:"deviceId,omitempty"`
}

type submitResponse struct {
	Cycle    uint64  `json:"cycle"`
	Actor    string  `json:"actor"`
	Count    uint64  `json:"count"`
	Reward   string  `json:"reward"`
	Validity float64 `json:"validity"`
}

// handleSubmit runs the full pipeline: duplicate check, authenticity scoring,
// then the ledger submission. The ledger is only touched once the photo has
// passed the cheaper checks.
func (h *handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" || req.Image == "" {
		writeErr(w, http.StatusBadRequest, "actor and image are required")
		return
	}

	fingerprint := history.Fingerprint(req.Image)
	if h.history != nil {
		duplicate, err := h.history.IsDuplicate(r.Context(), fingerprint)
		if err != nil {
			h.logger.Error("duplicate lookup failed", "error", err)
			writeErr(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		if duplicate {
			h.metrics.ObserveSubmission("duplicate")
			writeErr(w, http.StatusConflict, "image already submitted")
			return
		}
	}

	validity := 1.0
	if h.classifier != nil {
		result, err := h.classifier.ValidateImage(r.Context(), req.Image)
		if err != nil {
			h.logger.Error("classifier call failed", "actor", req.Actor, "error", err)
			writeErr(w, http.StatusBadGateway, "classifier unavailable")
			return
		}
		if result.ValidityFactor <= h.threshold {
			h.metrics.ObserveSubmission("invalid_image")
			reason := result.Reason
			if reason == "" {
				reason = "image did not pass validation"
			}
			writeErr(w, http.StatusUnprocessableEntity, reason)
			return
		}
		validity = result.ValidityFactor
	}

	receipt, err := h.engine.Submit(r.Context(), req.Actor)
	if err != nil && receipt == nil {
		h.observeSubmitFailure(err)
		writeLedgerErr(w, err)
		return
	}
	if err != nil {
		// Debit already applied; the transfer is retried out of band.
		h.metrics.ObservePayout("error")
		h.logger.Error("payout failed after debit", "actor", receipt.Actor, "error", err)
	} else if receipt.Reward.Sign() > 0 {
		h.metrics.ObservePayout("ok")
	}
	if receipt.Reward.Sign() > 0 {
		h.metrics.ObserveSubmission("accepted")
	} else {
		h.metrics.ObserveSubmission("unrewarded")
	}

	if h.history != nil {
		record := &history.Submission{
			Actor:       receipt.Actor,
			Cycle:       receipt.Cycle,
			Count:       receipt.Count,
			Reward:      receipt.Reward.String(),
			Validity:    validity,
			Fingerprint: fingerprint,
		}
		if err := h.history.Record(r.Context(), record); err != nil {
			// The ledger entry stands either way; losing the audit row is
			// recoverable, losing the debit is not.
			h.logger.Error("history record failed", "actor", receipt.Actor, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Cycle:    receipt.Cycle,
		Actor:    receipt.Actor,
		Count:    receipt.Count,
		Reward:   receipt.Reward.String(),
		Validity: validity,
	})
}

func (h *handlers) observeSubmitFailure(err error) {
	switch {
	case errors.Is(err, rewards.ErrAccessDenied):
		h.metrics.ObserveSubmission("access_denied")
	case errors.Is(err, rewards.ErrCapExceeded):
		h.metrics.ObserveSubmission("cap_exceeded")
	default:
		h.metrics.ObserveSubmission("error")
	}
}

func writeLedgerErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rewards.ErrUnauthorized), errors.Is(err, rewards.ErrAccessDenied):
		writeErr(w, http.StatusForbidden, err.Error())
	case errors.Is(err, rewards.ErrCapExceeded):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, rewards.ErrTooEarly),
		errors.Is(err, rewards.ErrStillOpen),
		errors.Is(err, rewards.ErrAlreadyWithdrawn),
		errors.Is(err, rewards.ErrUnknownCycle),
		errors.Is(err, rewards.ErrInvalidAmount),
		errors.Is(err, rewards.ErrInvalidActor):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}
