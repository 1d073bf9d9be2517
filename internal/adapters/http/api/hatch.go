package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hatchlab/hatchd/internal/adapters/mq/queue"
	"github.com/hatchlab/hatchd/internal/domain/catalog"
	"github.com/hatchlab/hatchd/internal/domain/types"
)

// HatchHandler handles hatch requests.
type HatchHandler struct {
	deps Dependencies
}

// NewHatchHandler creates a hatch handler.
func NewHatchHandler(deps Dependencies) *HatchHandler {
	return &HatchHandler{deps: deps}
}

type hatchRequest struct {
	RequestID string `json:"request_id"`
	SubjectID string `json:"subject_id"`
	EggID     string `json:"egg_id"`
}

func (h hatchRequest) validate() error {
	switch {
	case strings.TrimSpace(h.SubjectID) == "":
		return errors.New("missing subject_id")
	case strings.TrimSpace(h.EggID) == "":
		return errors.New("missing egg_id")
	}
	return nil
}

type hatchResponse struct {
	Status    string        `json:"status"`
	Duplicate bool          `json:"duplicate"`
	Reward    *types.Reward `json:"reward,omitempty"`
}

// HandlePostHatch handles POST /hatch requests.
func (h *HatchHandler) HandlePostHatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_hatch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req hatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	resolved, duplicate, err := h.deps.Hatch(r.Context(), req.RequestID, req.SubjectID, req.EggID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownEgg) {
			writeError(w, http.StatusNotFound, "unknown_egg", err)
			return
		}
		if errors.Is(err, queue.ErrFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if duplicate {
		writeJSON(w, http.StatusOK, hatchResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusOK, hatchResponse{Status: "hatched", Reward: &resolved})
}
