package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hatchlab/hatchd/internal/domain/effects"
)

// EffectsHandler handles modifier application, removal and listing.
type EffectsHandler struct {
	deps Dependencies
}

// NewEffectsHandler creates an effects handler.
func NewEffectsHandler(deps Dependencies) *EffectsHandler {
	return &EffectsHandler{deps: deps}
}

type applyEffectRequest struct {
	SubjectID string  `json:"subject_id"`
	SourceID  string  `json:"source_id"`
	StatKey   string  `json:"stat_key"`
	Value     float64 `json:"value"`
	// DurationSeconds is ignored when Permanent is set.
	DurationSeconds float64 `json:"duration_seconds"`
	Permanent       bool    `json:"permanent"`
	// Policy is one of extend_duration, reset, stack. Empty means stack.
	Policy string `json:"policy"`
}

func (e applyEffectRequest) validate() error {
	switch {
	case strings.TrimSpace(e.SubjectID) == "":
		return errors.New("missing subject_id")
	case strings.TrimSpace(e.SourceID) == "":
		return errors.New("missing source_id")
	case strings.TrimSpace(e.StatKey) == "":
		return errors.New("missing stat_key")
	case math.IsNaN(e.Value) || math.IsInf(e.Value, 0):
		return errors.New("value must be finite")
	case !e.Permanent && e.DurationSeconds <= 0:
		return errors.New("duration_seconds must be positive unless permanent")
	}
	return nil
}

func (e applyEffectRequest) duration() time.Duration {
	if e.Permanent {
		return effects.Permanent
	}
	return time.Duration(e.DurationSeconds * float64(time.Second))
}

type removeEffectRequest struct {
	SubjectID string `json:"subject_id"`
	SourceID  string `json:"source_id"`
	StatKey   string `json:"stat_key"`
}

func (e removeEffectRequest) validate() error {
	switch {
	case strings.TrimSpace(e.SubjectID) == "":
		return errors.New("missing subject_id")
	case strings.TrimSpace(e.SourceID) == "":
		return errors.New("missing source_id")
	case strings.TrimSpace(e.StatKey) == "":
		return errors.New("missing stat_key")
	}
	return nil
}

type removeEffectResponse struct {
	Status  string `json:"status"`
	Removed bool   `json:"removed"`
}

// HandleEffects dispatches POST and DELETE /effects requests.
func (h *EffectsHandler) HandleEffects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleApply(w, r)
	case http.MethodDelete:
		h.handleRemove(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *EffectsHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	const op = "api.apply_effect"

	var req applyEffectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	policy := req.Policy
	if policy == "" {
		policy = effects.Stack.String()
	}

	err := h.deps.ApplyEffect(r.Context(), req.SubjectID, req.SourceID, req.StatKey, req.Value, req.duration(), policy)
	if err != nil {
		if errors.Is(err, effects.ErrInvalidModifier) {
			writeError(w, http.StatusBadRequest, "invalid_modifier", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "applied"})
}

func (h *EffectsHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_effect"

	var req removeEffectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	removed, err := h.deps.RemoveEffect(r.Context(), req.SubjectID, req.SourceID, req.StatKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, removeEffectResponse{Status: "ok", Removed: removed})
}

// HandleGetEffects handles GET /effects/{subject_id} requests.
func (h *EffectsHandler) HandleGetEffects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	subjectID := strings.TrimPrefix(r.URL.Path, "/effects/")
	if subjectID == "" || strings.Contains(subjectID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Effects(r.Context(), subjectID))
}

// HandleGetAggregates handles GET /aggregates/{subject_id} requests.
func (h *EffectsHandler) HandleGetAggregates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	subjectID := strings.TrimPrefix(r.URL.Path, "/aggregates/")
	if subjectID == "" || strings.Contains(subjectID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Aggregates(r.Context(), subjectID))
}
