package api

import (
	"errors"
	"net/http"

	"github.com/hatchlab/hatchd/internal/domain/catalog"
)

// OddsHandler handles effective-odds queries.
type OddsHandler struct {
	deps Dependencies
}

// NewOddsHandler creates an odds handler.
func NewOddsHandler(deps Dependencies) *OddsHandler {
	return &OddsHandler{deps: deps}
}

// HandleGetOdds handles GET /odds?egg_id=X&subject_id=Y requests. An
// empty subject_id reports the unboosted base odds.
func (h *OddsHandler) HandleGetOdds(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_odds"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	eggID := r.URL.Query().Get("egg_id")
	if eggID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	subjectID := r.URL.Query().Get("subject_id")

	odds, err := h.deps.Odds(r.Context(), eggID, subjectID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownEgg) {
			writeError(w, http.StatusNotFound, "unknown_egg", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, odds)
}
