// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hatchlab/hatchd/internal/domain/reward"
	"github.com/hatchlab/hatchd/internal/domain/types"
)

// Dependencies bundles everything the HTTP handlers need from the
// service layer. An interface bundle keeps the handler layer loosely
// coupled to implementations in other packages.
type Dependencies interface {
	// Hatch resolves one egg for a subject. The returned bool reports a
	// duplicate request, in which case no new reward was drawn.
	Hatch(ctx context.Context, requestID, subjectID, eggID string) (types.Reward, bool, error)

	// ApplyEffect applies a stat modifier to a subject.
	ApplyEffect(ctx context.Context, subjectID, sourceID, statKey string, value float64, duration time.Duration, policy string) error

	// RemoveEffect removes all modifiers from (subjectID, sourceID,
	// statKey). Returns false when nothing matched.
	RemoveEffect(ctx context.Context, subjectID, sourceID, statKey string) (bool, error)

	// Effects lists a subject's active modifiers.
	Effects(ctx context.Context, subjectID string) []types.ModifierView

	// Aggregates returns a subject's per-stat aggregate bonuses.
	Aggregates(ctx context.Context, subjectID string) map[string]float64

	// Odds reports the effective rarity odds a subject currently sees for
	// one egg.
	Odds(ctx context.Context, eggID, subjectID string) ([]reward.Odds, error)

	// History lists recently recorded hatches, newest first.
	History(ctx context.Context, subjectID string, limit int) ([]types.HistoryEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	hatchHandler   *HatchHandler
	effectsHandler *EffectsHandler
	oddsHandler    *OddsHandler
	historyHandler *HistoryHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxHistoryLimit int) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		hatchHandler:   NewHatchHandler(deps),
		effectsHandler: NewEffectsHandler(deps),
		oddsHandler:    NewOddsHandler(deps),
		historyHandler: NewHistoryHandler(deps, maxHistoryLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/hatch", MetricsMiddleware(s.hatchHandler.HandlePostHatch, "hatch"))
	mux.HandleFunc("/effects", MetricsMiddleware(s.effectsHandler.HandleEffects, "effects"))
	mux.HandleFunc("/effects/", MetricsMiddleware(s.effectsHandler.HandleGetEffects, "effects_get"))
	mux.HandleFunc("/aggregates/", MetricsMiddleware(s.effectsHandler.HandleGetAggregates, "aggregates"))
	mux.HandleFunc("/odds", MetricsMiddleware(s.oddsHandler.HandleGetOdds, "odds"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
