package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hatchlab/hatchd/internal/adapters/http/api"
	"github.com/hatchlab/hatchd/internal/adapters/mq/queue"
	"github.com/hatchlab/hatchd/internal/domain/catalog"
	"github.com/hatchlab/hatchd/internal/domain/effects"
	"github.com/hatchlab/hatchd/internal/domain/reward"
	"github.com/hatchlab/hatchd/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type stubDeps struct {
	hatched    []string
	applied    []string
	removed    bool
	saturated  bool
	duplicates map[string]bool
	oddsErr    error
	history    []types.HistoryEntry
}

func newStubDeps() *stubDeps {
	return &stubDeps{duplicates: make(map[string]bool)}
}

func (s *stubDeps) Hatch(_ context.Context, requestID, subjectID, eggID string) (types.Reward, bool, error) {
	if eggID == "void" {
		return types.Reward{}, false, fmt.Errorf("%w: %q", catalog.ErrUnknownEgg, eggID)
	}
	if s.saturated {
		return types.Reward{}, false, fmt.Errorf("record hatch: %w", queue.ErrFull)
	}
	if s.duplicates[requestID] {
		return types.Reward{}, true, nil
	}
	s.duplicates[requestID] = true
	s.hatched = append(s.hatched, subjectID)
	return types.Reward{
		HatchID:    "hatch-1",
		EggID:      eggID,
		CategoryID: "bunny",
		RarityID:   "golden",
		Name:       "Bunny",
		Power:      2,
	}, false, nil
}

func (s *stubDeps) ApplyEffect(_ context.Context, subjectID, sourceID, statKey string, value float64, duration time.Duration, policy string) error {
	if _, err := effects.ParsePolicy(policy); err != nil {
		return err
	}
	s.applied = append(s.applied, subjectID+"/"+sourceID+"/"+statKey)
	return nil
}

func (s *stubDeps) RemoveEffect(_ context.Context, _, _, _ string) (bool, error) {
	return s.removed, nil
}

func (s *stubDeps) Effects(_ context.Context, subjectID string) []types.ModifierView {
	if subjectID != "amy" {
		return []types.ModifierView{}
	}
	return []types.ModifierView{
		{SourceID: "potion", StatKey: "luckBoost", Value: 0.5, SecondsLeft: 30},
	}
}

func (s *stubDeps) Aggregates(_ context.Context, subjectID string) map[string]float64 {
	if subjectID != "amy" {
		return map[string]float64{}
	}
	return map[string]float64{"luckBoost": 0.5}
}

func (s *stubDeps) Odds(_ context.Context, eggID, _ string) ([]reward.Odds, error) {
	if s.oddsErr != nil {
		return nil, s.oddsErr
	}
	if eggID == "void" {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownEgg, eggID)
	}
	return []reward.Odds{
		{RarityID: "golden", Probability: 0.05, Percent: "5%", OneIn: "1 in 20"},
		{RarityID: "basic", Probability: 0.95, Percent: "95%", OneIn: "guaranteed"},
	}, nil
}

func (s *stubDeps) History(_ context.Context, _ string, limit int) ([]types.HistoryEntry, error) {
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}

type stubStats struct{}

func (stubStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"total_hatches": int64(3)}
}

func newTestMux(deps *stubDeps) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, stubStats{}, 100)
	server.Register(context.Background(), mux)
	return mux
}

func postJSON(mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func doJSON(mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHatchEndpoint(t *testing.T) {
	Convey("Given the API routes", t, func() {
		deps := newStubDeps()
		mux := newTestMux(deps)

		Convey("When posting a valid hatch request", func() {
			rec := postJSON(mux, "/hatch", map[string]any{
				"request_id": "req-1",
				"subject_id": "amy",
				"egg_id":     "starter",
			})

			Convey("Then the resolved reward is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var resp struct {
					Status    string        `json:"status"`
					Duplicate bool          `json:"duplicate"`
					Reward    *types.Reward `json:"reward"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Status, ShouldEqual, "hatched")
				So(resp.Duplicate, ShouldBeFalse)
				So(resp.Reward, ShouldNotBeNil)
				So(resp.Reward.RarityID, ShouldEqual, "golden")
			})
		})

		Convey("When replaying the same request ID", func() {
			postJSON(mux, "/hatch", map[string]any{"request_id": "req-1", "subject_id": "amy", "egg_id": "starter"})
			rec := postJSON(mux, "/hatch", map[string]any{"request_id": "req-1", "subject_id": "amy", "egg_id": "starter"})

			Convey("Then the retry is acknowledged without a reward", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var resp struct {
					Status    string        `json:"status"`
					Duplicate bool          `json:"duplicate"`
					Reward    *types.Reward `json:"reward"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Duplicate, ShouldBeTrue)
				So(resp.Reward, ShouldBeNil)
				So(len(deps.hatched), ShouldEqual, 1)
			})
		})

		Convey("When the body is missing required fields", func() {
			rec := postJSON(mux, "/hatch", map[string]any{"subject_id": "amy"})

			Convey("Then a 400 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the egg is unknown", func() {
			rec := postJSON(mux, "/hatch", map[string]any{"request_id": "req-9", "subject_id": "amy", "egg_id": "void"})

			Convey("Then a 404 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the outcome queue is saturated", func() {
			deps.saturated = true
			rec := postJSON(mux, "/hatch", map[string]any{"request_id": "req-2", "subject_id": "amy", "egg_id": "starter"})

			Convey("Then a 429 with the backpressure code is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)

				var resp struct {
					Code string `json:"code"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "backpressure")
			})
		})

		Convey("When using the wrong method", func() {
			rec := doJSON(mux, http.MethodGet, "/hatch", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEffectsEndpoints(t *testing.T) {
	Convey("Given the API routes", t, func() {
		deps := newStubDeps()
		mux := newTestMux(deps)

		Convey("When applying a timed modifier", func() {
			rec := postJSON(mux, "/effects", map[string]any{
				"subject_id":       "amy",
				"source_id":        "potion",
				"stat_key":         "luckBoost",
				"value":            0.5,
				"duration_seconds": 30,
				"policy":           "reset",
			})

			Convey("Then it is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.applied, ShouldContain, "amy/potion/luckBoost")
			})
		})

		Convey("When applying a permanent modifier without duration", func() {
			rec := postJSON(mux, "/effects", map[string]any{
				"subject_id": "amy",
				"source_id":  "badge",
				"stat_key":   "luckBoost",
				"value":      1,
				"permanent":  true,
			})

			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the duration is missing and not permanent", func() {
			rec := postJSON(mux, "/effects", map[string]any{
				"subject_id": "amy",
				"source_id":  "potion",
				"stat_key":   "luckBoost",
				"value":      0.5,
			})

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the stacking policy is unknown", func() {
			rec := postJSON(mux, "/effects", map[string]any{
				"subject_id":       "amy",
				"source_id":        "potion",
				"stat_key":         "luckBoost",
				"value":            0.5,
				"duration_seconds": 30,
				"policy":           "sideways",
			})

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When removing a modifier", func() {
			deps.removed = true
			rec := doJSON(mux, http.MethodDelete, "/effects", map[string]any{
				"subject_id": "amy",
				"source_id":  "potion",
				"stat_key":   "luckBoost",
			})

			Convey("Then the removal outcome is reported", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var resp struct {
					Removed bool `json:"removed"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Removed, ShouldBeTrue)
			})
		})

		Convey("When listing a subject's modifiers", func() {
			rec := doJSON(mux, http.MethodGet, "/effects/amy", nil)

			Convey("Then the active modifiers are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var views []types.ModifierView
				So(json.Unmarshal(rec.Body.Bytes(), &views), ShouldBeNil)
				So(len(views), ShouldEqual, 1)
				So(views[0].SourceID, ShouldEqual, "potion")
			})
		})

		Convey("When fetching aggregates", func() {
			rec := doJSON(mux, http.MethodGet, "/aggregates/amy", nil)

			Convey("Then per-stat sums come back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var aggregates map[string]float64
				So(json.Unmarshal(rec.Body.Bytes(), &aggregates), ShouldBeNil)
				So(aggregates["luckBoost"], ShouldEqual, 0.5)
			})
		})

		Convey("When the subject path is malformed", func() {
			rec := doJSON(mux, http.MethodGet, "/effects/amy/extra", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOddsAndHistoryEndpoints(t *testing.T) {
	Convey("Given the API routes", t, func() {
		deps := newStubDeps()
		deps.history = []types.HistoryEntry{
			{HatchID: "hatch-2", SubjectID: "amy", EggID: "starter", CategoryID: "bunny", RarityID: "basic", At: time.Now()},
			{HatchID: "hatch-1", SubjectID: "amy", EggID: "starter", CategoryID: "bear", RarityID: "golden", At: time.Now()},
		}
		mux := newTestMux(deps)

		Convey("When fetching odds for a known egg", func() {
			rec := doJSON(mux, http.MethodGet, "/odds?egg_id=starter&subject_id=amy", nil)

			Convey("Then the effective odds are returned rarest-last-common", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var odds []reward.Odds
				So(json.Unmarshal(rec.Body.Bytes(), &odds), ShouldBeNil)
				So(len(odds), ShouldEqual, 2)
				So(odds[0].RarityID, ShouldEqual, "golden")
			})
		})

		Convey("When the egg_id is missing", func() {
			rec := doJSON(mux, http.MethodGet, "/odds", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the egg is unknown", func() {
			rec := doJSON(mux, http.MethodGet, "/odds?egg_id=void", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When fetching history", func() {
			rec := doJSON(mux, http.MethodGet, "/history?limit=2", nil)

			Convey("Then entries come back newest first", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var entries []types.HistoryEntry
				So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].HatchID, ShouldEqual, "hatch-2")
			})
		})

		Convey("When the history limit is not a number", func() {
			rec := doJSON(mux, http.MethodGet, "/history?limit=abc", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the history limit exceeds the maximum", func() {
			rec := doJSON(mux, http.MethodGet, "/history?limit=1000", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the API routes", t, func() {
		mux := newTestMux(newStubDeps())

		Convey("When fetching stats", func() {
			rec := doJSON(mux, http.MethodGet, "/stats", nil)

			Convey("Then the provider's snapshot is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var stats map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
				So(stats["total_hatches"], ShouldEqual, float64(3))
			})
		})
	})
}
