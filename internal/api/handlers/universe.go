package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/internal/s1_universe"
	"github.com/wonny/universe/pkg/logger"
)

const dateLayout = "2006-01-02"

// UniverseHandler serves universe snapshots and on-demand builds
// ⭐ SSOT: 유니버스 API 핸들러는 이 구조체에서만
type UniverseHandler struct {
	builder contracts.UniverseBuilder
	store   contracts.UniverseStore
	screen  pipeline.Filter
	logger  *logger.Logger
}

// NewUniverseHandler creates a new universe handler
func NewUniverseHandler(
	builder contracts.UniverseBuilder,
	store contracts.UniverseStore,
	screen pipeline.Filter,
	log *logger.Logger,
) *UniverseHandler {
	return &UniverseHandler{
		builder: builder,
		store:   store,
		screen:  screen,
		logger:  log,
	}
}

// ScreenResponse describes the active screen
type ScreenResponse struct {
	Expression string   `json:"expression"`
	Hash       string   `json:"hash"`
	Columns    []string `json:"columns"`
	Lookback   int      `json:"lookback"`
}

// MembershipResponse reports whether one stock is in a universe
type MembershipResponse struct {
	Code     string    `json:"code"`
	Date     time.Time `json:"date"`
	Included bool      `json:"included"`
	Reason   string    `json:"reason,omitempty"`
}

// GetUniverse returns the snapshot for ?date=, or the latest one
// GET /api/universe
func (h *UniverseHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	universe, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, universe)
}

// GetLatest returns the most recent snapshot
// GET /api/universe/latest
func (h *UniverseHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	universe, err := h.store.GetLatestUniverse(r.Context())
	if !h.handleStoreError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, universe)
}

// GetMembership explains whether {code} passed the screen
// GET /api/universe/stocks/{code}
func (h *UniverseHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	universe, ok := h.lookup(w, r)
	if !ok {
		return
	}

	resp := MembershipResponse{
		Code:     code,
		Date:     universe.Date,
		Included: universe.Contains(code),
	}
	if !resp.Included {
		excluded, reason := universe.IsExcluded(code)
		if !excluded {
			respondError(w, http.StatusNotFound, "Stock not screened on this date")
			return
		}
		resp.Reason = reason
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetScreen describes the screen the builder runs
// GET /api/universe/screen
func (h *UniverseHandler) GetScreen(w http.ResponseWriter, r *http.Request) {
	hash, err := h.screen.Hash()
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash screen")
		respondError(w, http.StatusInternalServerError, "Failed to describe screen")
		return
	}

	respondJSON(w, http.StatusOK, ScreenResponse{
		Expression: h.screen.String(),
		Hash:       hash,
		Columns:    h.screen.Columns(),
		Lookback:   h.screen.Lookback(),
	})
}

// Build builds and stores the universe for ?date= (default today)
// POST /api/universe/build
func (h *UniverseHandler) Build(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)")
			return
		}
		date = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	universe, err := h.builder.Build(ctx, date)
	if errors.Is(err, pipeline.ErrNoSessions) {
		respondError(w, http.StatusNotFound, "No trading session on this date")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to build universe")
		respondError(w, http.StatusInternalServerError, "Failed to build universe")
		return
	}

	if err := h.store.SaveUniverse(ctx, universe); err != nil {
		h.logger.WithError(err).Error("Failed to save universe")
		respondError(w, http.StatusInternalServerError, "Failed to save universe")
		return
	}

	respondJSON(w, http.StatusCreated, universe)
}

func (h *UniverseHandler) lookup(w http.ResponseWriter, r *http.Request) (*contracts.Universe, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		universe, err := h.store.GetLatestUniverse(r.Context())
		return universe, h.handleStoreError(w, err)
	}

	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)")
		return nil, false
	}

	universe, err := h.store.GetUniverse(r.Context(), date)
	return universe, h.handleStoreError(w, err)
}

func (h *UniverseHandler) handleStoreError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, s1_universe.ErrNotFound):
		respondError(w, http.StatusNotFound, "Universe not found")
	default:
		h.logger.WithError(err).Error("Failed to get universe")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve universe")
	}
	return false
}
