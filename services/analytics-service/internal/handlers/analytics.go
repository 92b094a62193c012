package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fitstart-app/backend/libs/auth"
	"github.com/fitstart-app/backend/libs/httpx"
	"github.com/fitstart-app/backend/services/analytics-service/internal/storage"
)

type AnalyticsHandler struct {
	logger *slog.Logger
	repo   *storage.InteractionRepository
}

func NewAnalyticsHandler(logger *slog.Logger, repo *storage.InteractionRepository) *AnalyticsHandler {
	return &AnalyticsHandler{logger: logger, repo: repo}
}

type dailyCountResponse struct {
	Day   string `json:"day"`
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// VenueSummary returns the venue's daily interaction counts. Venue owners
// call this from their dashboard; admins see any venue.
func (h *AnalyticsHandler) VenueSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := auth.ClaimsFromContext(ctx); !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	counts, err := h.repo.VenueSummary(ctx, r.PathValue("venueId"), days)
	if err != nil {
		h.logger.Error("venue summary", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]dailyCountResponse, len(counts))
	for i, c := range counts {
		data[i] = dailyCountResponse{
			Day:   c.Day.Format("2006-01-02"),
			Kind:  c.Kind,
			Count: c.Count,
		}
	}
	httpx.OK(w, data)
}

type topVenueResponse struct {
	VenueID string `json:"venueId"`
	Total   int64  `json:"total"`
}

// TopVenues is admin-only: it ranks venues across the whole marketplace.
func (h *AnalyticsHandler) TopVenues(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !claims.IsAdmin() {
		httpx.Error(w, http.StatusForbidden, "admin only")
		return
	}

	q := r.URL.Query()
	days, _ := strconv.Atoi(q.Get("days"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	venues, err := h.repo.TopVenues(ctx, days, limit)
	if err != nil {
		h.logger.Error("top venues", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]topVenueResponse, len(venues))
	for i, v := range venues {
		data[i] = topVenueResponse{VenueID: v.VenueID, Total: v.Total}
	}
	httpx.OK(w, data)
}
