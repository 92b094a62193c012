package handlers

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fitstart-app/backend/libs/auth"
	"github.com/fitstart-app/backend/libs/httpx"
	"github.com/fitstart-app/backend/libs/outbox"
	"github.com/fitstart-app/backend/services/venue-service/internal/model"
	"github.com/fitstart-app/backend/services/venue-service/internal/storage"
)

const (
	topicVenueUpdated        = "venue.updated.v1"
	topicInteractionRecorded = "interaction.recorded.v1"
)

type VenueHandler struct {
	logger    *slog.Logger
	venues    *storage.VenueRepository
	outbox    *outbox.Repository
	jwtSecret string
}

func NewVenueHandler(logger *slog.Logger, venues *storage.VenueRepository, ob *outbox.Repository, jwtSecret string) *VenueHandler {
	return &VenueHandler{logger: logger, venues: venues, outbox: ob, jwtSecret: jwtSecret}
}

type venueResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	HourlyRate   int64     `json:"hourlyRate"`
	Currency     string    `json:"currency"`
	OpenTime     string    `json:"openTime"`
	CloseTime    string    `json:"closeTime"`
	Amenities    []string  `json:"amenities"`
	Images       []string  `json:"images"`
	BookingCount int64     `json:"bookingCount"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toResponse(v model.Venue) venueResponse {
	if v.Amenities == nil {
		v.Amenities = []string{}
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	return venueResponse{
		ID:           v.ID,
		OwnerID:      v.OwnerID,
		Name:         v.Name,
		Description:  v.Description,
		Category:     v.Category,
		Address:      v.Address,
		City:         v.City,
		HourlyRate:   v.HourlyRate,
		Currency:     v.Currency,
		OpenTime:     v.OpenTime,
		CloseTime:    v.CloseTime,
		Amenities:    v.Amenities,
		Images:       v.Images,
		BookingCount: v.BookingCount,
		IsActive:     v.IsActive,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

type venueRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	HourlyRate  int64    `json:"hourlyRate"`
	Currency    string   `json:"currency"`
	OpenTime    string   `json:"openTime"`
	CloseTime   string   `json:"closeTime"`
	Amenities   []string `json:"amenities"`
	Images      []string `json:"images"`
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return false
	}
	return true
}

func (req *venueRequest) validate() []httpx.FieldError {
	var errs []httpx.FieldError
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, httpx.FieldError{Field: "name", Message: "name is required"})
	}
	if !model.Categories[req.Category] {
		errs = append(errs, httpx.FieldError{Field: "category", Message: "unknown category"})
	}
	if req.HourlyRate <= 0 {
		errs = append(errs, httpx.FieldError{Field: "hourlyRate", Message: "hourlyRate must be positive"})
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}
	if req.OpenTime == "" {
		req.OpenTime = "06:00"
	}
	if req.CloseTime == "" {
		req.CloseTime = "23:00"
	}
	if !validClock(req.OpenTime) || !validClock(req.CloseTime) || req.OpenTime >= req.CloseTime {
		errs = append(errs, httpx.FieldError{Field: "openTime", Message: "operating hours must be HH:MM with openTime before closeTime"})
	}
	return errs
}

type venueUpdatedEvent struct {
	VenueID    string `json:"venueId"`
	OwnerID    string `json:"ownerId"`
	Name       string `json:"name"`
	HourlyRate int64  `json:"hourlyRate"`
	Currency   string `json:"currency"`
	OpenTime   string `json:"openTime"`
	CloseTime  string `json:"closeTime"`
	IsActive   bool   `json:"isActive"`
}

type interactionEvent struct {
	UserID          string    `json:"userId"`
	VenueID         string    `json:"venueId"`
	InteractionType string    `json:"interactionType"`
	OccurredAt      time.Time `json:"occurredAt"`
}

func venueUpdatedPayload(v model.Venue) []byte {
	payload, _ := json.Marshal(venueUpdatedEvent{
		VenueID:    v.ID,
		OwnerID:    v.OwnerID,
		Name:       v.Name,
		HourlyRate: v.HourlyRate,
		Currency:   v.Currency,
		OpenTime:   v.OpenTime,
		CloseTime:  v.CloseTime,
		IsActive:   v.IsActive,
	})
	return payload
}

func (h *VenueHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req venueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httpx.ValidationFailed(w, "Validation failed", errs)
		return
	}

	venue := model.Venue{
		OwnerID:     claims.Sub,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Address:     req.Address,
		City:        req.City,
		HourlyRate:  req.HourlyRate,
		Currency:    req.Currency,
		OpenTime:    req.OpenTime,
		CloseTime:   req.CloseTime,
		Amenities:   req.Amenities,
		Images:      req.Images,
	}
	if venue.Amenities == nil {
		venue.Amenities = []string{}
	}
	if venue.Images == nil {
		venue.Images = []string{}
	}

	tx, err := h.venues.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	if err := h.venues.Create(ctx, tx, &venue); err != nil {
		h.logger.Error("insert venue", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "venue",
		AggregateID:   venue.ID,
		EventType:     topicVenueUpdated,
		Payload:       venueUpdatedPayload(venue),
	}); err != nil {
		h.logger.Error("insert outbox event", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit venue", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("venue created", "venue_id", venue.ID, "owner_id", venue.OwnerID)
	httpx.Created(w, toResponse(venue))
}

func (h *VenueHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")

	var req venueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		httpx.ValidationFailed(w, "Validation failed", errs)
		return
	}

	tx, err := h.venues.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	venue, err := h.venues.GetForUpdate(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.logger.Error("load venue", "error", err, "venue_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if venue.OwnerID != claims.Sub && !claims.IsAdmin() {
		httpx.Error(w, http.StatusForbidden, "not the venue owner")
		return
	}

	venue.Name = strings.TrimSpace(req.Name)
	venue.Description = req.Description
	venue.Category = req.Category
	venue.Address = req.Address
	venue.City = req.City
	venue.HourlyRate = req.HourlyRate
	venue.Currency = req.Currency
	venue.OpenTime = req.OpenTime
	venue.CloseTime = req.CloseTime
	venue.Amenities = req.Amenities
	venue.Images = req.Images
	if venue.Amenities == nil {
		venue.Amenities = []string{}
	}
	if venue.Images == nil {
		venue.Images = []string{}
	}

	if err := h.venues.Update(ctx, tx, &venue); err != nil {
		h.logger.Error("update venue", "error", err, "venue_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "venue",
		AggregateID:   venue.ID,
		EventType:     topicVenueUpdated,
		Payload:       venueUpdatedPayload(venue),
	}); err != nil {
		h.logger.Error("insert outbox event", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit venue", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.OKMessage(w, "Venue updated successfully", toResponse(venue))
}

// Delete deactivates the venue. Existing bookings keep their snapshot data;
// new bookings against it are refused once the read models converge.
func (h *VenueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")

	tx, err := h.venues.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	venue, err := h.venues.GetForUpdate(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.logger.Error("load venue", "error", err, "venue_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if venue.OwnerID != claims.Sub && !claims.IsAdmin() {
		httpx.Error(w, http.StatusForbidden, "not the venue owner")
		return
	}

	if err := h.venues.Deactivate(ctx, tx, id); err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusConflict, "venue is already deactivated")
			return
		}
		h.logger.Error("deactivate venue", "error", err, "venue_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	venue.IsActive = false
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "venue",
		AggregateID:   venue.ID,
		EventType:     topicVenueUpdated,
		Payload:       venueUpdatedPayload(venue),
	}); err != nil {
		h.logger.Error("insert outbox event", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit venue", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("venue deactivated", "venue_id", id)
	httpx.OKMessage(w, "Venue deleted successfully", nil)
}

type listResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	Data    []venueResponse `json:"data"`
}

func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ListFilter{
		Category: q.Get("category"),
		City:     q.Get("city"),
		Search:   q.Get("search"),
	}
	if filter.Category != "" && !model.Categories[filter.Category] {
		httpx.Error(w, http.StatusBadRequest, "unknown category")
		return
	}
	if v := q.Get("maxRate"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			httpx.Error(w, http.StatusBadRequest, "maxRate must be a positive integer")
			return
		}
		filter.MaxRate = n
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	venues, total, err := h.venues.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list venues", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]venueResponse, len(venues))
	for i, v := range venues {
		data[i] = toResponse(v)
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Success: true,
		Count:   len(data),
		Total:   total,
		Page:    filter.Page,
		Pages:   int(math.Ceil(float64(total) / float64(filter.Limit))),
		Data:    data,
	})
}

// Get is public. When the caller presents a valid token the view is recorded
// as an interaction event feeding the analytics pipeline; anonymous views
// are not tracked.
func (h *VenueHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	venue, err := h.venues.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.logger.Error("load venue", "error", err, "venue_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if userID := h.optionalUser(r); userID != "" {
		h.recordInteraction(r, userID, venue.ID, "view")
	}

	httpx.OK(w, toResponse(venue))
}

func (h *VenueHandler) optionalUser(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	claims, err := auth.ParseAndVerifyHS256(strings.TrimPrefix(raw, "Bearer "), h.jwtSecret)
	if err != nil {
		return ""
	}
	return claims.Sub
}

// recordInteraction is best effort; a failed interaction write never fails
// the request that triggered it.
func (h *VenueHandler) recordInteraction(r *http.Request, userID, venueID, kind string) {
	ctx := r.Context()
	payload, _ := json.Marshal(interactionEvent{
		UserID:          userID,
		VenueID:         venueID,
		InteractionType: kind,
		OccurredAt:      time.Now().UTC(),
	})

	tx, err := h.venues.Begin(ctx)
	if err != nil {
		h.logger.Warn("record view: begin tx", "error", err)
		return
	}
	defer tx.Rollback(ctx)

	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "venue",
		AggregateID:   venueID,
		EventType:     topicInteractionRecorded,
		Payload:       payload,
	}); err != nil {
		h.logger.Warn("record interaction: insert outbox event", "error", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Warn("record interaction: commit", "error", err)
	}
}

func (h *VenueHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")

	venue, err := h.venues.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.logger.Error("load venue", "error", err, "venue_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !venue.IsActive {
		httpx.Error(w, http.StatusNotFound, "Venue not found")
		return
	}

	if err := h.venues.AddFavorite(ctx, claims.Sub, id); err != nil {
		h.logger.Error("add favorite", "error", err, "venue_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.recordInteraction(r, claims.Sub, id, "favorite")
	httpx.OKMessage(w, "Venue added to favorites", nil)
}

func (h *VenueHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")
	if err := h.venues.RemoveFavorite(ctx, claims.Sub, id); err != nil {
		h.logger.Error("remove favorite", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.recordInteraction(r, claims.Sub, id, "unfavorite")
	httpx.OKMessage(w, "Venue removed from favorites", nil)
}

func (h *VenueHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	venues, err := h.venues.ListFavorites(ctx, claims.Sub)
	if err != nil {
		h.logger.Error("list favorites", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	data := make([]venueResponse, len(venues))
	for i, v := range venues {
		data[i] = toResponse(v)
	}
	httpx.OK(w, data)
}
