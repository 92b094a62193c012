package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fitstart-app/backend/libs/auth"
	"github.com/fitstart-app/backend/libs/httpx"
	"github.com/fitstart-app/backend/libs/outbox"
	"github.com/fitstart-app/backend/services/booking-service/internal/model"
	"github.com/fitstart-app/backend/services/booking-service/internal/payments"
	"github.com/fitstart-app/backend/services/booking-service/internal/slots"
	"github.com/fitstart-app/backend/services/booking-service/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	topicBookingConfirmed    = "booking.confirmed.v1"
	topicBookingCancelled    = "booking.cancelled.v1"
	topicInteractionRecorded = "interaction.recorded.v1"
)

type BookingHandler struct {
	logger        *slog.Logger
	bookings      *storage.BookingRepository
	venues        *storage.VenueReadModel
	outbox        *outbox.Repository
	gateway       payments.Gateway
	paymentSecret string
}

func NewBookingHandler(logger *slog.Logger, bookings *storage.BookingRepository, venues *storage.VenueReadModel, ob *outbox.Repository, gateway payments.Gateway, paymentSecret string) *BookingHandler {
	return &BookingHandler{
		logger:        logger,
		bookings:      bookings,
		venues:        venues,
		outbox:        ob,
		gateway:       gateway,
		paymentSecret: paymentSecret,
	}
}

type bookingResponse struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"userId"`
	VenueID            string           `json:"venueId"`
	BookingDate        string           `json:"bookingDate"`
	TimeSlots          []model.TimeSlot `json:"timeSlots"`
	TotalHours         int              `json:"totalHours"`
	Pricing            model.Pricing    `json:"pricing"`
	Payment            model.Payment    `json:"payment"`
	Status             string           `json:"status"`
	CancellationReason string           `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time       `json:"cancelledAt,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

func toResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:                 b.ID,
		UserID:             b.UserID,
		VenueID:            b.VenueID,
		BookingDate:        b.BookingDate.Format("2006-01-02"),
		TimeSlots:          b.TimeSlots,
		TotalHours:         b.TotalHours,
		Pricing:            b.Pricing,
		Payment:            b.Payment,
		Status:             b.Status,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		Notes:              b.Notes,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toSlots(ts []model.TimeSlot) []slots.Slot {
	out := make([]slots.Slot, len(ts))
	for i, t := range ts {
		out[i] = slots.Slot{Start: t.StartTime, End: t.EndTime}
	}
	return out
}

type createBookingRequest struct {
	VenueID     string           `json:"venueId"`
	BookingDate string           `json:"bookingDate"`
	TimeSlots   []model.TimeSlot `json:"timeSlots"`
	Notes       string           `json:"notes"`
}

type confirmedEvent struct {
	BookingID   string           `json:"bookingId"`
	UserID      string           `json:"userId"`
	VenueID     string           `json:"venueId"`
	VenueName   string           `json:"venueName"`
	BookingDate string           `json:"bookingDate"`
	TimeSlots   []model.TimeSlot `json:"timeSlots"`
	TotalAmount int64            `json:"totalAmount"`
	Currency    string           `json:"currency"`
	PaidAt      time.Time        `json:"paidAt"`
}

type cancelledEvent struct {
	BookingID   string    `json:"bookingId"`
	UserID      string    `json:"userId"`
	VenueID     string    `json:"venueId"`
	VenueName   string    `json:"venueName"`
	BookingDate string    `json:"bookingDate"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

type interactionEvent struct {
	UserID          string    `json:"userId"`
	VenueID         string    `json:"venueId"`
	InteractionType string    `json:"interactionType"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Create reserves time slots at a venue and opens a payment order. The
// booking starts in pending/pending and holds its slots until it is either
// confirmed via verify-payment or cancelled.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var fieldErrs []httpx.FieldError
	if req.VenueID == "" {
		fieldErrs = append(fieldErrs, httpx.FieldError{Field: "venueId", Message: "venueId is required"})
	}
	if req.BookingDate == "" {
		fieldErrs = append(fieldErrs, httpx.FieldError{Field: "bookingDate", Message: "bookingDate is required"})
	}
	if len(req.TimeSlots) == 0 {
		fieldErrs = append(fieldErrs, httpx.FieldError{Field: "timeSlots", Message: "at least one time slot is required"})
	}
	if len(fieldErrs) > 0 {
		httpx.ValidationFailed(w, "Validation failed", fieldErrs)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.BookingDate, time.UTC)
	if err != nil {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "bookingDate", Message: "bookingDate must be YYYY-MM-DD"},
		})
		return
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "bookingDate", Message: "bookingDate cannot be in the past"},
		})
		return
	}

	candidate := toSlots(req.TimeSlots)
	if err := slots.Validate(candidate); err != nil {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "timeSlots", Message: err.Error()},
		})
		return
	}

	venue, err := h.venues.Get(ctx, req.VenueID)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.logger.Error("load venue", "error", err, "venue_id", req.VenueID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !slots.WithinWindow(candidate, venue.OpenTime, venue.CloseTime) {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "timeSlots", Message: "time slots are outside venue operating hours"},
		})
		return
	}

	totalHours, err := slots.TotalHours(candidate)
	if err != nil || totalHours < 1 {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "timeSlots", Message: "booking must cover at least one full hour"},
		})
		return
	}

	// Cheap pre-check before touching the payment gateway. The authoritative
	// check runs again inside the transaction under the venue+date lock.
	existing, err := h.bookings.ListActiveSlots(ctx, req.VenueID, date)
	if err != nil {
		h.logger.Error("list booked slots", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if slots.HasConflict(candidate, toSlots(existing)) {
		httpx.Error(w, http.StatusConflict, "Selected time slots are not available")
		return
	}

	amount := venue.HourlyRate * int64(totalHours)
	order, err := h.gateway.CreateOrder(ctx, amount, venue.Currency, "booking_"+uuid.NewString())
	if err != nil {
		h.logger.Error("create payment order", "error", err, "venue_id", req.VenueID)
		httpx.Error(w, http.StatusBadGateway, "payment gateway unavailable")
		return
	}

	booking := model.Booking{
		UserID:      claims.Sub,
		VenueID:     req.VenueID,
		BookingDate: date,
		TimeSlots:   req.TimeSlots,
		TotalHours:  totalHours,
		Pricing: model.Pricing{
			HourlyRate:  venue.HourlyRate,
			TotalAmount: amount,
			Currency:    venue.Currency,
		},
		Payment: model.Payment{
			Status:  model.PaymentPending,
			Method:  "razorpay",
			OrderID: order.ID,
		},
		Status: model.StatusPending,
		Notes:  req.Notes,
	}

	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	if err := reserveSlots(ctx, txReserver{repo: h.bookings, tx: tx}, &booking, candidate); err != nil {
		if errors.Is(err, errSlotsTaken) {
			httpx.Error(w, http.StatusConflict, "Selected time slots are not available")
			return
		}
		h.logger.Error("reserve slots", "error", err, "venue_id", req.VenueID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	payload, _ := json.Marshal(interactionEvent{
		UserID:          claims.Sub,
		VenueID:         req.VenueID,
		InteractionType: "booking",
		OccurredAt:      time.Now().UTC(),
	})
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   booking.ID,
		EventType:     topicInteractionRecorded,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("insert outbox event", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit booking", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("booking created",
		"booking_id", booking.ID,
		"venue_id", booking.VenueID,
		"user_id", booking.UserID,
		"booking_date", req.BookingDate,
		"total_amount", amount)

	httpx.Created(w, map[string]any{
		"booking":         toResponse(booking),
		"razorpayOrderId": order.ID,
		"razorpayKeyId":   h.gateway.KeyID(),
	})
}

type verifyPaymentRequest struct {
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// VerifyPayment checks the gateway's detached signature over the order and
// payment ids and, if valid, confirms the booking. A signature mismatch never
// mutates state.
func (h *BookingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "razorpayPaymentId", Message: "razorpayPaymentId and razorpaySignature are required"},
		})
		return
	}

	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	booking, err := h.bookings.GetForUpdate(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Booking not found")
			return
		}
		h.logger.Error("load booking", "error", err, "booking_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if booking.UserID != claims.Sub && !claims.IsAdmin() {
		httpx.Error(w, http.StatusNotFound, "Booking not found")
		return
	}

	if err := booking.CanConfirm(); err != nil {
		httpx.Error(w, http.StatusConflict, "booking is not awaiting payment")
		return
	}

	if !payments.VerifySignature(booking.Payment.OrderID, req.RazorpayPaymentID, req.RazorpaySignature, h.paymentSecret) {
		h.logger.Warn("payment signature mismatch",
			"booking_id", booking.ID,
			"order_id", booking.Payment.OrderID,
			"payment_id", req.RazorpayPaymentID)
		httpx.Error(w, http.StatusBadRequest, "Invalid payment signature")
		return
	}

	paidAt, err := h.bookings.ConfirmPayment(ctx, tx, booking.ID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.Error(w, http.StatusConflict, "booking is not awaiting payment")
			return
		}
		h.logger.Error("confirm payment", "error", err, "booking_id", booking.ID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	venueName := ""
	if venue, err := h.venues.Get(ctx, booking.VenueID); err == nil {
		venueName = venue.Name
	}

	payload, _ := json.Marshal(confirmedEvent{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		VenueID:     booking.VenueID,
		VenueName:   venueName,
		BookingDate: booking.BookingDate.Format("2006-01-02"),
		TimeSlots:   booking.TimeSlots,
		TotalAmount: booking.Pricing.TotalAmount,
		Currency:    booking.Pricing.Currency,
		PaidAt:      paidAt,
	})
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   booking.ID,
		EventType:     topicBookingConfirmed,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("insert outbox event", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit confirmation", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	booking.Status = model.StatusConfirmed
	booking.Payment.Status = model.PaymentCompleted
	booking.Payment.PaymentID = req.RazorpayPaymentID
	booking.Payment.PaidAt = &paidAt

	h.logger.Info("payment verified", "booking_id", booking.ID, "payment_id", req.RazorpayPaymentID)
	httpx.OKMessage(w, "Payment verified successfully", toResponse(booking))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel releases the booking's slots. Allowed until 24 hours before the
// booking date; already-cancelled and terminal bookings are rejected.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")

	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	booking, err := h.bookings.GetForUpdate(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Booking not found")
			return
		}
		h.logger.Error("load booking", "error", err, "booking_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if booking.UserID != claims.Sub && !claims.IsAdmin() {
		httpx.Error(w, http.StatusNotFound, "Booking not found")
		return
	}

	if err := booking.CanCancel(time.Now().UTC()); err != nil {
		switch {
		case errors.Is(err, model.ErrTerminalState):
			httpx.Error(w, http.StatusConflict, err.Error())
		default:
			httpx.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	cancelledAt, err := h.bookings.Cancel(ctx, tx, booking.ID, req.Reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.Error(w, http.StatusConflict, "booking state changed, retry")
			return
		}
		h.logger.Error("cancel booking", "error", err, "booking_id", booking.ID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	venueName := ""
	if venue, err := h.venues.Get(ctx, booking.VenueID); err == nil {
		venueName = venue.Name
	}

	payload, _ := json.Marshal(cancelledEvent{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		VenueID:     booking.VenueID,
		VenueName:   venueName,
		BookingDate: booking.BookingDate.Format("2006-01-02"),
		Reason:      req.Reason,
		CancelledAt: cancelledAt,
	})
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   booking.ID,
		EventType:     topicBookingCancelled,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("insert outbox event", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit cancellation", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	booking.Status = model.StatusCancelled
	booking.CancellationReason = req.Reason
	booking.CancelledAt = &cancelledAt

	h.logger.Info("booking cancelled", "booking_id", booking.ID, "reason", req.Reason)
	httpx.OKMessage(w, "Booking cancelled successfully", toResponse(booking))
}

type listResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	Pages   int               `json:"pages"`
	Data    []bookingResponse `json:"data"`
}

// List returns the caller's bookings, newest first, with optional status and
// date range filters.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	filter := storage.ListFilter{Status: q.Get("status")}
	if v := q.Get("startDate"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
			return
		}
		filter.From = &t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
			return
		}
		filter.To = &t
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}

	bookings, total, err := h.bookings.ListByUser(ctx, claims.Sub, filter)
	if err != nil {
		h.logger.Error("list bookings", "error", err, "user_id", claims.Sub)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]bookingResponse, len(bookings))
	for i, b := range bookings {
		data[i] = toResponse(b)
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

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	booking, err := h.bookings.Get(ctx, r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Booking not found")
			return
		}
		h.logger.Error("load booking", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if booking.UserID != claims.Sub && !claims.IsAdmin() {
		httpx.Error(w, http.StatusNotFound, "Booking not found")
		return
	}
	httpx.OK(w, toResponse(booking))
}

// AvailableSlots is public: it returns the venue's operating window and the
// slots already held by active bookings for the given date. Clients compute
// free ranges themselves.
func (h *BookingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	venueID := r.PathValue("venueId")

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		httpx.Error(w, http.StatusBadRequest, "date query parameter is required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	venue, err := h.venues.Get(ctx, venueID)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Venue not found")
			return
		}
		h.logger.Error("load venue", "error", err, "venue_id", venueID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	booked, err := h.bookings.ListActiveSlots(ctx, venueID, date)
	if err != nil {
		h.logger.Error("list booked slots", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if booked == nil {
		booked = []model.TimeSlot{}
	}

	httpx.OK(w, map[string]any{
		"venueOpenTime":  venue.OpenTime,
		"venueCloseTime": venue.CloseTime,
		"bookedSlots":    booked,
	})
}
