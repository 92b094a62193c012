package handlers

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fitstart-app/backend/libs/auth"
	"github.com/fitstart-app/backend/libs/httpx"
	"github.com/fitstart-app/backend/services/notification-service/internal/storage"
)

type NotificationHandler struct {
	logger *slog.Logger
	repo   *storage.NotificationRepository
}

func NewNotificationHandler(logger *slog.Logger, repo *storage.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{logger: logger, repo: repo}
}

type notificationResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

type listResponse struct {
	Success bool                   `json:"success"`
	Count   int                    `json:"count"`
	Total   int                    `json:"total"`
	Page    int                    `json:"page"`
	Pages   int                    `json:"pages"`
	Data    []notificationResponse `json:"data"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	notifications, total, err := h.repo.ListByUser(ctx, claims.Sub, page, limit)
	if err != nil {
		h.logger.Error("list notifications", "error", err, "user_id", claims.Sub)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		data[i] = notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Data:      n.Data,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Success: true,
		Count:   len(data),
		Total:   total,
		Page:    page,
		Pages:   int(math.Ceil(float64(total) / float64(limit))),
		Data:    data,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.repo.MarkRead(ctx, claims.Sub, r.PathValue("id")); err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Notification not found")
			return
		}
		h.logger.Error("mark notification read", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OKMessage(w, "Notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	updated, err := h.repo.MarkAllRead(ctx, claims.Sub)
	if err != nil {
		h.logger.Error("mark all notifications read", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OKMessage(w, "Notifications marked as read", map[string]any{"updated": updated})
}
