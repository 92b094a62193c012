package handlers

import (
	"context"
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
	"github.com/fitstart-app/backend/services/message-service/internal/model"
	"github.com/fitstart-app/backend/services/message-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

const topicMessageSent = "message.sent.v1"

type ChatHandler struct {
	logger *slog.Logger
	venues *storage.VenueReadModel
	chats  *storage.ChatRepository
	outbox *outbox.Repository
}

func NewChatHandler(logger *slog.Logger, venues *storage.VenueReadModel, chats *storage.ChatRepository, ob *outbox.Repository) *ChatHandler {
	return &ChatHandler{logger: logger, venues: venues, chats: chats, outbox: ob}
}

type conversationResponse struct {
	ID            string    `json:"id"`
	VenueID       string    `json:"venueId"`
	UserID        string    `json:"userId"`
	OwnerID       string    `json:"ownerId"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toConversationResponse(c model.Conversation) conversationResponse {
	return conversationResponse{
		ID:            c.ID,
		VenueID:       c.VenueID,
		UserID:        c.UserID,
		OwnerID:       c.OwnerID,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Body           string    `json:"message"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toMessageResponse(m model.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

type messageSentEvent struct {
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	VenueID        string    `json:"venueId"`
	VenueName      string    `json:"venueName"`
	SenderID       string    `json:"senderId"`
	RecipientID    string    `json:"recipientId"`
	Preview        string    `json:"preview"`
	SentAt         time.Time `json:"sentAt"`
}

func validateBody(body string) (string, *httpx.FieldError) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", &httpx.FieldError{Field: "message", Message: "message cannot be empty"}
	}
	if len(body) > model.MaxMessageLength {
		return "", &httpx.FieldError{Field: "message", Message: "message is too long"}
	}
	return body, nil
}

// preview truncates a message body for the notification payload.
func preview(body string) string {
	const max = 120
	if len(body) <= max {
		return body
	}
	return body[:max]
}

type startConversationRequest struct {
	VenueID        string `json:"venueId"`
	InitialMessage string `json:"initialMessage"`
}

// Start opens a thread between the caller and a venue's owner. Starting a
// thread that already exists returns it instead of creating a duplicate.
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VenueID == "" {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "venueId", Message: "venueId is required"},
		})
		return
	}
	initial := ""
	if strings.TrimSpace(req.InitialMessage) != "" {
		var fieldErr *httpx.FieldError
		initial, fieldErr = validateBody(req.InitialMessage)
		if fieldErr != nil {
			httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{*fieldErr})
			return
		}
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
	if venue.OwnerID == claims.Sub {
		httpx.Error(w, http.StatusBadRequest, "cannot start a conversation with your own venue")
		return
	}

	if existing, err := h.chats.FindByVenueAndUser(ctx, venue.ID, claims.Sub); err == nil {
		httpx.OKMessage(w, "Existing conversation found", toConversationResponse(existing))
		return
	} else if !storage.IsNotFound(err) {
		h.logger.Error("find conversation", "error", err, "venue_id", venue.ID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	conversation := model.Conversation{
		VenueID: venue.ID,
		UserID:  claims.Sub,
		OwnerID: venue.OwnerID,
	}

	tx, err := h.chats.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	if err := h.chats.CreateConversation(ctx, tx, &conversation); err != nil {
		h.logger.Error("insert conversation", "error", err, "venue_id", venue.ID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if initial != "" {
		msg, err := h.appendMessage(ctx, tx, conversation, claims.Sub, initial, venue.Name)
		if err != nil {
			h.logger.Error("insert initial message", "error", err, "conversation_id", conversation.ID)
			httpx.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		conversation.LastMessage = initial
		conversation.LastMessageAt = msg.CreatedAt
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit conversation", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("conversation started",
		"conversation_id", conversation.ID,
		"venue_id", venue.ID,
		"user_id", claims.Sub)
	httpx.Created(w, toConversationResponse(conversation))
}

// appendMessage inserts the message and queues the message.sent.v1 event in
// the caller's transaction.
func (h *ChatHandler) appendMessage(ctx context.Context, tx pgx.Tx, c model.Conversation, senderID, body, venueName string) (model.Message, error) {
	msg := model.Message{
		ConversationID: c.ID,
		SenderID:       senderID,
		Body:           body,
	}
	if err := h.chats.InsertMessage(ctx, tx, &msg); err != nil {
		return model.Message{}, err
	}

	payload, _ := json.Marshal(messageSentEvent{
		ConversationID: c.ID,
		MessageID:      msg.ID,
		VenueID:        c.VenueID,
		VenueName:      venueName,
		SenderID:       senderID,
		RecipientID:    c.Recipient(senderID),
		Preview:        preview(body),
		SentAt:         msg.CreatedAt,
	})
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "conversation",
		AggregateID:   c.ID,
		EventType:     topicMessageSent,
		Payload:       payload,
	}); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// Send appends a message to a thread the caller participates in. The
// recipient is notified through the message.sent.v1 event.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	body, fieldErr := validateBody(req.Message)
	if fieldErr != nil {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{*fieldErr})
		return
	}

	conversation, err := h.loadParticipantConversation(w, r, id, claims.Sub)
	if err != nil {
		return
	}

	venueName := ""
	if venue, err := h.venues.Get(ctx, conversation.VenueID); err == nil {
		venueName = venue.Name
	}

	tx, err := h.chats.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	msg, err := h.appendMessage(ctx, tx, conversation, claims.Sub, body, venueName)
	if err != nil {
		h.logger.Error("insert message", "error", err, "conversation_id", conversation.ID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit message", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("message sent", "conversation_id", conversation.ID, "message_id", msg.ID)
	httpx.Created(w, toMessageResponse(msg))
}

// loadParticipantConversation resolves the thread and hides it from
// non-participants. It writes the error response itself; callers return on
// error.
func (h *ChatHandler) loadParticipantConversation(w http.ResponseWriter, r *http.Request, id, participantID string) (model.Conversation, error) {
	conversation, err := h.chats.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "Conversation not found")
			return model.Conversation{}, err
		}
		h.logger.Error("load conversation", "error", err, "conversation_id", id)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return model.Conversation{}, err
	}
	if !conversation.HasParticipant(participantID) {
		httpx.Error(w, http.StatusNotFound, "Conversation not found")
		return model.Conversation{}, pgx.ErrNoRows
	}
	return conversation, nil
}

// List returns every thread the caller is part of, as customer or owner,
// most recently active first.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conversations, err := h.chats.ListByParticipant(ctx, claims.Sub)
	if err != nil {
		h.logger.Error("list conversations", "error", err, "user_id", claims.Sub)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	data := make([]conversationResponse, len(conversations))
	for i, c := range conversations {
		data[i] = toConversationResponse(c)
	}
	httpx.OK(w, data)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	conversation, err := h.loadParticipantConversation(w, r, r.PathValue("id"), claims.Sub)
	if err != nil {
		return
	}
	httpx.OK(w, toConversationResponse(conversation))
}

type messageListResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	Pages   int               `json:"pages"`
	Data    []messageResponse `json:"data"`
}

// Messages returns a thread's messages in send order, paginated.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	conversation, err := h.loadParticipantConversation(w, r, r.PathValue("id"), claims.Sub)
	if err != nil {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, total, err := h.chats.ListMessages(ctx, conversation.ID, page, limit)
	if err != nil {
		h.logger.Error("list messages", "error", err, "conversation_id", conversation.ID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	data := make([]messageResponse, len(messages))
	for i, m := range messages {
		data[i] = toMessageResponse(m)
	}
	httpx.WriteJSON(w, http.StatusOK, messageListResponse{
		Success: true,
		Count:   len(data),
		Total:   total,
		Page:    page,
		Pages:   int(math.Ceil(float64(total) / float64(limit))),
		Data:    data,
	})
}

// MarkRead flags every message the caller received in the thread as read.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	conversation, err := h.loadParticipantConversation(w, r, r.PathValue("id"), claims.Sub)
	if err != nil {
		return
	}

	if err := h.chats.MarkRead(ctx, conversation.ID, claims.Sub); err != nil {
		h.logger.Error("mark conversation read", "error", err, "conversation_id", conversation.ID)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OKMessage(w, "Conversation marked as read", nil)
}
