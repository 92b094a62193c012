package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/fitstart-app/backend/libs/auth"
	"github.com/fitstart-app/backend/libs/httpx"
	"github.com/fitstart-app/backend/libs/outbox"
	"github.com/fitstart-app/backend/services/user-service/internal/model"
	"github.com/fitstart-app/backend/services/user-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const topicDeviceRegistered = "user.device.registered.v1"

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	logger    *slog.Logger
	users     *storage.UserRepository
	outbox    *outbox.Repository
	jwtSecret string
}

func NewAuthHandler(logger *slog.Logger, users *storage.UserRepository, ob *outbox.Repository, jwtSecret string) *AuthHandler {
	return &AuthHandler{logger: logger, users: users, outbox: ob, jwtSecret: jwtSecret}
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(u model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func validateRegister(req registerRequest) []httpx.FieldError {
	var errs []httpx.FieldError
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, httpx.FieldError{Field: "name", Message: "name is required"})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		errs = append(errs, httpx.FieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(req.Password) < 8 {
		errs = append(errs, httpx.FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}
	return errs
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if errs := validateRegister(req); len(errs) > 0 {
		httpx.ValidationFailed(w, "Validation failed", errs)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := h.users.Create(ctx, &user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			httpx.Error(w, http.StatusConflict, "Email is already registered")
			return
		}
		h.logger.Error("insert user", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.logger.Error("sign token", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	httpx.Created(w, map[string]any{
		"user":  toResponse(user),
		"token": token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("load user", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		h.logger.Error("sign token", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	httpx.OKMessage(w, "Login successful", map[string]any{
		"user":  toResponse(user),
		"token": token,
	})
}

func (h *AuthHandler) issueToken(u model.User) (string, error) {
	now := time.Now()
	return auth.SignHS256(auth.Claims{
		Sub:  u.ID,
		Role: u.Role,
		Iat:  now.Unix(),
		Exp:  now.Add(tokenTTL).Unix(),
	}, h.jwtSecret)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(ctx, claims.Sub)
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("load user", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, toResponse(user))
}

type deviceTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type deviceRegisteredEvent struct {
	UserID       string    `json:"userId"`
	Token        string    `json:"token"`
	Platform     string    `json:"platform"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// RegisterDevice publishes the push token for the notification pipeline.
// The token itself is stored by notification-service, not here.
func (h *AuthHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req deviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "token", Message: "token is required"},
		})
		return
	}
	switch req.Platform {
	case "android", "ios", "web":
	default:
		httpx.ValidationFailed(w, "Validation failed", []httpx.FieldError{
			{Field: "platform", Message: "platform must be android, ios or web"},
		})
		return
	}

	payload, _ := json.Marshal(deviceRegisteredEvent{
		UserID:       claims.Sub,
		Token:        req.Token,
		Platform:     req.Platform,
		RegisteredAt: time.Now().UTC(),
	})

	tx, err := h.users.Begin(ctx)
	if err != nil {
		h.logger.Error("begin tx", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(ctx)

	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "user",
		AggregateID:   claims.Sub,
		EventType:     topicDeviceRegistered,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("insert outbox event", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("commit device registration", "error", err)
		httpx.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.OKMessage(w, "Device registered", nil)
}
