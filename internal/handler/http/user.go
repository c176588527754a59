package http

import (
	"fmt"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/Uchennem/sleepoutsideServer/internal/domain"
	"github.com/Uchennem/sleepoutsideServer/internal/service"
	apperrors "github.com/Uchennem/sleepoutsideServer/pkg/errors"
	"github.com/Uchennem/sleepoutsideServer/pkg/httputil"
	"github.com/Uchennem/sleepoutsideServer/pkg/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// UserHandler handles HTTP requests for account endpoints.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// --- Response types ---

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

// MessageResponse carries a single message.
type MessageResponse struct {
	Message string `json:"message"`
}

// --- Handlers ---

// Register handles POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User created successfully.",
		User:    user,
	})
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// Protected handles GET /api/v1/users/protected. It runs behind
// middleware.Auth, which stores the caller's claims.
func (h *UserHandler) Protected(w http.ResponseWriter, r *http.Request) {
	email := middleware.EmailFromContext(r.Context())
	if email == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: h.service.ProtectedMessage(email)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteValidationError(w, r, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}
