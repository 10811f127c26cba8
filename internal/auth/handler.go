package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkpress/inkpress/internal/platform/httpx"
	"github.com/inkpress/inkpress/internal/shared"
	"github.com/inkpress/inkpress/internal/users"
)

// Handler wires the HTTP endpoints for account and session flows.
type Handler struct {
	logger   *slog.Logger
	service  users.Service
	sessions *shared.SessionManager
	guard    Guard

	// verifiedURL is where a successful verification link lands.
	verifiedURL string
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service users.Service, sessions *shared.SessionManager, verifiedURL string) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		sessions:    sessions,
		guard:       Guard{Logger: logger},
		verifiedURL: verifiedURL,
	}
}

// MountRoutes registers auth and account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/whoami", h.handleWhoami)
	r.Get("/auth/verify", h.handleVerify)
	r.Post("/auth/resend-verification", h.handleResend)
	r.Post("/auth/forgot-password", h.handleForgotPassword)
	r.Post("/auth/reset-password", h.handleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireSession)
		r.Get("/users/me", h.handleMe)
		r.Patch("/users/me", h.handleUpdateProfile)
		r.Post("/users/me/password", h.handleChangePassword)
		r.Get("/users/{id}", h.handleUserSummary)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(users.RoleAdmin))
		r.Get("/admin", h.handleAdminDashboard)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req users.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.service.Login(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Rotate the session ID before writing the new identity so a
	// pre-login cookie can never inherit the authenticated claims.
	h.sessions.CycleID(sess)
	sess.Set(shared.SessionKeyUserID, summary.ID.String())
	sess.Set(shared.SessionKeyUsername, summary.Username)
	sess.Set(shared.SessionKeyUserRole, string(summary.Role))

	httpx.OK(w, http.StatusOK, summary)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.Clear()
		h.sessions.CycleID(sess)
	}
	httpx.OKMessage(w, http.StatusOK, nil, "logged out successfully")
}

type whoAmIResponse struct {
	ID       uuid.UUID  `json:"id"`
	Username string     `json:"username"`
	Role     users.Role `json:"role"`
}

func (h *Handler) handleWhoami(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUserFromSession(shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, whoAmIResponse{ID: user.ID, Username: user.Username, Role: user.Role})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.RespondError(w, h.logger, users.NewValidationError("verification token is required"))
		return
	}

	ok, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if !ok {
		httpx.RespondError(w, h.logger, users.NewValidationError("invalid or expired verification link"))
		return
	}
	http.Redirect(w, r, h.verifiedURL, http.StatusFound)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OKMessage(w, http.StatusOK, nil, "password has been reset")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUserFromContext(r.Context())
	resp, err := h.service.GetUser(r.Context(), user.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUserFromContext(r.Context())

	var req users.UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, resp)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUserFromContext(r.Context())

	var req users.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OKMessage(w, http.StatusOK, nil, "password changed")
}

func (h *Handler) handleUserSummary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, h.logger, users.NewValidationError("invalid user id"))
		return
	}

	summary, err := h.service.GetUserSummary(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, summary)
}

type adminDashboard struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUserFromContext(r.Context())
	httpx.OK(w, http.StatusOK, adminDashboard{Username: user.Username, Message: "welcome to the admin dashboard"})
}
