package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

// CLIUserAgent prefixes the User-Agent sent by posctl; such logins receive a token.
const CLIUserAgent = "posctl/"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/token", h.handleToken)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      users.User `json:"user"`
	CSRFToken string     `json:"csrfToken,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func wantsToken(r *http.Request) bool {
	return r.URL.Query().Get("token") == "1" || strings.HasPrefix(r.UserAgent(), CLIUserAgent)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in SignupInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Signup(r.Context(), in)
	if err != nil {
		h.identityFailure(w, "signup", err)
		return
	}
	h.establish(w, r, user, http.StatusCreated)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.identityFailure(w, "login", err)
		return
	}
	h.establish(w, r, user, http.StatusOK)
}

// establish starts a cookie session, or returns a bearer token to API clients.
func (h *Handler) establish(w http.ResponseWriter, r *http.Request, user users.User, status int) {
	if wantsToken(r) {
		token, expires, err := h.service.IssueToken(user)
		if err != nil {
			h.logger.Error("issue token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Login failed. Please try again.")
			return
		}
		httpx.JSON(w, status, sessionResponse{User: user, Token: token, ExpiresAt: &expires})
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Login failed. Please try again.")
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "Login failed. Please try again.")
		return
	}
	sess.SetUser(user.ID, string(user.Role))
	sess.Set(sessionEmailKey, user.Email)
	sess.Set(sessionNameKey, user.Name)
	sess.Delete(shared.CSRFSessionKey)
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	httpx.JSON(w, status, sessionResponse{User: user, CSRFToken: csrfToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.Logout(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToken exchanges an authenticated session for a bearer token.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrUnauthenticated.Error())
		return
	}
	user, err := h.service.User(r.Context(), principal.UserID)
	if err != nil {
		h.identityFailure(w, "token", err)
		return
	}
	if !user.Active() {
		h.identityFailure(w, "token", ErrInactive)
		return
	}
	token, expires, err := h.service.IssueToken(user)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{User: user, Token: token, ExpiresAt: &expires})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrUnauthenticated.Error())
		return
	}
	user, err := h.service.User(r.Context(), principal.UserID)
	if err != nil {
		h.identityFailure(w, "me", err)
		return
	}
	resp := sessionResponse{User: user}
	if !principal.Token {
		resp.CSRFToken, _ = h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) identityFailure(w http.ResponseWriter, op string, err error) {
	status := http.StatusUnauthorized
	switch {
	case errors.Is(err, ErrEmailInUse):
		status = http.StatusConflict
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidEmail):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrWrongPassword), errors.Is(err, ErrInactive),
		errors.Is(err, users.ErrNotFound):
	default:
		h.logger.Error(op, slog.Any("error", err))
		status = http.StatusInternalServerError
	}
	httpx.Problem(w, status, http.StatusText(status), Message(err))
}
