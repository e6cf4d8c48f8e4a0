package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ludoteka/storefront/internal/domain"
	"github.com/ludoteka/storefront/internal/identity"
	"github.com/ludoteka/storefront/internal/platform/httpx"
)

// SessionAPI is the slice of the session manager the auth surface needs.
type SessionAPI interface {
	Login(ctx context.Context, email, password string) (domain.Session, error)
	LoginWithGoogle(ctx context.Context, googleIDToken string) (domain.Session, error)
	Register(ctx context.Context, displayName, email, password string) (domain.Session, error)
	Logout(ctx context.Context)
	Current() (domain.Session, bool)
}

// AuthHandlers exposes sign-in, registration and session inspection.
type AuthHandlers struct {
	sessions SessionAPI
}

const maxAuthBodySize = 8 * 1024

// NewAuthHandlers constructs the auth endpoints over the session manager.
func NewAuthHandlers(sessions SessionAPI) *AuthHandlers {
	return &AuthHandlers{sessions: sessions}
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/login", h.login)
	r.Post("/google", h.loginWithGoogle)
	r.Post("/register", h.register)
	r.Post("/logout", h.logout)
	r.Get("/session", h.session)
}

type sessionPayload struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Role        string `json:"role"`
}

func buildSessionPayload(session domain.Session) sessionPayload {
	return sessionPayload{
		UID:         session.User.UID,
		Email:       session.User.Email,
		DisplayName: session.User.DisplayName,
		PhotoURL:    session.User.PhotoURL,
		Role:        string(session.Role),
	}
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSONBody(r, maxAuthBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeIdentityError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func (h *AuthHandlers) loginWithGoogle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := decodeJSONBody(r, maxAuthBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.sessions.LoginWithGoogle(ctx, req.IDToken)
	if err != nil {
		writeIdentityError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	}
	if err := decodeJSONBody(r, maxAuthBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.sessions.Register(ctx, req.DisplayName, req.Email, req.Password)
	if err != nil {
		writeIdentityError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"session": buildSessionPayload(session)})
}

func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *AuthHandlers) session(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Current()
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "no active session", http.StatusUnauthorized))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"session": buildSessionPayload(session)})
}

func writeIdentityError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "email or password is incorrect", http.StatusUnauthorized))
	case errors.Is(err, identity.ErrEmailInUse):
		httpx.WriteError(ctx, w, httpx.NewError("email_in_use", "an account with this email already exists", http.StatusConflict))
	case errors.Is(err, identity.ErrWeakPassword):
		httpx.WriteError(ctx, w, httpx.NewError("weak_password", "password does not meet the minimum requirements", http.StatusBadRequest))
	case errors.Is(err, identity.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("identity_unavailable", "identity service is unavailable", http.StatusBadGateway))
	}
}
