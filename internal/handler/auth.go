package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/mraihan/quicknotes/internal/auth"
	"github.com/mraihan/quicknotes/internal/service"
)

// AuthHandler exposes the authentication endpoints:
//
//	POST /api/auth/signup          → local registration
//	POST /api/auth/login           → local login
//	GET  /api/auth/me              → current user (protected)
//	GET  /api/auth/google          → redirect to Google's consent screen
//	GET  /api/auth/google/callback → complete the OAuth flow
//
// The two Google endpoints are browser redirects, not JSON calls: the
// callback hands the token back to the frontend via a URL parameter on
// clientURL, and failures redirect to the login page with a generic
// error indicator rather than an error body — the browser is mid-
// redirect, there is no API client waiting for JSON.
type AuthHandler struct {
	auths     *service.AuthService
	google    *auth.GoogleProvider // nil when Google sign-in is not configured
	clientURL string
	logger    *slog.Logger
}

func NewAuthHandler(auths *service.AuthService, google *auth.GoogleProvider, clientURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auths:     auths,
		google:    google,
		clientURL: clientURL,
		logger:    logger,
	}
}

// authResponse is the JSON shape for successful signup/login. The token
// is the bearer credential the client stores and sends on every
// subsequent request.
type authResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup registers a new local account.
//
// HTTP: POST /api/auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	result, err := h.auths.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		ID:       result.User.ID,
		Username: result.User.Username,
		Email:    result.User.Email,
		Token:    result.Token,
	})
}

// HandleLogin authenticates a local email/password pair.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid JSON body",
		})
		return
	}

	result, err := h.auths.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		ID:       result.User.ID,
		Username: result.User.Username,
		Email:    result.User.Email,
		Token:    result.Token,
	})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/auth/me
// Auth: required — RequireAuth has already loaded the user into the
// context, and the model's json tags keep the password hash out of the
// response.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Unreachable on a protected route, but don't 500 on it.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized", Message: "valid authentication required",
		})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleGoogleLogin redirects the browser to Google's consent screen.
//
// HTTP: GET /api/auth/google
//
// The random state value is stored in a short-lived HttpOnly cookie and
// checked on callback, so an attacker can't complete an OAuth flow they
// didn't start in this browser (CSRF).
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth flow: state check, code
// exchange, reconciliation, then a redirect to the frontend carrying
// the issued token.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
//
// Every failure funnels to the same generic login-page redirect —
// internal detail (which lookup failed, what the store said) stays in
// the logs.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state missing or mismatched")
		h.redirectLoginError(w, r)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization",
			slog.String("error", errParam))
		h.redirectLoginError(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectLoginError(w, r)
		return
	}

	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		h.redirectLoginError(w, r)
		return
	}

	result, err := h.auths.LoginWithGoogle(r.Context(), profile)
	if err != nil {
		h.logger.Error("google callback: reconciliation failed",
			slog.String("error", err.Error()))
		h.redirectLoginError(w, r)
		return
	}

	h.logger.Info("user authenticated via google",
		slog.String("userID", result.User.ID),
		slog.String("username", result.User.Username),
	)

	// Hand the token to the frontend; it stores it and finishes login.
	http.Redirect(w, r,
		fmt.Sprintf("%s/auth/callback?token=%s", h.clientURL, result.Token),
		http.StatusSeeOther)
}

func (h *AuthHandler) redirectLoginError(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.clientURL+"/login?error=google_auth_failed", http.StatusSeeOther)
}
