package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/dreamways/internal/auth"
)

const stateCookieName = "oauth_state"

// AuthHandler owns the GitHub OAuth flow and the account endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, sign in, set the session cookie
//   - HandleMe             → the signed-in user's profile
//   - HandleDeleteAccount  → delete the account (saved trips go with it)
//
// github is nil when OAuth is not configured; the GitHub routes are then
// never mounted.
type AuthHandler struct {
	github        *auth.GitHubProvider
	sessions      Sessions
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(github *auth.GitHubProvider, sessions Sessions, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github:        github,
		sessions:      sessions,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// GitHub. The callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub profile
//  3. Sign in through the session manager (links or creates the account)
//  4. Set the session cookie and redirect to the planner
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	sess, err := h.sessions.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user authenticated via GitHub",
		slog.String("userID", sess.User.ID),
		slog.String("login", ghUser.Login),
	)

	auth.SetSessionCookie(w, sess.Token, sess.ExpiresAt, h.secureCookies)
	http.Redirect(w, r, "/trip-planner?notice=login", http.StatusSeeOther)
}

// HandleMe returns the current user's profile.
//
// HTTP: GET /api/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.UserFromContext(r.Context()))
}

// HandleDeleteAccount removes the current user's account and ends the
// session. The store cascades the delete to the user's saved trips.
//
// HTTP: DELETE /api/me
// Auth: required
// 204 on success.
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteAccount(r.Context(), auth.TokenFromContext(r.Context())); err != nil {
		h.logger.Error("deleting account failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
