package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/dreamways/internal/model"
)

// CookieName is the HttpOnly cookie that carries the session JWT.
const CookieName = "dreamways_session"

// Resolver turns a session token into the user it belongs to.
// The session manager implements it; a revoked or expired token is an error.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

// contextKey is unexported so no other package can read or shadow our values.
type contextKey string

const (
	userKey  contextKey = "user"
	tokenKey contextKey = "token"
)

// RequireAuth rejects requests without a valid session with 401 Unauthorized.
// On success the user and raw token are stored in the request context.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(sessions Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w)
				return
			}
			user, err := sessions.Resolve(r.Context(), token)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), user, token)))
		})
	}
}

// OptionalAuth attaches the user when a valid session cookie is present and
// otherwise lets the request through anonymously. Pages use it: every view
// renders for anonymous visitors, just with blank content.
func OptionalAuth(sessions Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if user, err := sessions.Resolve(r.Context(), token); err == nil && user != nil {
					r = r.WithContext(withSession(r.Context(), user, token))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the signed-in user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}

// TokenFromContext returns the session token the middleware accepted.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// WithUser returns a context carrying user. Handlers under test use it to
// skip the cookie round trip.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func withSession(ctx context.Context, user *model.User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromRequest reads the session cookie. Missing cookie yields "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSessionCookie stores token in an HttpOnly, SameSite=Lax cookie that
// expires with the token. Secure should be set when served over HTTPS.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"Please log in"}`))
}
