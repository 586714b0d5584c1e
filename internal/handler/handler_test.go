package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/dreamways/internal/auth"
	"github.com/sakif/dreamways/internal/handler"
	"github.com/sakif/dreamways/internal/identity"
	"github.com/sakif/dreamways/internal/repository/sqlite"
	"github.com/sakif/dreamways/internal/service"
	"github.com/sakif/dreamways/internal/session"
)

const strongPassword = "Str0ng!Pass"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeCompleter returns a canned itinerary and records prompts.
type fakeCompleter struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

// testEnv wires the real stack over an in-memory SQLite store. Only the
// completion service is faked.
type testEnv struct {
	router    http.Handler
	db        *sqlite.DB
	completer *fakeCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	ids := identity.NewLocal(db, auth.NewPasswordServiceForTest(bcrypt.MinCost), discardLogger)
	sessions := session.NewManager(ids, tokens, discardLogger)
	t.Cleanup(sessions.Close)

	fc := &fakeCompleter{text: "Day 1: Louvre"}
	planner := service.NewPlanner(fc, discardLogger)
	trips := service.NewTripService(db, discardLogger)

	pages, err := handler.NewPagesHandler(sessions, trips, planner, handler.PagesConfig{}, discardLogger)
	require.NoError(t, err)
	authH := handler.NewAuthHandler(nil, sessions, false, discardLogger)
	tripsH := handler.NewTripsHandler(trips, discardLogger)

	r := chi.NewRouter()
	r.Post("/generate-trip", handler.NewGenerateHandler(planner, discardLogger).HandleGenerate)
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(sessions))
		r.Get("/", pages.HandleLanding)
		r.Get("/login", pages.HandleLoginPage)
		r.Post("/login", pages.HandleLogin)
		r.Get("/register", pages.HandleRegisterPage)
		r.Post("/register", pages.HandleRegister)
		r.Post("/logout", pages.HandleLogout)
		r.Get("/trip-planner", pages.HandlePlannerPage)
		r.Post("/trip-planner", pages.HandlePlan)
		r.Get("/trip-results", pages.HandleResultsPage)
		r.Post("/trip-results", pages.HandleSave)
		r.Get("/saved-trips", pages.HandleSavedPage)
		r.Post("/saved-trips/{id}/delete", pages.HandleDelete)
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(sessions))
		r.Get("/me", authH.HandleMe)
		r.Delete("/me", authH.HandleDeleteAccount)
		r.Get("/trips", tripsH.HandleList)
		r.Post("/trips", tripsH.HandleCreate)
		r.Delete("/trips/{id}", tripsH.HandleDelete)
	})

	return &testEnv{router: r, db: db, completer: fc}
}

// do sends one request. body is sent as-is; pass a url.Values for forms.
func (e *testEnv) do(method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	case string:
		reader = strings.NewReader(b)
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// register creates an account through the form and returns its session cookie.
func (e *testEnv) register(t *testing.T, name, email string) *http.Cookie {
	t.Helper()
	rr := e.do(http.MethodPost, "/register", url.Values{
		"name":     {name},
		"email":    {email},
		"password": {strongPassword},
	}, nil)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	return sessionCookie(t, rr)
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}
