// Package handler contains the HTTP handlers of DreamWays: the server-rendered
// pages, the generation endpoint and the JSON API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming request (form values, JSON body, URL params)
// 2. Call the services (session manager, planner, trip service)
// 3. Write the response (a page, a redirect, or JSON)
//
// Handlers hold no business rules; they translate between HTTP and services.
package handler

// pages.go: the six server-rendered views and their form actions.
//
// RENDERING MODEL:
// Every view is base.html + one page template. Pages are parsed once at
// startup into their own *template.Template so the "content" block of one
// page never shadows another's.
//
// Forms POST back to the same path. Success answers with a 303 redirect
// (so a browser refresh never re-submits), failure re-renders the page with
// an inline error or an alert.
//
// Protected views (planner, results, saved) render a blank page for
// anonymous visitors: the templates wrap their content in {{if .User}}.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/auth"
	"github.com/sakif/dreamways/internal/identity"
	"github.com/sakif/dreamways/internal/model"
	"github.com/sakif/dreamways/internal/service"
	"github.com/sakif/dreamways/internal/session"
	"github.com/sakif/dreamways/web"
)

// Sessions is the part of the session manager the handlers use.
// *session.Manager satisfies it.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Register(ctx context.Context, name, email, password string) (*session.Session, error)
	LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*session.Session, error)
	Logout(ctx context.Context, token string) error
	DeleteAccount(ctx context.Context, token string) error
}

var _ Sessions = (*session.Manager)(nil)

const (
	MsgRegistrationFailed = "Registration failed. Email might already be in use."
	MsgSaveFailed         = "Failed to save trip"
	MsgDeleteFailed       = "Failed to delete trip"
	MsgLoadFailed         = "Failed to load saved trips"
	generateAlertPrefix   = "Error generating trip: "
)

// notices are the one-line confirmations a redirect target can show,
// keyed by the ?notice= query value.
var notices = map[string]string{
	"login":      "Login successful",
	"registered": "Registration successful",
	"saved":      "Trip saved successfully!",
	"deleted":    "Trip deleted successfully!",
}

var (
	budgetLabels = map[model.Budget]string{
		model.BudgetLow:       "💰 Low Budget",
		model.BudgetMedium:    "💵 Medium Budget",
		model.BudgetExpensive: "💎 Expensive",
	}
	companionLabels = map[model.Companions]string{
		model.CompanionsSingle:  "🧑 Solo",
		model.CompanionsCouple:  "💑 Couple",
		model.CompanionsFamily:  "👨‍👩‍👧‍👦 Family",
		model.CompanionsFriends: "👥 Friends Group",
	}
	// The planner form offers 2..10 days.
	dayChoices = lo.RangeFrom(2, 9)
)

// page names double as template file names under web/templates.
const (
	pageLanding  = "landing"
	pageLogin    = "login"
	pageRegister = "register"
	pagePlanner  = "planner"
	pageResults  = "results"
	pageSaved    = "saved"
)

var pageTitles = map[string]string{
	pageLanding:  "Home",
	pageLogin:    "Sign In",
	pageRegister: "Register",
	pagePlanner:  "Plan a Trip",
	pageResults:  "Your Trip",
	pageSaved:    "Saved Trips",
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type formValues struct {
	Name  string
	Email string
}

// pageData is what every template receives.
type pageData struct {
	Page          string
	Title         string
	User          *model.User
	Alert         string
	Notice        string
	Error         string
	GitHubEnabled bool

	Form formValues

	Request          model.TripRequest
	DayOptions       []option
	BudgetOptions    []option
	CompanionOptions []option

	Plan  model.TripPlan
	Trips []model.SavedTrip
}

// PagesConfig carries the knobs of PagesHandler that are not services.
type PagesConfig struct {
	SecureCookies bool
	GitHubEnabled bool
}

// PagesHandler renders the HTML views.
type PagesHandler struct {
	sessions  Sessions
	trips     *service.TripService
	planner   *service.Planner
	cfg       PagesConfig
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewPagesHandler parses the embedded templates and returns the handler.
// A template error here is a build defect, so it is returned rather than
// surfacing on the first request.
func NewPagesHandler(
	sessions Sessions,
	trips *service.TripService,
	planner *service.Planner,
	cfg PagesConfig,
	logger *slog.Logger,
) (*PagesHandler, error) {
	funcs := template.FuncMap{
		// cases.Caser keeps state, so each call gets its own.
		"title": func(v any) string {
			return cases.Title(language.English).String(fmt.Sprint(v))
		},
		"date": func(t time.Time) string {
			return t.Local().Format("Jan 2, 2006")
		},
	}

	templates := make(map[string]*template.Template, len(pageTitles))
	for page := range pageTitles {
		tmpl, err := template.New("base").Funcs(funcs).ParseFS(web.FS,
			"templates/base.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &PagesHandler{
		sessions:  sessions,
		trips:     trips,
		planner:   planner,
		cfg:       cfg,
		templates: templates,
		logger:    logger,
	}, nil
}

// =========================================================================
// LANDING / LOGIN / REGISTER / LOGOUT
// =========================================================================

// HandleLanding renders the hero page.
//
// HTTP: GET /
func (h *PagesHandler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(r, pageLanding))
}

// HandleLoginPage renders the sign-in form.
//
// HTTP: GET /login
func (h *PagesHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(r, pageLogin))
}

// HandleLogin signs in and sets the session cookie.
//
// HTTP: POST /login (form: email, password)
// Success: 303 → /trip-planner. Failure: 401 with "Invalid email or password".
func (h *PagesHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pageLogin)
	if err := r.ParseForm(); err != nil {
		data.Error = identity.MsgInvalidCredentials
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	data.Form.Email = r.PostForm.Get("email")

	sess, err := h.sessions.Login(r.Context(), data.Form.Email, r.PostForm.Get("password"))
	if err != nil {
		status, _ := errorStatus(err)
		data.Error = identity.MsgInvalidCredentials
		switch {
		case status >= http.StatusInternalServerError:
			h.logger.Error("login failed", slog.String("error", err.Error()))
			data.Error = userMessage(err)
		case status != http.StatusUnauthorized:
			status = http.StatusUnauthorized
		}
		h.render(w, r, status, data)
		return
	}

	auth.SetSessionCookie(w, sess.Token, sess.ExpiresAt, h.cfg.SecureCookies)
	http.Redirect(w, r, "/trip-planner?notice=login", http.StatusSeeOther)
}

// HandleRegisterPage renders the registration form.
//
// HTTP: GET /register
func (h *PagesHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(r, pageRegister))
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /register (form: name, email, password)
//
// Password policy violations are shown verbatim ("Password must be at least
// 9 characters long, ..."). Anything else the identity service rejects gets
// the generic registration message.
func (h *PagesHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pageRegister)
	if err := r.ParseForm(); err != nil {
		data.Error = MsgRegistrationFailed
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	data.Form = formValues{Name: r.PostForm.Get("name"), Email: r.PostForm.Get("email")}

	sess, err := h.sessions.Register(r.Context(), data.Form.Name, data.Form.Email, r.PostForm.Get("password"))
	if err != nil {
		status, _ := errorStatus(err)
		data.Error = MsgRegistrationFailed

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Field == "password" {
			data.Error = appErr.Message
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("registration failed", slog.String("error", err.Error()))
		}
		h.render(w, r, status, data)
		return
	}

	auth.SetSessionCookie(w, sess.Token, sess.ExpiresAt, h.cfg.SecureCookies)
	http.Redirect(w, r, "/trip-planner?notice=registered", http.StatusSeeOther)
}

// HandleLogout ends the session and returns to the landing page.
//
// HTTP: POST /logout
func (h *PagesHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout failed", slog.String("error", err.Error()))
		}
	}
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// =========================================================================
// PLANNER / RESULTS
// =========================================================================

// HandlePlannerPage renders the trip form.
//
// HTTP: GET /trip-planner
func (h *PagesHandler) HandlePlannerPage(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pagePlanner)
	h.setPlannerForm(&data, defaultTripRequest())
	h.render(w, r, http.StatusOK, data)
}

// HandlePlan generates an itinerary and redirects to the results view.
//
// HTTP: POST /trip-planner (form: destination, days, budget, companions)
// Success: 303 → /trip-results?budget=…&companions=…&days=…&destination=…&plan=…
// Failure: the planner again, with "Error generating trip: <reason>".
func (h *PagesHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pagePlanner)
	if data.User == nil {
		h.render(w, r, http.StatusUnauthorized, data)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.setPlannerForm(&data, defaultTripRequest())
		data.Alert = generateAlertPrefix + "the form could not be read"
		h.render(w, r, http.StatusBadRequest, data)
		return
	}

	req := tripRequestFrom(r.PostForm)
	plan, err := h.planner.Generate(r.Context(), req)
	if err != nil {
		status, _ := errorStatus(err)
		h.setPlannerForm(&data, req)
		data.Alert = generateAlertPrefix + userMessage(err)
		h.render(w, r, status, data)
		return
	}

	q := tripValues(plan.TripRequest)
	q.Set("plan", plan.Plan)
	http.Redirect(w, r, "/trip-results?"+q.Encode(), http.StatusSeeOther)
}

// HandleResultsPage shows a generated plan read from the query string.
// days is 0 when missing or not a number.
//
// HTTP: GET /trip-results
func (h *PagesHandler) HandleResultsPage(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pageResults)
	data.Plan = tripPlanFrom(r.URL.Query())
	h.render(w, r, http.StatusOK, data)
}

// HandleSave stores the plan shown on the results view.
//
// HTTP: POST /trip-results (form: destination, days, budget, companions, plan)
// Success: 303 → /saved-trips?notice=saved.
func (h *PagesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pageResults)
	if err := r.ParseForm(); err != nil {
		data.Alert = MsgSaveFailed
		h.render(w, r, http.StatusBadRequest, data)
		return
	}
	data.Plan = tripPlanFrom(r.PostForm)

	if _, err := h.trips.For(data.User).Save(r.Context(), data.Plan); err != nil {
		status, _ := errorStatus(err)
		data.Alert = MsgSaveFailed
		if errors.Is(err, apperror.ErrUnauthorized) {
			data.Alert = userMessage(err)
		}
		h.render(w, r, status, data)
		return
	}

	http.Redirect(w, r, "/saved-trips?notice=saved", http.StatusSeeOther)
}

// =========================================================================
// SAVED TRIPS
// =========================================================================

// HandleSavedPage lists the signed-in user's trips, newest first.
//
// HTTP: GET /saved-trips
func (h *PagesHandler) HandleSavedPage(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pageSaved)
	trips := h.trips.For(data.User)

	status := http.StatusOK
	if err := trips.Fetch(r.Context()); err != nil {
		status, _ = errorStatus(err)
		data.Alert = MsgLoadFailed
	}
	data.Trips = trips.Trips()
	h.render(w, r, status, data)
}

// HandleDelete removes one of the user's trips.
//
// HTTP: POST /saved-trips/{id}/delete
// Success: 303 → /saved-trips?notice=deleted.
func (h *PagesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	data := h.newPage(r, pageSaved)
	trips := h.trips.For(data.User)

	err := trips.Delete(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		http.Redirect(w, r, "/saved-trips?notice=deleted", http.StatusSeeOther)
		return
	}

	status, _ := errorStatus(err)
	data.Alert = MsgDeleteFailed
	if errors.Is(err, apperror.ErrUnauthorized) {
		data.Alert = userMessage(err)
	}
	// The view stays usable: show whatever the store has now.
	if fetchErr := trips.Fetch(r.Context()); fetchErr == nil {
		data.Trips = trips.Trips()
	}
	h.render(w, r, status, data)
}

// =========================================================================
// HELPERS
// =========================================================================

func (h *PagesHandler) newPage(r *http.Request, page string) pageData {
	return pageData{
		Page:          page,
		Title:         pageTitles[page],
		User:          auth.UserFromContext(r.Context()),
		Notice:        notices[r.URL.Query().Get("notice")],
		GitHubEnabled: h.cfg.GitHubEnabled,
	}
}

// render executes into a buffer first so a template failure can still
// produce a clean 500 instead of half a page.
func (h *PagesHandler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	tmpl, ok := h.templates[data.Page]
	if !ok {
		h.logger.Error("unknown page", slog.String("page", data.Page))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("rendering page failed",
			slog.String("page", data.Page),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("writing page failed", slog.String("error", err.Error()))
	}
}

func (h *PagesHandler) setPlannerForm(data *pageData, req model.TripRequest) {
	data.Request = req
	data.DayOptions = lo.Map(dayChoices, func(d, _ int) option {
		v := strconv.Itoa(d)
		return option{Value: v, Label: v, Selected: d == req.Days}
	})
	data.BudgetOptions = lo.Map(model.Budgets, func(b model.Budget, _ int) option {
		return option{Value: string(b), Label: budgetLabels[b], Selected: b == req.Budget}
	})
	data.CompanionOptions = lo.Map(model.CompanionKinds, func(c model.Companions, _ int) option {
		return option{Value: string(c), Label: companionLabels[c], Selected: c == req.Companions}
	})
}

func defaultTripRequest() model.TripRequest {
	return model.TripRequest{
		Days:       3,
		Budget:     model.BudgetMedium,
		Companions: model.CompanionsSingle,
	}
}

// tripRequestFrom reads a TripRequest from form or query values.
func tripRequestFrom(v url.Values) model.TripRequest {
	days, err := strconv.Atoi(v.Get("days"))
	if err != nil {
		days = 0
	}
	return model.TripRequest{
		Destination: v.Get("destination"),
		Days:        days,
		Budget:      model.Budget(v.Get("budget")),
		Companions:  model.Companions(v.Get("companions")),
	}
}

func tripPlanFrom(v url.Values) model.TripPlan {
	return model.TripPlan{TripRequest: tripRequestFrom(v), Plan: v.Get("plan")}
}

func tripValues(req model.TripRequest) url.Values {
	q := url.Values{}
	q.Set("destination", req.Destination)
	q.Set("days", strconv.Itoa(req.Days))
	q.Set("budget", string(req.Budget))
	q.Set("companions", string(req.Companions))
	return q
}
