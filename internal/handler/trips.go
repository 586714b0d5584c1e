package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/dreamways/internal/auth"
	"github.com/sakif/dreamways/internal/model"
	"github.com/sakif/dreamways/internal/service"
)

const maxTripBody = 256 << 10

// TripsHandler is the JSON face of the saved-trips manager. The pages
// handler drives the same TripService from forms.
type TripsHandler struct {
	trips  *service.TripService
	logger *slog.Logger
}

// NewTripsHandler creates a TripsHandler.
func NewTripsHandler(trips *service.TripService, logger *slog.Logger) *TripsHandler {
	return &TripsHandler{trips: trips, logger: logger}
}

// TripListResponse wraps the list so the body can grow fields later.
type TripListResponse struct {
	Trips []model.SavedTrip `json:"trips"`
}

// HandleList returns the current user's trips, newest first.
//
// HTTP: GET /api/trips
// Auth: required
func (h *TripsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	c := h.trips.For(auth.UserFromContext(r.Context()))
	if err := c.Fetch(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TripListResponse{Trips: c.Trips()})
}

// HandleCreate saves a plan for the current user.
//
// HTTP: POST /api/trips
// Auth: required
// Body: {"destination":"Paris","days":5,"budget":"medium","companions":"couple","plan":"..."}
// 201:  the stored SavedTrip
func (h *TripsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTripBody)

	var plan model.TripPlan
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&plan); err != nil {
		h.logger.Warn("invalid trip JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "Request body must be a JSON trip plan",
		})
		return
	}

	saved, err := h.trips.For(auth.UserFromContext(r.Context())).Save(r.Context(), plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// HandleDelete removes one trip. Trips of other users are reported as not
// found rather than forbidden, so ids cannot be probed.
//
// HTTP: DELETE /api/trips/{id}
// Auth: required
// 204 on success, 404 when the user has no such trip.
func (h *TripsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.trips.For(auth.UserFromContext(r.Context())).Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
