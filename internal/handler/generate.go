package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/dreamways/internal/model"
	"github.com/sakif/dreamways/internal/service"
)

// maxGenerateBody caps the JSON body of POST /generate-trip.
const maxGenerateBody = 16 << 10

// GenerateHandler serves the generation endpoint.
type GenerateHandler struct {
	planner *service.Planner
	logger  *slog.Logger
}

// NewGenerateHandler creates a GenerateHandler.
func NewGenerateHandler(planner *service.Planner, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{planner: planner, logger: logger}
}

// GenerateResponse is the success body of POST /generate-trip.
type GenerateResponse struct {
	Plan string `json:"plan"`
}

// HandleGenerate turns a trip request into an itinerary.
//
// HTTP: POST /generate-trip
// Body: {"destination":"Paris","days":5,"budget":"medium","companions":"couple"}
// 200:  {"plan":"..."}
// 400 invalid body or fields, 502 completion failed, 503 not configured.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBody)

	// Keys other than the four request fields are ignored.
	var req model.TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid generate-trip JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_json",
			Message: "Request body must be a JSON object with destination, days, budget and companions",
		})
		return
	}

	plan, err := h.planner.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Plan: plan.Plan})
}
