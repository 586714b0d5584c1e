// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository / completion  → talks to the store and the language model
//
// Services take interfaces (repository.TripRepository, completion.Completer),
// never concrete backends, so tests pass hand-written fakes and main.go
// decides between SQLite and Postgres in one place.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/completion"
	"github.com/sakif/dreamways/internal/model"
)

var errEmptyPlan = errors.New("empty completion")

// Planner turns a TripRequest into a TripPlan via the completion service.
type Planner struct {
	completer completion.Completer
	logger    *slog.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(completer completion.Completer, logger *slog.Logger) *Planner {
	return &Planner{completer: completer, logger: logger}
}

// BuildPrompt interpolates every request field into the single prompt sent
// to the model.
func BuildPrompt(r model.TripRequest) string {
	return fmt.Sprintf(
		"Create a detailed %d-day travel itinerary for %s for a %s traveler with a %s budget. "+
			"Include recommended activities, estimated costs, transportation, and dining suggestions.",
		r.Days, r.Destination, r.Companions, r.Budget,
	)
}

// Generate validates req and asks the model for an itinerary.
//
// A successful return always carries a non-empty plan: an empty completion
// is reported as an upstream failure rather than a blank success.
func (p *Planner) Generate(ctx context.Context, req model.TripRequest) (model.TripPlan, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return model.TripPlan{}, err
	}

	start := time.Now()
	text, err := p.completer.Complete(ctx, BuildPrompt(req))
	if err != nil {
		p.logger.Error("trip generation failed",
			slog.String("destination", req.Destination),
			slog.String("error", err.Error()),
		)
		return model.TripPlan{}, fmt.Errorf("service/planner: %w", err)
	}
	if text == "" {
		return model.TripPlan{}, apperror.Upstream("the itinerary came back empty", errEmptyPlan)
	}

	p.logger.Info("trip generated",
		slog.String("destination", req.Destination),
		slog.Int("days", req.Days),
		slog.Duration("took", time.Since(start)),
	)
	return model.TripPlan{TripRequest: req, Plan: text}, nil
}
