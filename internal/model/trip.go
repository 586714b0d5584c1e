package model

import (
	"errors"
	"reflect"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/sakif/dreamways/internal/apperror"
)

// Budget is the spending level a traveller picks on the planner form.
type Budget string

const (
	BudgetLow       Budget = "low"
	BudgetMedium    Budget = "medium"
	BudgetExpensive Budget = "expensive"
)

// Companions describes who the traveller is going with.
type Companions string

const (
	CompanionsSingle  Companions = "single"
	CompanionsCouple  Companions = "couple"
	CompanionsFamily  Companions = "family"
	CompanionsFriends Companions = "friends"
)

// Budgets and CompanionKinds list the allowed values in display order.
var (
	Budgets        = []Budget{BudgetLow, BudgetMedium, BudgetExpensive}
	CompanionKinds = []Companions{CompanionsSingle, CompanionsCouple, CompanionsFamily, CompanionsFriends}
)

const (
	MaxDestinationLength = 200
	MinTripDays          = 1
	MaxTripDays          = 30
)

// TripRequest is what the planner form (or a POST /generate-trip body) asks for.
// It is never persisted.
//
// The field order is the wire order: encoding/json emits struct fields in
// declaration order, so a marshalled request is always
// {"destination":...,"days":...,"budget":...,"companions":...}.
type TripRequest struct {
	Destination string     `json:"destination" validate:"required,max=200"`
	Days        int        `json:"days" validate:"min=1,max=30"`
	Budget      Budget     `json:"budget" validate:"oneof=low medium expensive"`
	Companions  Companions `json:"companions" validate:"oneof=single couple family friends"`
}

// TripPlan is a generated itinerary together with the request that produced it.
// The embedded request flattens into the same JSON object as Plan.
type TripPlan struct {
	TripRequest
	Plan string `json:"plan"`
}

// SavedTrip is a TripPlan a user chose to keep. The store assigns ID;
// records are never updated after creation.
type SavedTrip struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Destination string     `json:"destination"`
	Days        int        `json:"days"`
	Budget      Budget     `json:"budget"`
	Companions  Companions `json:"companions"`
	Plan        string     `json:"plan"`
	SavedAt     time.Time  `json:"savedAt"`
}

// NewSavedTrip tags a plan with its owner. ID and SavedAt are left for the store.
func NewSavedTrip(userID string, plan TripPlan) *SavedTrip {
	return &SavedTrip{
		UserID:      userID,
		Destination: plan.Destination,
		Days:        plan.Days,
		Budget:      plan.Budget,
		Companions:  plan.Companions,
		Plan:        plan.Plan,
	}
}

// validate is safe for concurrent use and caches struct metadata,
// so one instance serves the whole process.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name ("destination") rather than the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalized returns a copy with surrounding whitespace removed from the text fields.
func (r TripRequest) Normalized() TripRequest {
	r.Destination = strings.TrimSpace(r.Destination)
	r.Budget = Budget(strings.TrimSpace(string(r.Budget)))
	r.Companions = Companions(strings.TrimSpace(string(r.Companions)))
	return r
}

// Validate checks the request and returns an *apperror.AppError wrapping
// ErrValidation for the first offending field.
func (r TripRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.ValidationFailed("", err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "destination":
		if fe.Tag() == "max" {
			return apperror.ValidationFailed("destination", "destination must be 200 characters or less")
		}
		return apperror.ValidationFailed("destination", "destination is required")
	case "days":
		return apperror.ValidationFailed("days", "days must be between 1 and 30")
	case "budget":
		return apperror.ValidationFailed("budget", "budget must be one of low, medium, expensive")
	case "companions":
		return apperror.ValidationFailed("companions", "companions must be one of single, couple, family, friends")
	}
	return apperror.ValidationFailed(fe.Field(), fe.Error())
}
