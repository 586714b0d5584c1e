package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/dreamways/internal/apperror"
	"github.com/sakif/dreamways/internal/handler"
)

func TestHandleGenerate_Success(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/generate-trip",
		`{"destination":"Paris","days":5,"budget":"medium","companions":"couple"}`, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var res handler.GenerateResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "Day 1: Louvre", res.Plan)

	require.Len(t, env.completer.prompts, 1)
	assert.Contains(t, env.completer.prompts[0], "5-day travel itinerary for Paris for a couple traveler with a medium budget")
}

func TestHandleGenerate_IgnoresExtraKeys(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/generate-trip",
		`{"destination":"Rome","days":2,"budget":"low","companions":"friends","currency":"EUR"}`, nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res handler.GenerateResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, "Day 1: Louvre", res.Plan)
	require.Len(t, env.completer.prompts, 1)
	assert.Contains(t, env.completer.prompts[0], "2-day travel itinerary for Rome")
}

func TestHandleGenerate_Errors(t *testing.T) {
	valid := `{"destination":"Paris","days":5,"budget":"medium","companions":"couple"}`

	tests := []struct {
		name       string
		body       string
		text       string
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "malformed JSON", body: `{"destination":`, wantStatus: http.StatusBadRequest, wantType: "invalid_json"},
		{name: "days out of range", body: `{"destination":"Paris","days":0,"budget":"medium","companions":"couple"}`, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "unknown budget", body: `{"destination":"Paris","days":5,"budget":"lavish","companions":"couple"}`, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "missing destination", body: `{"days":5,"budget":"medium","companions":"couple"}`, wantStatus: http.StatusBadRequest, wantType: "validation_error"},
		{name: "completion failed", body: valid, err: apperror.Upstream("completion service returned status 500", errors.New("500")), wantStatus: http.StatusBadGateway, wantType: "upstream_error"},
		{name: "empty completion", body: valid, text: "", wantStatus: http.StatusBadGateway, wantType: "upstream_error"},
		{name: "not configured", body: valid, err: apperror.Unavailable("trip generation is not configured"), wantStatus: http.StatusServiceUnavailable, wantType: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.completer.text = tt.text
			env.completer.err = tt.err

			rr := env.do(http.MethodPost, "/generate-trip", tt.body, nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var res handler.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
			assert.Equal(t, tt.wantType, res.Error)
			assert.NotEmpty(t, res.Message)
		})
	}
}
