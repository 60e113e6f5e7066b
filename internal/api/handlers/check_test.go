package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restockd/restockd/internal/api/handlers"
	"github.com/restockd/restockd/internal/engine"
	"github.com/restockd/restockd/pkg/types"
)

// fakeRunner records invocations and serves a canned result or error.
type fakeRunner struct {
	calls  int
	result *engine.RunResult
	err    error
}

func (f *fakeRunner) RunCheck(_ context.Context) (*engine.RunResult, error) {
	f.calls++
	return f.result, f.err
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		runner     *fakeRunner
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{
			name:   "valid secret runs the check",
			target: "/api/v1/check?secret=s3cret",
			runner: &fakeRunner{result: &engine.RunResult{
				Hits: []types.StockHit{
					{Store: types.StoreCroma, ProductName: "PS5"},
					{Store: types.StoreAmazon, ProductName: "PS5"},
				},
			}},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","found":2}`,
			wantCalls:  1,
		},
		{
			name:       "zero hits still reports ok",
			target:     "/api/v1/check?secret=s3cret",
			runner:     &fakeRunner{result: &engine.RunResult{}},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","found":0}`,
			wantCalls:  1,
		},
		{
			name:       "wrong secret is rejected before any work",
			target:     "/api/v1/check?secret=wrong",
			runner:     &fakeRunner{result: &engine.RunResult{}},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
			wantCalls:  0,
		},
		{
			name:       "missing secret is rejected",
			target:     "/api/v1/check",
			runner:     &fakeRunner{result: &engine.RunResult{}},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
			wantCalls:  0,
		},
		{
			name:       "run failure returns 500 with the error",
			target:     "/api/v1/check?secret=s3cret",
			runner:     &fakeRunner{err: errors.New("loading product catalog: connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"loading product catalog: connection refused"}`,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := handlers.NewCheckHandler(tt.runner, "s3cret")

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := h.Check(c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantCalls, tt.runner.calls,
				"runner invocation count")
		})
	}
}
