package retailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restockd/restockd/pkg/types"
)

func cromaProduct() *types.Product {
	return &types.Product{
		Name:      "PS5 Slim",
		URL:       "https://www.croma.com/ps5-slim/p/300001",
		ProductID: "300001",
		StoreType: types.StoreCroma,
	}
}

func cromaBody(promiseLines, unavailableLines string) string {
	return `{
		"promise": {
			"suggestedOption": {
				"option": {
					"promiseLines": {"promiseLine": [` + promiseLines + `]},
					"unavailableLines": {"unavailableLine": [` + unavailableLines + `]}
				}
			}
		}
	}`
}

const cromaLineWithDate = `{"assignments":{"assignment":[{"deliveryDate":"2026-09-04"}]}}`
const cromaLineNoDate = `{"assignments":{"assignment":[{"deliveryDate":""}]}}`

func TestCromaChecker_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		body       string
		wantHit    bool
		wantErr    string
	}{
		{
			name:       "promise line with delivery date yields hit",
			statusCode: http.StatusOK,
			body:       cromaBody(cromaLineWithDate, ""),
			wantHit:    true,
		},
		{
			name:       "empty promise lines yields no hit",
			statusCode: http.StatusOK,
			body:       cromaBody("", ""),
		},
		{
			name:       "promise line without delivery date yields no hit",
			statusCode: http.StatusOK,
			body:       cromaBody(cromaLineNoDate, ""),
		},
		{
			name:       "unavailable line vetoes a present promise line",
			statusCode: http.StatusOK,
			body:       cromaBody(cromaLineWithDate, `{"itemID":"300001"}`),
		},
		{
			name:       "empty response object yields no hit",
			statusCode: http.StatusOK,
			body:       `{}`,
		},
		{
			name:       "html error page is a parse error",
			statusCode: http.StatusOK,
			body:       `<html>Access Denied</html>`,
			wantErr:    "parsing promise response",
		},
		{
			name:       "non-200 status is an error",
			statusCode: http.StatusForbidden,
			body:       `forbidden`,
			wantErr:    "croma returned 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotReq cromaPromiseRequest

			srv := httptest.NewServer(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodPost, r.Method)
					assert.NotEmpty(t, r.Header.Get("Oms-Apim-Subscription-Key"))
					assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

					w.WriteHeader(tt.statusCode)
					_, _ = w.Write([]byte(tt.body))
				}),
			)
			defer srv.Close()

			c := NewCromaChecker(WithCromaBaseURL(srv.URL))
			hit, err := c.Check(context.Background(), cromaProduct(), "132001")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, hit)
				return
			}

			require.NoError(t, err)

			// The promise request is keyed by item and pincode.
			require.Len(t, gotReq.Promise.PromiseLines.PromiseLine, 1)
			line := gotReq.Promise.PromiseLines.PromiseLine[0]
			assert.Equal(t, "300001", line.ItemID)
			assert.Equal(t, "132001", line.ShipToAddress.ZipCode)

			if !tt.wantHit {
				assert.Nil(t, hit)
				return
			}

			require.NotNil(t, hit)
			assert.Equal(t, types.StoreCroma, hit.Store)
			assert.Contains(t, hit.DisplayText, "In Stock at Croma (132001)")
			assert.Contains(t, hit.DisplayText, "[PS5 Slim](https://www.croma.com/ps5-slim/p/300001)")
		})
	}
}

func TestCromaChecker_Check_AffiliateLinkPreferred(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(cromaBody(cromaLineWithDate, "")))
		}),
	)
	defer srv.Close()

	p := cromaProduct()
	p.AffiliateLink = "https://clnk.in/ps5"

	c := NewCromaChecker(WithCromaBaseURL(srv.URL))
	hit, err := c.Check(context.Background(), p, "132001")

	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Contains(t, hit.DisplayText, "(https://clnk.in/ps5)")
	assert.NotContains(t, hit.DisplayText, "croma.com/ps5-slim")
}

func TestCromaChecker_Check_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewCromaChecker(WithCromaBaseURL(srv.URL))
	hit, err := c.Check(context.Background(), cromaProduct(), "132001")

	require.Error(t, err)
	assert.Nil(t, hit)
}

func TestCromaChecker_Metadata(t *testing.T) {
	t.Parallel()

	c := NewCromaChecker()
	assert.Equal(t, types.StoreCroma, c.Store())
	assert.True(t, c.LocationSensitive())
}
