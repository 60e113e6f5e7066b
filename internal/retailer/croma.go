package retailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/restockd/restockd/pkg/types"
)

const (
	defaultCromaURL = "https://api.croma.com/inventory/oms/v2/tms/details-pwa/"

	// The public key the Croma storefront itself sends; overridable via config.
	defaultCromaSubscriptionKey = "1131858141634e2abe2efb2b3a2a2a5d"
)

// CromaChecker checks availability via Croma's OMS inventory-promise API.
// A product is in stock at a pincode when the promise response carries at
// least one promise line with a concrete delivery date and no unavailable
// lines.
type CromaChecker struct {
	baseURL         string
	subscriptionKey string
	client          *http.Client
}

// CromaOption configures the CromaChecker.
type CromaOption func(*CromaChecker)

// WithCromaBaseURL overrides the default inventory-promise endpoint.
func WithCromaBaseURL(u string) CromaOption {
	return func(c *CromaChecker) {
		c.baseURL = u
	}
}

// WithCromaSubscriptionKey overrides the API subscription key.
func WithCromaSubscriptionKey(k string) CromaOption {
	return func(c *CromaChecker) {
		c.subscriptionKey = k
	}
}

// WithCromaHTTPClient overrides the default HTTP client.
func WithCromaHTTPClient(hc *http.Client) CromaOption {
	return func(c *CromaChecker) {
		c.client = hc
	}
}

// NewCromaChecker creates a new Croma stock checker.
func NewCromaChecker(opts ...CromaOption) *CromaChecker {
	c := &CromaChecker{
		baseURL:         defaultCromaURL,
		subscriptionKey: defaultCromaSubscriptionKey,
		client:          &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store implements Checker.
func (*CromaChecker) Store() types.StoreType {
	return types.StoreCroma
}

// LocationSensitive implements Checker. Croma promises are per delivery zip.
func (*CromaChecker) LocationSensitive() bool {
	return true
}

// cromaPromiseRequest mirrors the storefront's inventory-promise payload.
type cromaPromiseRequest struct {
	Promise cromaPromise `json:"promise"`
}

type cromaPromise struct {
	AllocationRuleID       string            `json:"allocationRuleID"`
	CheckInventory         string            `json:"checkInventory"`
	OrganizationCode       string            `json:"organizationCode"`
	SourcingClassification string            `json:"sourcingClassification"`
	PromiseLines           cromaPromiseLines `json:"promiseLines"`
}

type cromaPromiseLines struct {
	PromiseLine []cromaRequestLine `json:"promiseLine"`
}

type cromaRequestLine struct {
	FulfillmentType string             `json:"fulfillmentType"`
	ItemID          string             `json:"itemID"`
	LineID          string             `json:"lineId"`
	RequiredQty     string             `json:"requiredQty"`
	ShipToAddress   cromaShipToAddress `json:"shipToAddress"`
	Extn            cromaLineExtn      `json:"extn"`
}

type cromaShipToAddress struct {
	ZipCode string `json:"zipCode"`
}

type cromaLineExtn struct {
	WiderStoreFlag string `json:"widerStoreFlag"`
}

// cromaPromiseResponse models just the parts of the response the stock rule
// reads; everything else in the (large) promise document is ignored.
type cromaPromiseResponse struct {
	Promise struct {
		SuggestedOption struct {
			Option struct {
				PromiseLines struct {
					PromiseLine []cromaResponseLine `json:"promiseLine"`
				} `json:"promiseLines"`
				UnavailableLines struct {
					UnavailableLine []json.RawMessage `json:"unavailableLine"`
				} `json:"unavailableLines"`
			} `json:"option"`
		} `json:"suggestedOption"`
	} `json:"promise"`
}

type cromaResponseLine struct {
	Assignments struct {
		Assignment []struct {
			DeliveryDate string `json:"deliveryDate"`
		} `json:"assignment"`
	} `json:"assignments"`
}

// Check implements Checker.
func (c *CromaChecker) Check(
	ctx context.Context,
	p *types.Product,
	pincode string,
) (*types.StockHit, error) {
	payload := cromaPromiseRequest{
		Promise: cromaPromise{
			AllocationRuleID:       "SYSTEM",
			CheckInventory:         "Y",
			OrganizationCode:       "CROMA",
			SourcingClassification: "EC",
			PromiseLines: cromaPromiseLines{
				PromiseLine: []cromaRequestLine{{
					FulfillmentType: "HDEL",
					ItemID:          p.ProductID,
					LineID:          "1",
					RequiredQty:     "1",
					ShipToAddress:   cromaShipToAddress{ZipCode: pincode},
					Extn:            cromaLineExtn{WiderStoreFlag: "N"},
				}},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling promise payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("creating promise request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Oms-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Origin", "https://www.croma.com")
	req.Header.Set("Referer", "https://www.croma.com/")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing promise request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading promise response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("croma returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var promise cromaPromiseResponse
	if err := json.Unmarshal(raw, &promise); err != nil {
		// Croma intermittently serves HTML error pages with a 200 status;
		// keep the raw body in the error so contract drift shows in logs.
		return nil, fmt.Errorf("parsing promise response: %w (body: %s)", err, truncate(raw, 200))
	}

	if !cromaAvailable(&promise) {
		return nil, nil
	}

	return pincodeHit(p, pincode), nil
}

// cromaAvailable applies the stock rule: a non-empty promise-line list where
// at least one assignment carries a concrete delivery date, and no
// unavailable lines.
func cromaAvailable(r *cromaPromiseResponse) bool {
	option := &r.Promise.SuggestedOption.Option

	if len(option.UnavailableLines.UnavailableLine) > 0 {
		return false
	}
	if len(option.PromiseLines.PromiseLine) == 0 {
		return false
	}

	for _, line := range option.PromiseLines.PromiseLine {
		for _, a := range line.Assignments.Assignment {
			if a.DeliveryDate != "" {
				return true
			}
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
