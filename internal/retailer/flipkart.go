package retailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/restockd/restockd/pkg/types"
)

const defaultFlipkartURL = "https://2.rome.api.flipkart.com/api/4/page/fetch"

// Flipkart gives no stable availability contract, so the checker inspects
// the serialized page response for marker substrings. Failure markers are
// checked before success markers: when a page carries both, the product is
// treated as out of stock rather than risking a false positive. Known
// accuracy risk, kept deliberately — ambiguity degrades to "not available".
var (
	flipkartOutMarkers = []string{"out of stock", "not available"}
	flipkartInMarkers  = []string{"delivery by", "in stock"}
)

// FlipkartChecker checks availability by fetching the product page through
// Flipkart's page-fetch API with the pincode as location context.
type FlipkartChecker struct {
	baseURL string
	client  *http.Client
}

// FlipkartOption configures the FlipkartChecker.
type FlipkartOption func(*FlipkartChecker)

// WithFlipkartBaseURL overrides the default page-fetch endpoint.
func WithFlipkartBaseURL(u string) FlipkartOption {
	return func(c *FlipkartChecker) {
		c.baseURL = u
	}
}

// WithFlipkartHTTPClient overrides the default HTTP client.
func WithFlipkartHTTPClient(hc *http.Client) FlipkartOption {
	return func(c *FlipkartChecker) {
		c.client = hc
	}
}

// NewFlipkartChecker creates a new Flipkart stock checker.
func NewFlipkartChecker(opts ...FlipkartOption) *FlipkartChecker {
	c := &FlipkartChecker{
		baseURL: defaultFlipkartURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store implements Checker.
func (*FlipkartChecker) Store() types.StoreType {
	return types.StoreFlipkart
}

// LocationSensitive implements Checker. Delivery availability is per pincode.
func (*FlipkartChecker) LocationSensitive() bool {
	return true
}

type flipkartPageRequest struct {
	PageURI string `json:"pageUri"`
	Pincode string `json:"pincode"`
}

// Check implements Checker.
func (c *FlipkartChecker) Check(
	ctx context.Context,
	p *types.Product,
	pincode string,
) (*types.StockHit, error) {
	pageURI, err := flipkartPageURI(p.URL)
	if err != nil {
		return nil, fmt.Errorf("deriving page uri: %w", err)
	}

	body, err := json.Marshal(flipkartPageRequest{PageURI: pageURI, Pincode: pincode})
	if err != nil {
		return nil, fmt.Errorf("marshaling page request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("creating page request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Agent", "Mozilla/5.0 FKUA/website/42/website/Desktop")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing page request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading page response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flipkart returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	switch classifyFlipkartBody(raw) {
	case flipkartInStock:
		return pincodeHit(p, pincode), nil
	case flipkartOutOfStock:
		return nil, nil
	default:
		// No marker matched at all; ambiguous, resolved as not available.
		return nil, nil
	}
}

type flipkartVerdict int

const (
	flipkartUnknown flipkartVerdict = iota
	flipkartOutOfStock
	flipkartInStock
)

// classifyFlipkartBody applies the marker rules in priority order.
func classifyFlipkartBody(raw []byte) flipkartVerdict {
	body := strings.ToLower(string(raw))

	for _, m := range flipkartOutMarkers {
		if strings.Contains(body, m) {
			return flipkartOutOfStock
		}
	}
	for _, m := range flipkartInMarkers {
		if strings.Contains(body, m) {
			return flipkartInStock
		}
	}
	return flipkartUnknown
}

// flipkartPageURI derives the page path plus query from a canonical product
// URL, the shape the page-fetch API expects.
func flipkartPageURI(canonical string) (string, error) {
	u, err := url.Parse(canonical)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		return "", fmt.Errorf("product url %q has no path", canonical)
	}

	pageURI := u.EscapedPath()
	if u.RawQuery != "" {
		pageURI += "?" + u.RawQuery
	}
	return pageURI, nil
}
