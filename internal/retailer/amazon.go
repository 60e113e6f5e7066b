package retailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/restockd/restockd/pkg/sigv4"
	"github.com/restockd/restockd/pkg/types"
)

const (
	amazonGetItemsPath = "/paapi5/getitems"
	amazonTarget       = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"
	amazonService      = "ProductAdvertisingAPI"
)

// AmazonChecker checks availability via the Product Advertising API 5.0
// GetItems operation, signed with AWS Signature V4. Availability is
// marketplace-wide, so no pincode is involved.
type AmazonChecker struct {
	host        string
	marketplace string
	partnerTag  string
	signer      *sigv4.Signer
	client      *http.Client
	scheme      string
}

// AmazonOption configures the AmazonChecker.
type AmazonOption func(*AmazonChecker)

// WithAmazonHost overrides the default PA-API host.
func WithAmazonHost(h string) AmazonOption {
	return func(c *AmazonChecker) {
		c.host = h
	}
}

// WithAmazonMarketplace overrides the default marketplace.
func WithAmazonMarketplace(m string) AmazonOption {
	return func(c *AmazonChecker) {
		c.marketplace = m
	}
}

// WithAmazonHTTPClient overrides the default HTTP client.
func WithAmazonHTTPClient(hc *http.Client) AmazonOption {
	return func(c *AmazonChecker) {
		c.client = hc
	}
}

// WithAmazonScheme overrides the URL scheme; tests point the checker at a
// plain-HTTP httptest server.
func WithAmazonScheme(s string) AmazonOption {
	return func(c *AmazonChecker) {
		c.scheme = s
	}
}

// WithAmazonSigner overrides the request signer, mainly to pin the signing
// timestamp in tests.
func WithAmazonSigner(s *sigv4.Signer) AmazonOption {
	return func(c *AmazonChecker) {
		c.signer = s
	}
}

// NewAmazonChecker creates a new Amazon stock checker.
func NewAmazonChecker(
	accessKey, secretKey, partnerTag, region string,
	opts ...AmazonOption,
) *AmazonChecker {
	c := &AmazonChecker{
		host:        "webservices.amazon.in",
		marketplace: "www.amazon.in",
		partnerTag:  partnerTag,
		signer:      sigv4.NewSigner(accessKey, secretKey, region, amazonService),
		client:      &http.Client{Timeout: 10 * time.Second},
		scheme:      "https",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store implements Checker.
func (*AmazonChecker) Store() types.StoreType {
	return types.StoreAmazon
}

// LocationSensitive implements Checker.
func (*AmazonChecker) LocationSensitive() bool {
	return false
}

type amazonGetItemsRequest struct {
	ItemIds     []string `json:"ItemIds"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	Resources   []string `json:"Resources"`
}

type amazonGetItemsResponse struct {
	ItemsResult struct {
		Items []amazonItem `json:"Items"`
	} `json:"ItemsResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

type amazonItem struct {
	ASIN          string `json:"ASIN"`
	DetailPageURL string `json:"DetailPageURL"`
	ItemInfo      struct {
		Title struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Title"`
	} `json:"ItemInfo"`
	Offers struct {
		Listings []struct {
			Price struct {
				DisplayAmount string `json:"DisplayAmount"`
			} `json:"Price"`
			Availability struct {
				Message string `json:"Message"`
			} `json:"Availability"`
		} `json:"Listings"`
	} `json:"Offers"`
}

// Check implements Checker. The pincode argument is ignored.
func (c *AmazonChecker) Check(
	ctx context.Context,
	p *types.Product,
	_ string,
) (*types.StockHit, error) {
	payload, err := json.Marshal(amazonGetItemsRequest{
		ItemIds:     []string{p.ProductID},
		PartnerTag:  c.partnerTag,
		PartnerType: "Associates",
		Marketplace: c.marketplace,
		Resources: []string{
			"ItemInfo.Title",
			"Offers.Listings.Price",
			"Offers.Listings.Availability.Message",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling getitems payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.scheme+"://"+c.host+amazonGetItemsPath,
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("creating getitems request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", amazonTarget)
	c.signer.Sign(req, payload)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing getitems request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading getitems response: %w", err)
	}

	// PA-API reports throttling both via 429 and via an error entry in a
	// 200 body; recognize either so the scanner can log it distinctly.
	if resp.StatusCode == http.StatusTooManyRequests ||
		bytes.Contains(raw, []byte("TooManyRequests")) {
		return nil, fmt.Errorf("amazon getitems: %w", ErrRateLimited)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("amazon returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var result amazonGetItemsResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parsing getitems response: %w (body: %s)", err, truncate(raw, 200))
	}

	if len(result.Errors) > 0 {
		e := result.Errors[0]
		return nil, fmt.Errorf("amazon getitems error %s: %s", e.Code, e.Message)
	}

	if len(result.ItemsResult.Items) == 0 {
		return nil, nil
	}

	return amazonHit(p, &result.ItemsResult.Items[0]), nil
}

// amazonHit formats a hit with the title, price, and availability message
// from the first offer listing, falling back to catalog values when the
// response omits them.
func amazonHit(p *types.Product, item *amazonItem) *types.StockHit {
	title := item.ItemInfo.Title.DisplayValue
	if title == "" {
		title = p.Name
	}

	link := p.Link()
	if p.AffiliateLink == "" && item.DetailPageURL != "" {
		link = item.DetailPageURL
	}

	var details []string
	if len(item.Offers.Listings) > 0 {
		l := &item.Offers.Listings[0]
		if l.Price.DisplayAmount != "" {
			details = append(details, "Price: "+l.Price.DisplayAmount)
		}
		if l.Availability.Message != "" {
			details = append(details, "_"+l.Availability.Message+"_")
		}
	}

	text := fmt.Sprintf("✅ *In Stock at Amazon*\n[%s](%s)", title, link)
	if len(details) > 0 {
		text += "\n" + strings.Join(details, "\n")
	}

	return &types.StockHit{
		Store:       types.StoreAmazon,
		ProductName: p.Name,
		DisplayText: text,
	}
}
