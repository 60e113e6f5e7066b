// Package retailer implements per-retailer stock checkers behind a common
// interface. Each checker performs one outbound availability request per
// call; every failure mode (network, status, malformed body, ambiguous
// response) is a recoverable error the caller logs and treats as "not
// available".
package retailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/restockd/restockd/pkg/types"
)

// ErrRateLimited marks a retailer response that indicates request throttling.
// Callers log it distinctly from other failures; there is no backoff, the
// product simply counts as not available this run.
var ErrRateLimited = errors.New("retailer rate limited")

// Checker is the capability each retailer adapter implements.
type Checker interface {
	// Store identifies which catalog store_type this checker serves.
	Store() types.StoreType

	// LocationSensitive reports whether availability depends on the
	// delivery pincode. Non-sensitive checkers are called once per product
	// with an empty pincode.
	LocationSensitive() bool

	// Check performs a single availability request for one product. A nil
	// hit with a nil error means confirmed not available; an error means
	// the check could not be completed and the product is treated as not
	// available.
	Check(ctx context.Context, p *types.Product, pincode string) (*types.StockHit, error)
}

// pincodeHit formats the standard hit line for pincode-checked retailers.
func pincodeHit(p *types.Product, pincode string) *types.StockHit {
	return &types.StockHit{
		Store:       p.StoreType,
		ProductName: p.Name,
		DisplayText: fmt.Sprintf(
			"✅ *In Stock at %s (%s)*\n[%s](%s)",
			p.StoreType.Title(), pincode, p.Name, p.Link(),
		),
	}
}
