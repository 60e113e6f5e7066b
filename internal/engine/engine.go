// Package engine orchestrates one stock-check run: load the catalog, check
// every product at its retailer, aggregate a summary, and send the report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/restockd/restockd/internal/metrics"
	"github.com/restockd/restockd/internal/notify"
	"github.com/restockd/restockd/internal/retailer"
	"github.com/restockd/restockd/internal/store"
	"github.com/restockd/restockd/pkg/types"
)

// catalogFailureMessage is the best-effort notification sent when a run
// cannot even load the product catalog.
const catalogFailureMessage = "❌ Stock checker failed to load the product catalog."

// Engine runs the scan-and-notify pipeline. Execution is strictly
// sequential: one product at a time, one pincode at a time, so the
// accumulators need no locking.
type Engine struct {
	store    store.Store
	checkers map[types.StoreType]retailer.Checker
	notifier notify.Notifier
	pincodes []string
	log      *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine with injected dependencies. Pincodes are tried in
// the exact order given; order is part of the contract because the first
// hit short-circuits the rest.
func New(
	s store.Store,
	checkers []retailer.Checker,
	n notify.Notifier,
	pincodes []string,
	opts ...Option,
) *Engine {
	byStore := make(map[types.StoreType]retailer.Checker, len(checkers))
	for _, c := range checkers {
		byStore[c.Store()] = c
	}

	e := &Engine{
		store:    s,
		checkers: byStore,
		notifier: n,
		pincodes: pincodes,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunResult is the outcome of one end-to-end run.
type RunResult struct {
	Hits    []types.StockHit
	Summary types.RunSummary
	Report  string
}

// Found returns the number of in-stock hits.
func (r *RunResult) Found() int {
	return len(r.Hits)
}

// RunCheck executes one full run. Only a catalog-load failure is fatal;
// everything downstream degrades and the run completes.
func (e *Engine) RunCheck(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	defer func() {
		metrics.CheckRunDuration.Observe(time.Since(start).Seconds())
	}()

	products, err := e.store.ListProducts(ctx)
	if err != nil {
		metrics.CatalogLoadFailuresTotal.Inc()
		if nerr := e.notifier.Send(ctx, catalogFailureMessage); nerr != nil {
			e.log.Error("failure notification not delivered", "error", nerr)
		}
		return nil, fmt.Errorf("loading product catalog: %w", err)
	}

	e.log.Info("starting stock check", "products", len(products), "pincodes", e.pincodes)

	hits, summary := e.Scan(ctx, products)
	report := FormatReport(hits, summary)

	if err := e.notifier.Send(ctx, report); err != nil {
		e.log.Error("report notification not delivered", "error", err)
	}

	e.log.Info("stock check complete",
		"found", len(hits),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &RunResult{Hits: hits, Summary: summary, Report: report}, nil
}

// Scan checks every product sequentially and accumulates per-retailer
// tallies. A failure inside one check never aborts the rest of the pass.
// Products with a store type no checker serves are skipped entirely.
func (e *Engine) Scan(
	ctx context.Context,
	products []types.Product,
) ([]types.StockHit, types.RunSummary) {
	summary := types.NewRunSummary()
	var hits []types.StockHit

	for i := range products {
		p := &products[i]

		c, ok := e.checkers[p.StoreType]
		if !ok {
			e.log.Debug("skipping product with unhandled store type",
				"product", p.Name, "store_type", p.StoreType,
			)
			continue
		}

		metrics.ProductsCheckedTotal.WithLabelValues(string(p.StoreType)).Inc()

		hit := e.checkProduct(ctx, c, p)
		summary.Record(p.StoreType, hit != nil)

		if hit != nil {
			metrics.StockHitsTotal.WithLabelValues(string(p.StoreType)).Inc()
			hits = append(hits, *hit)
		}
	}

	return hits, summary
}

// checkProduct tries each configured pincode in order and stops at the
// first hit; checkers that are not location-sensitive are called once.
func (e *Engine) checkProduct(
	ctx context.Context,
	c retailer.Checker,
	p *types.Product,
) *types.StockHit {
	pincodes := e.pincodes
	if !c.LocationSensitive() {
		pincodes = []string{""}
	}

	for _, pincode := range pincodes {
		hit, err := c.Check(ctx, p, pincode)
		if err != nil {
			if errors.Is(err, retailer.ErrRateLimited) {
				metrics.RateLimitHitsTotal.WithLabelValues(string(p.StoreType)).Inc()
				e.log.Warn("retailer throttled check",
					"product", p.Name, "store_type", p.StoreType,
				)
			} else {
				metrics.CheckErrorsTotal.WithLabelValues(string(p.StoreType)).Inc()
				e.log.Error("check failed",
					"product", p.Name, "store_type", p.StoreType,
					"pincode", pincode, "error", err,
				)
			}
			continue
		}
		if hit != nil {
			return hit
		}
	}
	return nil
}
