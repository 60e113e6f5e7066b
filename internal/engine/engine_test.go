package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restockd/restockd/internal/retailer"
	"github.com/restockd/restockd/pkg/types"
)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore serves a fixed catalog or a fixed error.
type fakeStore struct {
	products []types.Product
	err      error
}

func (f *fakeStore) ListProducts(_ context.Context) ([]types.Product, error) {
	return f.products, f.err
}

func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Ping(_ context.Context) error    { return nil }

// fakeChecker reports stock per product ID and records every call it sees.
type fakeChecker struct {
	store    types.StoreType
	location bool

	// inStock maps product ID to the pincode it is available at. Products
	// not in the map are out of stock everywhere.
	inStock map[string]string
	// failing maps product ID to the error every check returns.
	failing map[string]error

	calls []checkCall
}

type checkCall struct {
	productID string
	pincode   string
}

func (f *fakeChecker) Store() types.StoreType  { return f.store }
func (f *fakeChecker) LocationSensitive() bool { return f.location }

func (f *fakeChecker) Check(
	_ context.Context,
	p *types.Product,
	pincode string,
) (*types.StockHit, error) {
	f.calls = append(f.calls, checkCall{productID: p.ProductID, pincode: pincode})

	if err, ok := f.failing[p.ProductID]; ok {
		return nil, err
	}
	at, ok := f.inStock[p.ProductID]
	if !ok || (f.location && at != pincode) {
		return nil, nil
	}
	return &types.StockHit{
		Store:       f.store,
		ProductName: p.Name,
		DisplayText: fmt.Sprintf("hit %s@%s", p.ProductID, pincode),
	}, nil
}

// fakeNotifier records every message sent.
type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.sent = append(f.sent, text)
	return f.err
}

func product(st types.StoreType, id string) types.Product {
	return types.Product{
		Name:      "product " + id,
		URL:       "https://example.com/" + id,
		ProductID: id,
		StoreType: st,
	}
}

func TestEngine_RunCheck_TalliesAndReport(t *testing.T) {
	t.Parallel()

	croma := &fakeChecker{
		store:    types.StoreCroma,
		location: true,
		inStock:  map[string]string{"c1": "132001"},
	}
	st := &fakeStore{products: []types.Product{
		product(types.StoreCroma, "c1"),
		product(types.StoreCroma, "c2"),
	}}
	notifier := &fakeNotifier{}

	eng := New(st, []retailer.Checker{croma}, notifier, []string{"132001"},
		WithLogger(quietLogger()),
	)

	res, err := eng.RunCheck(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Found())
	assert.Equal(t, types.Tally{Available: 1, Total: 2}, res.Summary.Tallies[types.StoreCroma])
	assert.Contains(t, res.Report, "Croma: 1/2")
	assert.Contains(t, res.Report, stockAlertBanner)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, res.Report, notifier.sent[0])
}

func TestEngine_RunCheck_NotifiesEvenWithoutHits(t *testing.T) {
	t.Parallel()

	croma := &fakeChecker{store: types.StoreCroma, location: true}
	st := &fakeStore{products: []types.Product{product(types.StoreCroma, "c1")}}
	notifier := &fakeNotifier{}

	eng := New(st, []retailer.Checker{croma}, notifier, []string{"132001"},
		WithLogger(quietLogger()),
	)

	res, err := eng.RunCheck(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Found())
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], noStockBanner)
	assert.Contains(t, notifier.sent[0], "Croma: 0/1")
}

func TestEngine_RunCheck_CatalogFailure(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("connection refused")
	st := &fakeStore{err: dbErr}
	notifier := &fakeNotifier{}

	eng := New(st, nil, notifier, []string{"132001"}, WithLogger(quietLogger()))

	res, err := eng.RunCheck(context.Background())
	require.ErrorIs(t, err, dbErr)
	assert.Nil(t, res)

	// A best-effort failure notification goes out before the run aborts.
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, catalogFailureMessage, notifier.sent[0])
}

func TestEngine_Scan_SkipsUnknownStoreType(t *testing.T) {
	t.Parallel()

	croma := &fakeChecker{store: types.StoreCroma, location: true}
	eng := New(&fakeStore{}, []retailer.Checker{croma}, &fakeNotifier{},
		[]string{"132001"}, WithLogger(quietLogger()),
	)

	hits, summary := eng.Scan(context.Background(), []types.Product{
		product("bestbuy", "x1"),
		product(types.StoreCroma, "c1"),
	})

	assert.Empty(t, hits)
	assert.Equal(t, types.Tally{Available: 0, Total: 1}, summary.Tallies[types.StoreCroma])
	_, tracked := summary.Tallies["bestbuy"]
	assert.False(t, tracked, "unknown store types must not enter the summary")
	require.Len(t, croma.calls, 1)
	assert.Equal(t, "c1", croma.calls[0].productID)
}

func TestEngine_Scan_CheckerErrorDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	croma := &fakeChecker{
		store:    types.StoreCroma,
		location: true,
		inStock:  map[string]string{"c2": "132001"},
		failing:  map[string]error{"c1": errors.New("boom")},
	}
	eng := New(&fakeStore{}, []retailer.Checker{croma}, &fakeNotifier{},
		[]string{"132001"}, WithLogger(quietLogger()),
	)

	hits, summary := eng.Scan(context.Background(), []types.Product{
		product(types.StoreCroma, "c1"),
		product(types.StoreCroma, "c2"),
	})

	// The failing product counts towards the total but not the hits.
	require.Len(t, hits, 1)
	assert.Equal(t, "product c2", hits[0].ProductName)
	assert.Equal(t, types.Tally{Available: 1, Total: 2}, summary.Tallies[types.StoreCroma])
}

func TestEngine_Scan_RateLimitTreatedAsMiss(t *testing.T) {
	t.Parallel()

	amazon := &fakeChecker{
		store: types.StoreAmazon,
		failing: map[string]error{
			"a1": fmt.Errorf("checking stock: %w", retailer.ErrRateLimited),
		},
	}
	eng := New(&fakeStore{}, []retailer.Checker{amazon}, &fakeNotifier{},
		[]string{"132001"}, WithLogger(quietLogger()),
	)

	hits, summary := eng.Scan(context.Background(), []types.Product{
		product(types.StoreAmazon, "a1"),
	})

	assert.Empty(t, hits)
	assert.Equal(t, types.Tally{Available: 0, Total: 1}, summary.Tallies[types.StoreAmazon])
}

func TestEngine_Scan_PincodeOrderAndShortCircuit(t *testing.T) {
	t.Parallel()

	croma := &fakeChecker{
		store:    types.StoreCroma,
		location: true,
		inStock:  map[string]string{"c1": "560001"},
	}
	eng := New(&fakeStore{}, []retailer.Checker{croma}, &fakeNotifier{},
		[]string{"132001", "560001", "400001"}, WithLogger(quietLogger()),
	)

	hits, _ := eng.Scan(context.Background(), []types.Product{
		product(types.StoreCroma, "c1"),
	})

	require.Len(t, hits, 1)
	// The first pincode misses, the second hits, the third is never tried.
	require.Len(t, croma.calls, 2)
	assert.Equal(t, "132001", croma.calls[0].pincode)
	assert.Equal(t, "560001", croma.calls[1].pincode)
}

func TestEngine_Scan_LocationInsensitiveCheckedOnce(t *testing.T) {
	t.Parallel()

	amazon := &fakeChecker{store: types.StoreAmazon}
	eng := New(&fakeStore{}, []retailer.Checker{amazon}, &fakeNotifier{},
		[]string{"132001", "560001"}, WithLogger(quietLogger()),
	)

	eng.Scan(context.Background(), []types.Product{product(types.StoreAmazon, "a1")})

	require.Len(t, amazon.calls, 1)
	assert.Empty(t, amazon.calls[0].pincode)
}

func TestEngine_RunCheck_NotifierFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	croma := &fakeChecker{store: types.StoreCroma, location: true}
	st := &fakeStore{products: []types.Product{product(types.StoreCroma, "c1")}}
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	eng := New(st, []retailer.Checker{croma}, notifier, []string{"132001"},
		WithLogger(quietLogger()),
	)

	res, err := eng.RunCheck(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestScheduler_RegistersSingleEntry(t *testing.T) {
	t.Parallel()

	eng := New(&fakeStore{}, nil, &fakeNotifier{}, []string{"132001"},
		WithLogger(quietLogger()),
	)

	sched, err := NewScheduler(eng, 15*time.Minute, quietLogger())
	require.NoError(t, err)

	assert.Len(t, sched.Entries(), 1)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	eng := New(&fakeStore{}, nil, &fakeNotifier{}, []string{"132001"},
		WithLogger(quietLogger()),
	)

	sched, err := NewScheduler(eng, time.Hour, quietLogger())
	require.NoError(t, err)

	sched.Start()
	ctx := sched.Stop()
	<-ctx.Done()
}
