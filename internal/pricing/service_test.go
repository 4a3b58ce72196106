package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/metrics"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

type stubSource struct {
	lists map[int64][]truckflow.PriceList
	calls map[int64]int
	err   error
}

func (s *stubSource) ListPriceLists(ctx context.Context, filter truckflow.PriceListFilter) ([]truckflow.PriceList, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls == nil {
		s.calls = map[int64]int{}
	}
	s.calls[*filter.MaterialID]++
	return s.lists[*filter.MaterialID], nil
}

func newTestService(t *testing.T, source PriceListSource) *service {
	t.Helper()
	svc, err := NewService(source, metrics.NewPricingMetrics(prometheus.NewRegistry()), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 2, 1, 15, 0, 0, 0, time.UTC) }
	return impl
}

func TestNewServiceRequiresSource(t *testing.T) {
	if _, err := NewService(nil, nil, nil); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestResolveForJobEndToEnd(t *testing.T) {
	source := &stubSource{lists: map[int64][]truckflow.PriceList{
		5: {
			list(1, nil, "100", day(2026, 1, 1)),
			list(2, id(42), "90", day(2026, 1, 1)),
		},
	}}
	svc := newTestService(t, source)

	quote, err := svc.ResolveForJob(context.Background(), Target{CustomerID: 42, MaterialID: 5, AsOf: day(2026, 2, 1)})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if quote.Status != QuoteStatusPriced || quote.BasePrice == nil || quote.BasePrice.String() != "90" {
		t.Fatalf("expected priced quote at 90, got %+v", quote)
	}
	if quote.PriceListID == nil || *quote.PriceListID != 2 || quote.Tier != TierCustomer {
		t.Fatalf("unexpected quote %+v", quote)
	}
}

func TestResolveForJobNoPriceNeverReportsZero(t *testing.T) {
	svc := newTestService(t, &stubSource{})

	quote, err := svc.ResolveForJob(context.Background(), Target{CustomerID: 42, MaterialID: 5})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if quote.Status != QuoteStatusNoPrice || quote.BasePrice != nil || quote.PriceListID != nil {
		t.Fatalf("expected explicit no_price quote, got %+v", quote)
	}
	if quote.AsOf.String() != "2026-02-01" {
		t.Fatalf("expected as_of to default to today, got %s", quote.AsOf)
	}
}

func TestResolveForJobValidatesTarget(t *testing.T) {
	svc := newTestService(t, &stubSource{})
	tests := []Target{
		{CustomerID: 42},
		{CustomerID: -1, MaterialID: 5},
		{CustomerID: 42, MaterialID: 5, FromSiteID: id(3)},
		{CustomerID: 42, MaterialID: 5, ToSiteID: id(4)},
	}
	for _, target := range tests {
		if _, err := svc.ResolveForJob(context.Background(), target); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("target %+v: expected validation error, got %v", target, err)
		}
	}
}

func TestResolveForJobWrapsSourceErrors(t *testing.T) {
	svc := newTestService(t, &stubSource{err: errors.New("connection reset")})
	if _, err := svc.ResolveForJob(context.Background(), Target{MaterialID: 5}); pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}

	svc = newTestService(t, &stubSource{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")})
	if _, err := svc.ResolveForJob(context.Background(), Target{MaterialID: 5}); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected typed upstream error to pass through, got %v", err)
	}
}

func TestResolveBatchFetchesEachMaterialOnce(t *testing.T) {
	source := &stubSource{lists: map[int64][]truckflow.PriceList{
		5: {list(1, nil, "100", day(2026, 1, 1))},
		6: {},
	}}
	svc := newTestService(t, source)

	quotes, err := svc.ResolveBatch(context.Background(), []Target{
		{CustomerID: 42, MaterialID: 5},
		{CustomerID: 43, MaterialID: 6},
		{CustomerID: 44, MaterialID: 5},
	})
	if err != nil {
		t.Fatalf("resolve batch: %v", err)
	}
	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(quotes))
	}
	if quotes[0].Status != QuoteStatusPriced || quotes[1].Status != QuoteStatusNoPrice || quotes[2].CustomerID != 44 {
		t.Fatalf("unexpected quotes %+v", quotes)
	}
	if source.calls[5] != 1 || source.calls[6] != 1 {
		t.Fatalf("expected one fetch per material, got %v", source.calls)
	}
}

func TestResolveBatchRejectsInvalidTarget(t *testing.T) {
	svc := newTestService(t, &stubSource{})
	_, err := svc.ResolveBatch(context.Background(), []Target{{MaterialID: 5}, {}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["index"] != 1 {
		t.Fatalf("expected failing index in details, got %v", typed.Details())
	}
}
