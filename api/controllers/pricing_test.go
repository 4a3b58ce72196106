package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/truckflow/dispatch-core/internal/pricing"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
	"github.com/truckflow/dispatch-core/pkg/types"
)

type stubPriceLists struct {
	lists []truckflow.PriceList
}

func (s stubPriceLists) ListPriceLists(ctx context.Context, filter truckflow.PriceListFilter) ([]truckflow.PriceList, error) {
	return s.lists, nil
}

func pricingService(t *testing.T) pricing.Service {
	t.Helper()
	customer := int64(42)
	svc, err := pricing.NewService(stubPriceLists{lists: []truckflow.PriceList{
		{ID: 1, MaterialID: 5, BasePrice: decimal.NewFromInt(100), ValidFrom: types.NewDate(2026, time.January, 1)},
		{ID: 2, MaterialID: 5, CustomerID: &customer, BasePrice: decimal.NewFromInt(90), ValidFrom: types.NewDate(2026, time.January, 1)},
	}}, nil, nil)
	if err != nil {
		t.Fatalf("pricing service: %v", err)
	}
	return svc
}

func TestPricingResolve(t *testing.T) {
	rec := httptest.NewRecorder()
	PricingResolve(pricingService(t), testLogger())(rec, jsonRequest(t, http.MethodPost, "/api/v1/pricing/resolve",
		`{"customer_id":42,"material_id":5,"as_of":"2026-02-01"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var quote pricing.Quote
	decodeData(t, rec, &quote)
	if quote.Status != pricing.QuoteStatusPriced || quote.BasePrice == nil || !quote.BasePrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected customer price 90, got %+v", quote)
	}
	if quote.PriceListID == nil || *quote.PriceListID != 2 {
		t.Fatalf("expected price list 2, got %v", quote.PriceListID)
	}
}

func TestPricingResolveRejectsInvalidBody(t *testing.T) {
	for _, body := range []string{`{"material_id":0}`, `{"material_id":5,"from_site_id":3}`, `{"material_id":5,"as_of":"yesterday"}`} {
		rec := httptest.NewRecorder()
		PricingResolve(pricingService(t), testLogger())(rec, jsonRequest(t, http.MethodPost, "/", body))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestPricingResolveBatch(t *testing.T) {
	rec := httptest.NewRecorder()
	PricingResolveBatch(pricingService(t), testLogger())(rec, jsonRequest(t, http.MethodPost, "/api/v1/pricing/resolve-batch",
		`{"targets":[{"customer_id":42,"material_id":5,"as_of":"2026-02-01"},{"material_id":5,"as_of":"2025-06-01"}]}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Quotes []pricing.Quote `json:"quotes"`
	}
	decodeData(t, rec, &got)
	if len(got.Quotes) != 2 || got.Quotes[0].Status != pricing.QuoteStatusPriced || got.Quotes[1].Status != pricing.QuoteStatusNoPrice {
		t.Fatalf("unexpected quotes %+v", got.Quotes)
	}
	if got.Quotes[1].BasePrice != nil {
		t.Fatal("no_price quote must not carry a price")
	}

	rec = httptest.NewRecorder()
	PricingResolveBatch(pricingService(t), testLogger())(rec, jsonRequest(t, http.MethodPost, "/", `{"targets":[]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", rec.Code)
	}
}
