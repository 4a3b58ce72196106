package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/truckflow/dispatch-core/pkg/enums"
	"github.com/truckflow/dispatch-core/pkg/types"
)

const (
	QuoteStatusPriced  = "priced"
	QuoteStatusNoPrice = "no_price"
)

// Quote is the API view of a resolution. A no_price quote never carries a price.
type Quote struct {
	Status            string           `json:"status"`
	Tier              string           `json:"tier"`
	CustomerID        int64            `json:"customer_id"`
	MaterialID        int64            `json:"material_id"`
	FromSiteID        *int64           `json:"from_site_id,omitempty"`
	ToSiteID          *int64           `json:"to_site_id,omitempty"`
	AsOf              types.Date       `json:"as_of"`
	PriceListID       *int64           `json:"price_list_id,omitempty"`
	Unit              enums.PriceUnit  `json:"unit,omitempty"`
	BasePrice         *decimal.Decimal `json:"base_price,omitempty"`
	MinCharge         *decimal.Decimal `json:"min_charge,omitempty"`
	WaitFeePerHour    *decimal.Decimal `json:"wait_fee_per_hour,omitempty"`
	NightSurchargePct *decimal.Decimal `json:"night_surcharge_pct,omitempty"`
	ValidFrom         *types.Date      `json:"valid_from,omitempty"`
	ValidTo           *types.Date      `json:"valid_to,omitempty"`
	CustomerSpecific  bool             `json:"customer_specific"`
	RouteSpecific     bool             `json:"route_specific"`
	Considered        int              `json:"candidates_considered"`
	Active            int              `json:"candidates_active"`
}

// NewQuote renders res for target.
func NewQuote(target Target, res Resolution) Quote {
	quote := Quote{
		Status:           QuoteStatusNoPrice,
		Tier:             res.Tier(),
		CustomerID:       target.CustomerID,
		MaterialID:       target.MaterialID,
		FromSiteID:       target.FromSiteID,
		ToSiteID:         target.ToSiteID,
		AsOf:             target.AsOf,
		CustomerSpecific: res.CustomerSpecific,
		RouteSpecific:    res.RouteSpecific,
		Considered:       res.Considered,
		Active:           res.Active,
	}
	if !res.Found || res.PriceList == nil {
		return quote
	}

	list := res.PriceList
	id := list.ID
	base := list.BasePrice
	validFrom := list.ValidFrom

	quote.Status = QuoteStatusPriced
	quote.PriceListID = &id
	quote.Unit = list.Unit
	quote.BasePrice = &base
	quote.MinCharge = list.MinCharge
	quote.WaitFeePerHour = list.WaitFeePerHour
	quote.NightSurchargePct = list.NightSurchargePct
	quote.ValidFrom = &validFrom
	quote.ValidTo = list.ValidTo
	return quote
}

// ResolveRequest is the body of the resolve endpoint. Omitting customer_id prices
// against general lists only; omitting as_of uses today.
type ResolveRequest struct {
	CustomerID *int64      `json:"customer_id" validate:"omitempty,gte=0"`
	MaterialID int64       `json:"material_id" validate:"gt=0"`
	FromSiteID *int64      `json:"from_site_id" validate:"omitempty,gt=0"`
	ToSiteID   *int64      `json:"to_site_id" validate:"omitempty,gt=0"`
	AsOf       *types.Date `json:"as_of"`
}

// Target converts the request into a resolver target.
func (r ResolveRequest) Target() Target {
	target := Target{
		MaterialID: r.MaterialID,
		FromSiteID: r.FromSiteID,
		ToSiteID:   r.ToSiteID,
	}
	if r.CustomerID != nil {
		target.CustomerID = *r.CustomerID
	}
	if r.AsOf != nil {
		target.AsOf = *r.AsOf
	}
	return target
}

// ResolveBatchRequest is the body of the resolve-batch endpoint.
type ResolveBatchRequest struct {
	Targets []ResolveRequest `json:"targets" validate:"required,min=1,max=200,dive"`
}

// ToTargets converts every entry, preserving order.
func (r ResolveBatchRequest) ToTargets() []Target {
	targets := make([]Target, 0, len(r.Targets))
	for _, req := range r.Targets {
		targets = append(targets, req.Target())
	}
	return targets
}
