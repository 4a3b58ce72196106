package pricing

import (
	"github.com/truckflow/dispatch-core/pkg/truckflow"
	"github.com/truckflow/dispatch-core/pkg/types"
)

// Tier names used in quotes and metrics.
const (
	TierCustomerRoute = "customer_route"
	TierCustomer      = "customer"
	TierGeneralRoute  = "general_route"
	TierGeneral       = "general"
	TierNone          = "none"
)

// Target describes the job being priced.
// CustomerID 0 restricts the search to general lists. MaterialID 0 skips material filtering.
type Target struct {
	CustomerID int64
	MaterialID int64
	FromSiteID *int64
	ToSiteID   *int64
	AsOf       types.Date
}

// Resolution is the outcome of Resolve. PriceList is nil when Found is false.
type Resolution struct {
	PriceList        *truckflow.PriceList
	Found            bool
	CustomerSpecific bool
	RouteSpecific    bool
	Considered       int
	Active           int
}

// Tier names the precedence tier of the chosen list.
func (r Resolution) Tier() string {
	switch {
	case !r.Found:
		return TierNone
	case r.CustomerSpecific && r.RouteSpecific:
		return TierCustomerRoute
	case r.CustomerSpecific:
		return TierCustomer
	case r.RouteSpecific:
		return TierGeneralRoute
	default:
		return TierGeneral
	}
}

// Resolve picks the single applicable price list for target.
//
// Precedence, highest first: customer-specific over general, then route-specific over
// route-general, then the latest valid_from. Rows for another customer, another route or a
// half-specified route never match. On a full tie the earliest row in candidates wins.
func Resolve(candidates []truckflow.PriceList, target Target) Resolution {
	res := Resolution{}
	bestRank := -1
	bestIdx := -1

	for i := range candidates {
		row := candidates[i]
		if target.MaterialID != 0 && row.MaterialID != target.MaterialID {
			continue
		}
		res.Considered++
		if !row.IsActive(target.AsOf) {
			continue
		}
		res.Active++

		customerTier, ok := customerMatch(row, target)
		if !ok {
			continue
		}
		routeTier, ok := routeMatch(row, target)
		if !ok {
			continue
		}

		rank := customerTier*2 + routeTier
		switch {
		case rank > bestRank:
		case rank == bestRank && row.ValidFrom.After(candidates[bestIdx].ValidFrom):
		default:
			continue
		}
		bestRank = rank
		bestIdx = i
	}

	if bestIdx < 0 {
		return res
	}

	chosen := candidates[bestIdx]
	res.PriceList = &chosen
	res.Found = true
	res.CustomerSpecific = bestRank >= 2
	res.RouteSpecific = bestRank%2 == 1
	return res
}

func customerMatch(row truckflow.PriceList, target Target) (int, bool) {
	if row.CustomerID == nil {
		return 0, true
	}
	if target.CustomerID != 0 && *row.CustomerID == target.CustomerID {
		return 1, true
	}
	return 0, false
}

func routeMatch(row truckflow.PriceList, target Target) (int, bool) {
	switch {
	case row.FromSiteID == nil && row.ToSiteID == nil:
		return 0, true
	case row.FromSiteID == nil || row.ToSiteID == nil:
		return 0, false
	case target.FromSiteID == nil || target.ToSiteID == nil:
		return 0, false
	case *row.FromSiteID == *target.FromSiteID && *row.ToSiteID == *target.ToSiteID:
		return 1, true
	default:
		return 0, false
	}
}
