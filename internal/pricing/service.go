package pricing

import (
	"context"
	"time"

	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/metrics"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
	"github.com/truckflow/dispatch-core/pkg/types"
)

// MaxBatchTargets caps a single resolve-batch request.
const MaxBatchTargets = 200

// PriceListSource lists price lists from the system of record.
type PriceListSource interface {
	ListPriceLists(ctx context.Context, filter truckflow.PriceListFilter) ([]truckflow.PriceList, error)
}

// Service resolves quotes against upstream price lists.
type Service interface {
	ResolveForJob(ctx context.Context, target Target) (Quote, error)
	ResolveBatch(ctx context.Context, targets []Target) ([]Quote, error)
}

type service struct {
	source  PriceListSource
	metrics *metrics.PricingMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the pricing dependencies. metrics and logg may be nil.
func NewService(source PriceListSource, m *metrics.PricingMetrics, logg *logger.Logger) (Service, error) {
	if source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "price list source required")
	}
	return &service{
		source:  source,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) ResolveForJob(ctx context.Context, target Target) (Quote, error) {
	target, err := s.normalize(target)
	if err != nil {
		return Quote{}, err
	}
	lists, err := s.fetch(ctx, target.MaterialID)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, lists, target), nil
}

// ResolveBatch fetches each material once and resolves every target against it.
// Quotes come back in the order of targets.
func (s *service) ResolveBatch(ctx context.Context, targets []Target) ([]Quote, error) {
	if len(targets) == 0 {
		return []Quote{}, nil
	}
	if len(targets) > MaxBatchTargets {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many targets").
			WithDetails(map[string]any{"max": MaxBatchTargets})
	}

	normalized := make([]Target, len(targets))
	for i, target := range targets {
		t, err := s.normalize(target)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target").
				WithDetails(map[string]any{"index": i, "reason": pkgerrors.As(err).Message()})
		}
		normalized[i] = t
	}

	byMaterial := make(map[int64][]truckflow.PriceList)
	for _, target := range normalized {
		if _, ok := byMaterial[target.MaterialID]; ok {
			continue
		}
		lists, err := s.fetch(ctx, target.MaterialID)
		if err != nil {
			return nil, err
		}
		byMaterial[target.MaterialID] = lists
	}

	quotes := make([]Quote, len(normalized))
	for i, target := range normalized {
		quotes[i] = s.quote(ctx, byMaterial[target.MaterialID], target)
	}
	return quotes, nil
}

func (s *service) normalize(target Target) (Target, error) {
	if target.MaterialID <= 0 {
		return target, pkgerrors.FieldError("material_id", "material_id is required")
	}
	if target.CustomerID < 0 {
		return target, pkgerrors.FieldError("customer_id", "customer_id must be positive")
	}
	if (target.FromSiteID == nil) != (target.ToSiteID == nil) {
		return target, pkgerrors.FieldError("to_site_id", "from_site_id and to_site_id must be set together")
	}
	if target.AsOf.IsZero() {
		target.AsOf = types.DateOf(s.now())
	}
	return target, nil
}

func (s *service) fetch(ctx context.Context, materialID int64) ([]truckflow.PriceList, error) {
	lists, err := s.source.ListPriceLists(ctx, truckflow.PriceListFilter{MaterialID: &materialID})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price lists")
	}
	return lists, nil
}

func (s *service) quote(ctx context.Context, lists []truckflow.PriceList, target Target) Quote {
	res := Resolve(lists, target)
	s.metrics.IncResolution(res.Tier())
	if !res.Found && s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"customer_id": target.CustomerID,
			"material_id": target.MaterialID,
			"as_of":       target.AsOf.String(),
			"considered":  res.Considered,
			"active":      res.Active,
		})
		s.logg.Info(ctx, "no applicable price list")
	}
	return NewQuote(target, res)
}
