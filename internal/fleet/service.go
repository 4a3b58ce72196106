package fleet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/truckflow/dispatch-core/pkg/enums"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/metrics"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// EventSnapshotRefreshed is published after every stored snapshot.
const EventSnapshotRefreshed = "fleet.snapshot.refreshed"

const (
	defaultEventConcurrency = 8
	defaultLockTTL          = 2 * time.Minute
)

// PassTimeout is the deadline for work done under a lock that expires after lockTTL.
// A tenth of the TTL is left for storing the result and releasing the lock.
func PassTimeout(lockTTL time.Duration) time.Duration {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return lockTTL - lockTTL/10
}

// Upstream is the slice of the TruckFlow client a refresh needs.
type Upstream interface {
	ListDrivers(ctx context.Context) ([]truckflow.Driver, error)
	ListSites(ctx context.Context) ([]truckflow.Site, error)
	ListJobs(ctx context.Context, filter truckflow.JobFilter) ([]truckflow.Job, error)
	ListStatusEvents(ctx context.Context, jobID int64) ([]truckflow.JobStatusEvent, error)
	GeocodeMissingSites(ctx context.Context) (*truckflow.GeocodeResult, error)
}

// Publisher emits snapshot events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any, attrs map[string]string) (string, error)
}

// Lock grants exclusive refresh passes. The returned func releases the lock.
type Lock interface {
	Acquire(ctx context.Context) (func(context.Context) error, bool, error)
}

// LockFactory returns the refresh lock for a scope.
type LockFactory func(scope string) (Lock, error)

// Service computes and caches fleet snapshots.
type Service interface {
	// Refresh runs one pass without taking the lock. Callers that need exclusion
	// hold the lock themselves, as the cron worker does.
	Refresh(ctx context.Context, scope string) (*Snapshot, error)
	// Latest returns the cached snapshot, or nil when none is cached.
	Latest(ctx context.Context, scope string) (*Snapshot, error)
	// RefreshExclusive refreshes under the scope lock, bounded by PassTimeout. When another
	// pass holds the lock it returns the cached snapshot flagged Refreshing instead of
	// starting a second pass.
	RefreshExclusive(ctx context.Context, scope string) (*Snapshot, error)
	// Current returns the cached snapshot, refreshing exclusively on a miss.
	Current(ctx context.Context, scope string) (*Snapshot, error)
}

// ServiceParams configure the fleet service.
type ServiceParams struct {
	Upstream         Upstream
	Store            SnapshotStore
	Publisher        Publisher
	Locks            LockFactory
	Metrics          *metrics.FleetMetrics
	Logger           *logger.Logger
	EventConcurrency int
	GeocodeMissing   bool
	// LockTTL must match the TTL of the locks built by Locks.
	LockTTL time.Duration
}

type service struct {
	upstream         Upstream
	store            SnapshotStore
	publisher        Publisher
	locks            LockFactory
	metrics          *metrics.FleetMetrics
	logg             *logger.Logger
	eventConcurrency int
	geocodeMissing   bool
	passTimeout      time.Duration
	now              func() time.Time

	geocodeMu   sync.Mutex
	geocodeOnce map[string]*sync.Once
}

// NewService wires the fleet dependencies. Publisher and Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Upstream == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fleet upstream client required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fleet snapshot store required")
	}
	if params.Locks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fleet lock factory required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	concurrency := params.EventConcurrency
	if concurrency <= 0 {
		concurrency = defaultEventConcurrency
	}
	return &service{
		upstream:         params.Upstream,
		store:            params.Store,
		publisher:        params.Publisher,
		locks:            params.Locks,
		metrics:          params.Metrics,
		logg:             params.Logger,
		eventConcurrency: concurrency,
		geocodeMissing:   params.GeocodeMissing,
		passTimeout:      PassTimeout(params.LockTTL),
		now:              time.Now,
		geocodeOnce:      make(map[string]*sync.Once),
	}, nil
}

func (s *service) Refresh(ctx context.Context, scope string) (*Snapshot, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fleet scope required")
	}
	ctx = s.logg.WithScope(ctx, scope)

	drivers, sites, jobs, err := s.loadReferenceData(ctx)
	if err != nil {
		return nil, err
	}

	active := make(map[int64]truckflow.Job, len(drivers))
	activeJobs := make([]truckflow.Job, 0, len(drivers))
	for _, driver := range drivers {
		if job, ok := ActiveJob(driver.ID, jobs); ok {
			active[driver.ID] = job
			activeJobs = append(activeJobs, job)
		}
	}

	if s.geocodeMissing && missingCoordinates(activeJobs, sites) {
		sites = s.geocodeOnceFor(ctx, scope, sites)
	}

	events, warnings := s.fetchEvents(ctx, activeJobs)
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fleet refresh canceled")
	}

	snapshot := &Snapshot{
		Scope:       scope,
		GeneratedAt: s.now().UTC(),
		Locations:   []Location{},
		Unlocated:   []UnlocatedDriver{},
	}
	for _, driver := range drivers {
		job, ok := active[driver.ID]
		if !ok {
			continue
		}
		if loc, ok := ResolveDriver(driver, []truckflow.Job{job}, events[job.ID], sites); ok {
			snapshot.Locations = append(snapshot.Locations, loc)
			continue
		}
		snapshot.Unlocated = append(snapshot.Unlocated, UnlocatedDriver{
			DriverID:   driver.ID,
			DriverName: driver.Name,
			JobID:      job.ID,
			JobStatus:  job.Status,
		})
	}
	snapshot.Bounds = boundsOf(snapshot.Locations)
	for _, w := range multierr.Errors(warnings) {
		snapshot.Warnings = append(snapshot.Warnings, w.Error())
	}

	s.metrics.SetLocated(snapshot.CountBySource(), len(snapshot.Unlocated))

	if err := s.store.Save(ctx, snapshot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store fleet snapshot")
	}
	s.publish(ctx, snapshot)

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"located":   len(snapshot.Locations),
		"unlocated": len(snapshot.Unlocated),
		"warnings":  len(snapshot.Warnings),
	}), "fleet snapshot refreshed")
	return snapshot, nil
}

func (s *service) Latest(ctx context.Context, scope string) (*Snapshot, error) {
	snapshot, err := s.store.Load(ctx, strings.TrimSpace(scope))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fleet snapshot")
	}
	return snapshot, nil
}

func (s *service) RefreshExclusive(ctx context.Context, scope string) (*Snapshot, error) {
	lock, err := s.locks(scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build fleet lock")
	}
	release, acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire fleet lock")
	}
	if !acquired {
		latest, err := s.Latest(ctx, scope)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			latest = &Snapshot{Scope: scope, Locations: []Location{}, Unlocated: []UnlocatedDriver{}}
		}
		latest.Refreshing = true
		return latest, nil
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release fleet lock", relErr)
		}
	}()

	// the pass must end before the lock can expire under it
	passCtx, cancel := context.WithTimeout(ctx, s.passTimeout)
	defer cancel()
	return s.Refresh(passCtx, scope)
}

func (s *service) Current(ctx context.Context, scope string) (*Snapshot, error) {
	latest, err := s.Latest(ctx, scope)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		return latest, nil
	}
	return s.RefreshExclusive(ctx, scope)
}

func (s *service) loadReferenceData(ctx context.Context) ([]truckflow.Driver, map[int64]truckflow.Site, []truckflow.Job, error) {
	var (
		drivers  []truckflow.Driver
		siteList []truckflow.Site
		jobs     []truckflow.Job
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		drivers, err = s.upstream.ListDrivers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		siteList, err = s.upstream.ListSites(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		jobs, err = s.upstream.ListJobs(gctx, truckflow.JobFilter{Statuses: enums.TrackableJobStatuses()})
		return err
	})
	if err := g.Wait(); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, nil, nil, typed
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fleet reference data")
	}
	return drivers, indexSites(siteList), jobs, nil
}

// fetchEvents loads status events per active job with bounded concurrency. A failed fetch
// becomes a warning and leaves that job without events.
func (s *service) fetchEvents(ctx context.Context, jobs []truckflow.Job) (map[int64][]truckflow.JobStatusEvent, error) {
	var (
		mu       sync.Mutex
		events   = make(map[int64][]truckflow.JobStatusEvent, len(jobs))
		warnings error
	)

	var g errgroup.Group
	g.SetLimit(s.eventConcurrency)
	for _, job := range jobs {
		g.Go(func() error {
			jobCtx := s.logg.WithJobID(ctx, job.ID)
			if job.DriverID != nil {
				jobCtx = s.logg.WithDriverID(jobCtx, *job.DriverID)
			}
			list, err := s.upstream.ListStatusEvents(ctx, job.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.metrics.IncEventFetchFailure()
				s.logg.WarnErr(jobCtx, "status event fetch failed; using site fallback", err)
				warnings = multierr.Append(warnings, fmt.Errorf("job %d: status events unavailable: %w", job.ID, err))
				return nil
			}
			events[job.ID] = list
			return nil
		})
	}
	_ = g.Wait()
	return events, warnings
}

// geocodeOnceFor asks the API to geocode missing sites at most once per scope for the
// life of the service. Failures are logged and the current sites are kept.
func (s *service) geocodeOnceFor(ctx context.Context, scope string, sites map[int64]truckflow.Site) map[int64]truckflow.Site {
	s.geocodeMu.Lock()
	once, ok := s.geocodeOnce[scope]
	if !ok {
		once = &sync.Once{}
		s.geocodeOnce[scope] = once
	}
	s.geocodeMu.Unlock()

	refreshed := sites
	once.Do(func() {
		result, err := s.upstream.GeocodeMissingSites(ctx)
		if err != nil {
			s.logg.WarnErr(ctx, "geocode missing sites failed", err)
			return
		}
		if result == nil || result.Updated == 0 {
			return
		}
		list, err := s.upstream.ListSites(ctx)
		if err != nil {
			s.logg.WarnErr(ctx, "reload sites after geocode failed", err)
			return
		}
		refreshed = indexSites(list)
	})
	return refreshed
}

func (s *service) publish(ctx context.Context, snapshot *Snapshot) {
	if s.publisher == nil {
		return
	}
	counts := snapshot.CountBySource()
	payload := map[string]any{
		"scope":        snapshot.Scope,
		"generated_at": snapshot.GeneratedAt,
		"located":      len(snapshot.Locations),
		"gps":          counts[enums.LocationSourceGPS.String()],
		"site":         counts[enums.LocationSourceSite.String()],
		"unlocated":    len(snapshot.Unlocated),
		"warnings":     len(snapshot.Warnings),
	}
	if _, err := s.publisher.Publish(ctx, EventSnapshotRefreshed, payload, map[string]string{"scope": snapshot.Scope}); err != nil {
		s.logg.WarnErr(ctx, "publish fleet snapshot event failed", err)
	}
}

func indexSites(list []truckflow.Site) map[int64]truckflow.Site {
	sites := make(map[int64]truckflow.Site, len(list))
	for _, site := range list {
		sites[site.ID] = site
	}
	return sites
}
