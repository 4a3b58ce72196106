package fleet

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/truckflow/dispatch-core/pkg/enums"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// Location is one displayable driver marker.
type Location struct {
	DriverID   int64                `json:"driver_id"`
	DriverName string               `json:"driver_name"`
	JobID      int64                `json:"job_id"`
	JobStatus  enums.JobStatus      `json:"job_status"`
	Lat        float64              `json:"lat"`
	Lng        float64              `json:"lng"`
	Source     enums.LocationSource `json:"source"`
	SiteID     *int64               `json:"site_id,omitempty"`
	EventTime  *time.Time           `json:"event_time,omitempty"`
}

// Point returns the marker as an orb point (lng, lat).
func (l Location) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// ActiveJob returns the driver's trackable job with the latest scheduled date.
// On equal dates the job listed first wins.
func ActiveJob(driverID int64, jobs []truckflow.Job) (truckflow.Job, bool) {
	best := -1
	for i := range jobs {
		job := jobs[i]
		if job.DriverID == nil || *job.DriverID != driverID || !job.Status.IsTrackable() {
			continue
		}
		if best < 0 || job.ScheduledDate.After(jobs[best].ScheduledDate) {
			best = i
		}
	}
	if best < 0 {
		return truckflow.Job{}, false
	}
	return jobs[best], true
}

// LatestFix returns the most recent event carrying both lat and lng.
func LatestFix(events []truckflow.JobStatusEvent) (truckflow.JobStatusEvent, bool) {
	best := -1
	for i := range events {
		if !events[i].HasPosition() {
			continue
		}
		if best < 0 || events[i].EventTime.After(events[best].EventTime) {
			best = i
		}
	}
	if best < 0 {
		return truckflow.JobStatusEvent{}, false
	}
	return events[best], true
}

// SiteFallback returns the job's destination site when it has coordinates, else its origin.
// Sites are looked up in sites first, then in the summaries embedded in the job.
func SiteFallback(job truckflow.Job, sites map[int64]truckflow.Site) (truckflow.Site, bool) {
	for _, candidate := range []struct {
		id       *int64
		embedded *truckflow.Site
	}{
		{id: job.ToSiteID, embedded: job.ToSite},
		{id: job.FromSiteID, embedded: job.FromSite},
	} {
		if site, ok := lookupSite(candidate.id, candidate.embedded, sites); ok && site.HasCoordinates() {
			return site, true
		}
	}
	return truckflow.Site{}, false
}

func lookupSite(id *int64, embedded *truckflow.Site, sites map[int64]truckflow.Site) (truckflow.Site, bool) {
	if id != nil {
		if site, ok := sites[*id]; ok {
			return site, true
		}
	}
	if embedded != nil {
		return *embedded, true
	}
	return truckflow.Site{}, false
}

// ResolveDriver computes the marker for driver from its jobs, the status events of its
// active job and the known sites. The bool is false when there is nothing to draw.
func ResolveDriver(driver truckflow.Driver, jobs []truckflow.Job, events []truckflow.JobStatusEvent, sites map[int64]truckflow.Site) (Location, bool) {
	job, ok := ActiveJob(driver.ID, jobs)
	if !ok {
		return Location{}, false
	}

	loc := Location{
		DriverID:   driver.ID,
		DriverName: driver.Name,
		JobID:      job.ID,
		JobStatus:  job.Status,
	}

	if fix, ok := LatestFix(eventsForJob(job.ID, events)); ok {
		eventTime := fix.EventTime
		loc.Lat = *fix.Lat
		loc.Lng = *fix.Lng
		loc.Source = enums.LocationSourceGPS
		loc.EventTime = &eventTime
		return loc, true
	}

	site, ok := SiteFallback(job, sites)
	if !ok {
		return Location{}, false
	}
	siteID := site.ID
	loc.Lat = *site.Lat
	loc.Lng = *site.Lng
	loc.Source = enums.LocationSourceSite
	loc.SiteID = &siteID
	return loc, true
}

// eventsForJob drops events that explicitly belong to another job.
func eventsForJob(jobID int64, events []truckflow.JobStatusEvent) []truckflow.JobStatusEvent {
	out := events[:0:0]
	for _, e := range events {
		if e.JobID != 0 && e.JobID != jobID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// missingCoordinates reports whether any site referenced by the active jobs lacks coordinates.
func missingCoordinates(jobs []truckflow.Job, sites map[int64]truckflow.Site) bool {
	for _, job := range jobs {
		for _, candidate := range []struct {
			id       *int64
			embedded *truckflow.Site
		}{
			{id: job.ToSiteID, embedded: job.ToSite},
			{id: job.FromSiteID, embedded: job.FromSite},
		} {
			site, ok := lookupSite(candidate.id, candidate.embedded, sites)
			if ok && !site.HasCoordinates() {
				return true
			}
		}
	}
	return false
}
