package enums

import (
	"fmt"
	"strings"
)

// JobStatus tracks a trip through the dispatch lifecycle.
type JobStatus string

const (
	JobStatusPlanned        JobStatus = "PLANNED"
	JobStatusAssigned       JobStatus = "ASSIGNED"
	JobStatusEnroutePickup  JobStatus = "ENROUTE_PICKUP"
	JobStatusLoaded         JobStatus = "LOADED"
	JobStatusEnrouteDropoff JobStatus = "ENROUTE_DROPOFF"
	JobStatusDelivered      JobStatus = "DELIVERED"
	JobStatusClosed         JobStatus = "CLOSED"
	JobStatusCanceled       JobStatus = "CANCELED"
)

var validJobStatuses = []JobStatus{
	JobStatusPlanned,
	JobStatusAssigned,
	JobStatusEnroutePickup,
	JobStatusLoaded,
	JobStatusEnrouteDropoff,
	JobStatusDelivered,
	JobStatusClosed,
	JobStatusCanceled,
}

// trackableJobStatuses are the statuses in which a driver is on the road for a job.
var trackableJobStatuses = []JobStatus{
	JobStatusAssigned,
	JobStatusEnroutePickup,
	JobStatusLoaded,
	JobStatusEnrouteDropoff,
	JobStatusDelivered,
}

// String implements fmt.Stringer.
func (j JobStatus) String() string {
	return string(j)
}

// IsValid reports whether the value is a known JobStatus.
func (j JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == j {
			return true
		}
	}
	return false
}

// IsTrackable reports whether a job in this status can place its driver on the map.
func (j JobStatus) IsTrackable() bool {
	for _, candidate := range trackableJobStatuses {
		if candidate == j {
			return true
		}
	}
	return false
}

// TrackableJobStatuses returns a copy of the statuses used for fleet tracking.
func TrackableJobStatuses() []JobStatus {
	out := make([]JobStatus, len(trackableJobStatuses))
	copy(out, trackableJobStatuses)
	return out
}

// ParseJobStatus converts raw input into a JobStatus. Matching ignores case.
func ParseJobStatus(value string) (JobStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validJobStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
