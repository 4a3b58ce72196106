package fleet

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/truckflow/dispatch-core/pkg/enums"
)

// Snapshot is the result of one refresh pass for an org scope.
type Snapshot struct {
	Scope       string            `json:"scope"`
	GeneratedAt time.Time         `json:"generated_at"`
	Locations   []Location        `json:"locations"`
	Unlocated   []UnlocatedDriver `json:"unlocated"`
	Bounds      *Bounds           `json:"bounds,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	Refreshing  bool              `json:"refreshing"`
}

// UnlocatedDriver has an active job but nothing to draw.
type UnlocatedDriver struct {
	DriverID   int64           `json:"driver_id"`
	DriverName string          `json:"driver_name"`
	JobID      int64           `json:"job_id"`
	JobStatus  enums.JobStatus `json:"job_status"`
}

// Bounds is the box enclosing every marker, for map fitting.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Bound converts back to an orb bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinLng, b.MinLat}, Max: orb.Point{b.MaxLng, b.MaxLat}}
}

func boundsOf(locations []Location) *Bounds {
	if len(locations) == 0 {
		return nil
	}
	points := make(orb.MultiPoint, 0, len(locations))
	for _, loc := range locations {
		points = append(points, loc.Point())
	}
	bound := points.Bound()
	return &Bounds{
		MinLat: bound.Min.Lat(),
		MinLng: bound.Min.Lon(),
		MaxLat: bound.Max.Lat(),
		MaxLng: bound.Max.Lon(),
	}
}

// CountBySource tallies markers per location source.
func (s *Snapshot) CountBySource() map[string]int {
	counts := map[string]int{
		enums.LocationSourceGPS.String():  0,
		enums.LocationSourceSite.String(): 0,
	}
	if s == nil {
		return counts
	}
	for _, loc := range s.Locations {
		counts[loc.Source.String()]++
	}
	return counts
}

// GeoJSON renders the snapshot as a FeatureCollection with one Point per marker.
func GeoJSON(s *Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if s == nil {
		return fc
	}
	for _, loc := range s.Locations {
		feature := geojson.NewFeature(loc.Point())
		feature.ID = loc.DriverID
		feature.Properties["source"] = loc.Source.String()
		feature.Properties["driver_id"] = loc.DriverID
		feature.Properties["driver_name"] = loc.DriverName
		feature.Properties["job_id"] = loc.JobID
		feature.Properties["job_status"] = loc.JobStatus.String()
		if loc.EventTime != nil {
			feature.Properties["event_time"] = loc.EventTime.UTC().Format(time.RFC3339)
		}
		if loc.SiteID != nil {
			feature.Properties["site_id"] = *loc.SiteID
		}
		fc.Append(feature)
	}
	if s.Bounds != nil {
		fc.BBox = geojson.NewBBox(s.Bounds.Bound())
	}
	return fc
}
