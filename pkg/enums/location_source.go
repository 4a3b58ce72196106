package enums

// LocationSource tells map renderers whether a fleet point is live or approximate.
type LocationSource string

const (
	LocationSourceGPS  LocationSource = "gps"
	LocationSourceSite LocationSource = "site"
)

// String implements fmt.Stringer.
func (l LocationSource) String() string {
	return string(l)
}

// IsLive reports whether the point came from a GPS-bearing status event.
func (l LocationSource) IsLive() bool {
	return l == LocationSourceGPS
}
