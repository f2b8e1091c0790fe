package domain

import "strconv"

// Immutable geographic coordinate (latitude, longitude) in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate lies within WGS-84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Return the coordinate as "lat,lon", used for cache keys and logs.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}

// Result of resolving a free-text address.
// DisplayName is the provider's canonical label for the place.
type GeocodeResult struct {
	Coordinate  Coordinate
	DisplayName string
}
