// Package geo provides coordinate types and great-circle distance math
// for delivery-range decisions.
package geo

import "math"

// earthRadiusMiles is the mean Earth radius used for great-circle distances.
const earthRadiusMiles = 3959.0

// Coordinates is an immutable latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are within the WGS84 ranges
// (-90..90 latitude, -180..180 longitude).
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// HaversineMiles calculates the great-circle distance in miles between two
// points given as decimal-degree latitude/longitude pairs. Identical points
// yield exactly 0; the result is symmetric and carries no floor or ceiling.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon

	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusMiles * c
}

// DeliveryDistance returns the great-circle distance in miles between a
// restaurant and a customer location.
func DeliveryDistance(restaurant, customer Coordinates) float64 {
	return HaversineMiles(restaurant.Lat, restaurant.Lon, customer.Lat, customer.Lon)
}
