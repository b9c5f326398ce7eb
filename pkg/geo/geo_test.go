package geo

import (
	"math"
	"testing"
)

func TestCoordinatesValid(t *testing.T) {
	tests := []struct {
		name   string
		coords Coordinates
		want   bool
	}{
		{"london", Coordinates{Lat: 51.5074, Lon: -0.1278}, true},
		{"equator meridian", Coordinates{Lat: 0, Lon: 0}, true},
		{"latitude boundary", Coordinates{Lat: 90, Lon: 180}, true},
		{"negative boundary", Coordinates{Lat: -90, Lon: -180}, true},
		{"latitude too high", Coordinates{Lat: 90.01, Lon: 0}, false},
		{"latitude too low", Coordinates{Lat: -91, Lon: 0}, false},
		{"longitude too high", Coordinates{Lat: 0, Lon: 180.5}, false},
		{"longitude too low", Coordinates{Lat: 0, Lon: -181}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.coords.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v for %+v", got, tt.want, tt.coords)
			}
		})
	}
}

func TestHaversineMilesIdenticalPoints(t *testing.T) {
	points := []Coordinates{
		{Lat: 0, Lon: 0},
		{Lat: 51.5074, Lon: -0.1278},
		{Lat: -33.8688, Lon: 151.2093},
	}

	for _, p := range points {
		if d := HaversineMiles(p.Lat, p.Lon, p.Lat, p.Lon); d != 0.0 {
			t.Errorf("HaversineMiles(%v, %v) = %v, want 0.0", p, p, d)
		}
	}
}

func TestHaversineMilesLondonManchester(t *testing.T) {
	// London to Manchester is roughly 163 miles great-circle.
	d := HaversineMiles(51.5074, -0.1278, 53.4808, -2.2426)

	if math.Abs(d-163) > 1 {
		t.Errorf("London-Manchester distance = %v, want within 1 mile of 163", d)
	}
}

func TestHaversineMilesSymmetric(t *testing.T) {
	forward := HaversineMiles(51.5074, -0.1278, 53.4808, -2.2426)
	backward := HaversineMiles(53.4808, -2.2426, 51.5074, -0.1278)

	if forward != backward {
		t.Errorf("distance not symmetric: %v vs %v", forward, backward)
	}
}

func TestDeliveryDistance(t *testing.T) {
	restaurant := Coordinates{Lat: 51.5074, Lon: -0.1278}
	customer := Coordinates{Lat: 51.5081, Lon: -0.0759}

	d := DeliveryDistance(restaurant, customer)
	if d <= 0 || d > 5 {
		t.Errorf("DeliveryDistance = %v, want a small positive distance within London", d)
	}

	if got := DeliveryDistance(restaurant, restaurant); got != 0.0 {
		t.Errorf("DeliveryDistance to self = %v, want 0.0", got)
	}
}
