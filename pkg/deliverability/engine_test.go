package deliverability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hutbite/hutbite-backend/internal/testutil"
	"github.com/hutbite/hutbite-backend/pkg/geo"
	"github.com/hutbite/hutbite-backend/pkg/geocache"
	"github.com/hutbite/hutbite-backend/pkg/geocode"
)

var london = geo.Coordinates{Lat: 51.5074, Lon: -0.1278}

// fakeGeocoder is a scriptable Geocoder for engine-only tests.
type fakeGeocoder struct {
	coords *geo.Coordinates
	cached bool
	calls  int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, rawPostcode string) *geo.Coordinates {
	f.calls++
	return f.coords
}

func (f *fakeGeocoder) Cached(normalized string) bool {
	return f.cached
}

func TestCheckInvalidRestaurantCoordinates(t *testing.T) {
	engine := NewEngine(&fakeGeocoder{})

	_, err := engine.Check(context.Background(), geo.Coordinates{Lat: 91, Lon: 0}, "EC1A 1BB", 3.0)
	if !errors.Is(err, ErrInvalidRestaurantCoordinates) {
		t.Errorf("Expected ErrInvalidRestaurantCoordinates, got %v", err)
	}
}

func TestCheckInvalidPostcodeSkipsGeocode(t *testing.T) {
	fake := &fakeGeocoder{}
	engine := NewEngine(fake)

	decision, err := engine.Check(context.Background(), london, "   ", 3.0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if decision.Deliverable {
		t.Error("Expected deliverable=false")
	}
	if decision.Reason != ReasonInvalidPostcode {
		t.Errorf("Reason = %q, want INVALID_POSTCODE", decision.Reason)
	}
	if decision.DistanceMiles != nil {
		t.Errorf("DistanceMiles = %v, want nil", *decision.DistanceMiles)
	}
	if decision.NormalizedPostcode != "   " {
		t.Errorf("NormalizedPostcode = %q, want raw input echoed", decision.NormalizedPostcode)
	}
	if decision.Source != SourceAPI {
		t.Errorf("Source = %q, want api", decision.Source)
	}
	if fake.calls != 0 {
		t.Errorf("Expected no geocode call, got %d", fake.calls)
	}
}

func TestCheckGeocodeFailure(t *testing.T) {
	fake := &fakeGeocoder{coords: nil}
	engine := NewEngine(fake)

	decision, err := engine.Check(context.Background(), london, "ZZ1 1ZZ", 3.0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if decision.Deliverable {
		t.Error("Expected deliverable=false")
	}
	if decision.Reason != ReasonGeocodeError {
		t.Errorf("Reason = %q, want GEOCODE_ERROR", decision.Reason)
	}
	if decision.DistanceMiles != nil {
		t.Error("Expected nil distance for geocode failure")
	}
	if decision.NormalizedPostcode != "ZZ1 1ZZ" {
		t.Errorf("NormalizedPostcode = %q, want ZZ1 1ZZ", decision.NormalizedPostcode)
	}
}

func TestCheckDeliverableWithinRadius(t *testing.T) {
	fake := &fakeGeocoder{coords: &geo.Coordinates{Lat: 51.5081, Lon: -0.0759}}
	engine := NewEngine(fake)

	decision, err := engine.Check(context.Background(), london, "ec1a1bb", 3.0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if !decision.Deliverable {
		t.Error("Expected deliverable=true")
	}
	if decision.Reason != ReasonOK {
		t.Errorf("Reason = %q, want OK", decision.Reason)
	}
	if decision.Source != SourceAPI {
		t.Errorf("Source = %q, want api", decision.Source)
	}
	if decision.NormalizedPostcode != "EC1A 1BB" {
		t.Errorf("NormalizedPostcode = %q, want EC1A 1BB", decision.NormalizedPostcode)
	}
	if decision.DistanceMiles == nil {
		t.Fatal("Expected a distance")
	}
	if *decision.DistanceMiles <= 0 || *decision.DistanceMiles > 3.05 {
		t.Errorf("DistanceMiles = %v, want within radius+buffer", *decision.DistanceMiles)
	}
}

func TestCheckOutOfRange(t *testing.T) {
	// Manchester is far outside a 3 mile radius from central London.
	fake := &fakeGeocoder{coords: &geo.Coordinates{Lat: 53.4808, Lon: -2.2426}}
	engine := NewEngine(fake)

	decision, err := engine.Check(context.Background(), london, "M1 1AE", 3.0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if decision.Deliverable {
		t.Error("Expected deliverable=false")
	}
	if decision.Reason != ReasonOutOfRange {
		t.Errorf("Reason = %q, want OUT_OF_RANGE", decision.Reason)
	}
	if decision.DistanceMiles == nil || *decision.DistanceMiles <= 3.0 {
		t.Errorf("DistanceMiles = %v, want > 3.0", decision.DistanceMiles)
	}
}

func TestCheckBufferToleratesMarginalDistance(t *testing.T) {
	// Roughly 1.04 miles north of the restaurant; deliverable only
	// because of the 0.05 mile buffer on a 1.0 mile radius.
	fake := &fakeGeocoder{coords: &geo.Coordinates{Lat: 51.5224, Lon: -0.1278}}
	engine := NewEngine(fake)

	decision, err := engine.Check(context.Background(), london, "NW1 1AA", 1.0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if decision.DistanceMiles == nil {
		t.Fatal("Expected a distance")
	}
	if *decision.DistanceMiles <= 1.0 || *decision.DistanceMiles > 1.05 {
		t.Fatalf("DistanceMiles = %v, want in (1.0, 1.05] to exercise the buffer", *decision.DistanceMiles)
	}
	if !decision.Deliverable {
		t.Error("Expected buffer to keep marginal distance deliverable")
	}
}

func TestCheckDefaultRadius(t *testing.T) {
	fake := &fakeGeocoder{coords: &geo.Coordinates{Lat: 51.5081, Lon: -0.0759}}
	engine := NewEngine(fake)

	decision, err := engine.Check(context.Background(), london, "EC1A 1BB", 0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !decision.Deliverable {
		t.Error("Expected default 3.0 mile radius to cover a 2.2 mile distance")
	}
}

func TestCheckSourceReflectsPreCallCacheState(t *testing.T) {
	fake := &fakeGeocoder{coords: &geo.Coordinates{Lat: 51.5081, Lon: -0.0759}, cached: true}
	engine := NewEngine(fake)

	decision, err := engine.Check(context.Background(), london, "EC1A 1BB", 3.0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Source != SourceCache {
		t.Errorf("Source = %q, want cache", decision.Source)
	}
}

// TestCheckEndToEndCacheAttribution wires the real geocode client against
// a mock provider: the first check reports source=api, an identical second
// check reports source=cache, and only one outbound call is made.
func TestCheckEndToEndCacheAttribution(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/postcodes/EC1A 1BB", testutil.NewPostcodeResponse(51.5081, -0.0759))

	geocoder, err := geocode.New(geocode.Config{
		BaseURL: mock.URL(),
		Cache:   geocache.New(100, time.Hour),
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("geocode.New failed: %v", err)
	}

	engine := NewEngine(geocoder)

	first, err := engine.Check(context.Background(), london, "EC1A 1BB", 3.0)
	if err != nil {
		t.Fatalf("First check failed: %v", err)
	}
	if !first.Deliverable || first.Reason != ReasonOK || first.Source != SourceAPI {
		t.Errorf("First decision = %+v, want deliverable OK from api", first)
	}

	second, err := engine.Check(context.Background(), london, "EC1A 1BB", 3.0)
	if err != nil {
		t.Fatalf("Second check failed: %v", err)
	}
	if second.Source != SourceCache {
		t.Errorf("Second decision source = %q, want cache", second.Source)
	}
	if !second.Deliverable || second.Reason != ReasonOK {
		t.Errorf("Second decision = %+v, want deliverable OK", second)
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected exactly 1 outbound geocode call across both checks, got %d", mock.GetRequestCount())
	}
}
