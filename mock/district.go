package mock

import (
	"context"
	"sync/atomic"

	"github.com/dukerupert/parkwatch"
)

var (
	_ parkwatch.Geocoder         = (*Geocoder)(nil)
	_ parkwatch.DistrictResolver = (*DistrictResolver)(nil)
)

// Geocoder counts calls so tests can assert on cache behavior.
type Geocoder struct {
	Calls atomic.Int64

	ReverseGeocodeFn func(ctx context.Context, lat, lng float64) ([]parkwatch.PlaceCandidate, error)
}

func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lng float64) ([]parkwatch.PlaceCandidate, error) {
	g.Calls.Add(1)
	if g.ReverseGeocodeFn != nil {
		return g.ReverseGeocodeFn(ctx, lat, lng)
	}
	return nil, nil
}

type DistrictResolver struct {
	ResolveDistrictFn func(ctx context.Context, lat, lng float64, address string) (string, bool)
}

func (r *DistrictResolver) ResolveDistrict(ctx context.Context, lat, lng float64, address string) (string, bool) {
	if r.ResolveDistrictFn != nil {
		return r.ResolveDistrictFn(ctx, lat, lng, address)
	}
	return parkwatch.MatchDistrict(address)
}
