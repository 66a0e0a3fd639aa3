// Package district resolves incident coordinates to the neighbourhood
// catalog used for analytics.
package district

import (
	"context"
	"log/slog"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.DistrictResolver = (*Resolver)(nil)

// Resolver resolves districts through a reverse geocoder, falling back to
// the address text. Results are memoized per rounded coordinate.
type Resolver struct {
	geocoder parkwatch.Geocoder
	cache    parkwatch.DistrictCache
	logger   *slog.Logger

	// OnResolve, when set, observes every resolution outcome.
	OnResolve func(found bool)
}

// NewResolver returns a Resolver. geocoder may be nil, in which case only
// the address fallback runs.
func NewResolver(geocoder parkwatch.Geocoder, cache parkwatch.DistrictCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{geocoder: geocoder, cache: cache, logger: logger}
}

// ResolveDistrict never fails. Only the geocoder outcome is cached, keyed
// by coordinate; the address scan runs on every call because two incidents
// at the same point can carry different addresses. Geocoder errors are
// logged and not cached, so the next call tries the geocoder again.
func (r *Resolver) ResolveDistrict(ctx context.Context, lat, lng float64, address string) (string, bool) {
	lookup := r.geocode(ctx, lat, lng)
	if !lookup.Found {
		if d, ok := parkwatch.MatchDistrict(address); ok {
			lookup = parkwatch.DistrictLookup{District: d, Found: true}
		}
	}
	if r.OnResolve != nil {
		r.OnResolve(lookup.Found)
	}
	return lookup.District, lookup.Found
}

func (r *Resolver) geocode(ctx context.Context, lat, lng float64) parkwatch.DistrictLookup {
	if r.geocoder == nil {
		return parkwatch.DistrictLookup{}
	}

	key := parkwatch.DistrictKey(lat, lng)
	if lookup, ok := r.cache.Get(key); ok {
		return lookup
	}

	candidates, err := r.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		r.logger.Warn("reverse geocoding failed",
			slog.Float64("lat", lat),
			slog.Float64("lng", lng),
			slog.String("error", err.Error()))
		return parkwatch.DistrictLookup{}
	}

	var lookup parkwatch.DistrictLookup
	if d, ok := parkwatch.MatchCandidates(candidates); ok {
		lookup = parkwatch.DistrictLookup{District: d, Found: true}
	}
	r.cache.Set(key, lookup)
	return lookup
}
