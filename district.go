package parkwatch

import (
	"context"
	"fmt"
	"strings"
)

// Districts is the fixed catalog of Timișoara neighbourhoods incidents are
// grouped by. Matching walks it in this order.
var Districts = []string{
	"Aradului",
	"Blașcovici",
	"Braytim",
	"Cetate",
	"Ciarda Roșie",
	"Circumvalațiunii",
	"Complexul Studențesc",
	"Dâmbovița",
	"Elisabetin",
	"Fabric",
	"Fratelia",
	"Freidorf",
	"Ghiroda Nouă",
	"Girocului",
	"Iosefin",
	"Kuncz",
	"Lipovei",
	"Martirilor",
	"Medicinei",
	"Mehala",
	"Modern",
	"Odobescu",
	"Olimpia–Stadion",
	"Plăvăț",
	"Plopi",
	"Ronaț",
	"Sever Bocu",
	"Soarelui",
	"Steaua",
	"Șagului",
	"Tipografilor",
	"Torontalului",
	"UMT–Pădurea Verde",
}

// PlaceCandidate is one feature returned by a reverse geocoder.
type PlaceCandidate struct {
	PlaceName string `json:"place_name"`
	Text      string `json:"text"`
}

// Geocoder reverse geocodes coordinates into candidate place names.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) ([]PlaceCandidate, error)
}

// DistrictLookup is a cached resolution result. Found is false for a
// coordinate known to match no district.
type DistrictLookup struct {
	District string
	Found    bool
}

// DistrictCache memoizes lookups by rounded coordinate key. Implementations
// must be safe for concurrent use.
type DistrictCache interface {
	Get(key string) (DistrictLookup, bool)
	Set(key string, lookup DistrictLookup)
}

// DistrictResolver maps a location onto the district catalog. Resolution
// never fails; ok is false when no district applies.
type DistrictResolver interface {
	ResolveDistrict(ctx context.Context, lat, lng float64, address string) (district string, ok bool)
}

// DistrictKey rounds coordinates to four decimals, roughly 11 metres.
func DistrictKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// MatchDistrict returns the first catalog district contained in s.
func MatchDistrict(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, d := range Districts {
		if strings.Contains(s, d) {
			return d, true
		}
	}
	return "", false
}

// MatchCandidates scans candidates in order. Each candidate is tested on its
// full place name (its text when the name is empty) and then on its text.
func MatchCandidates(candidates []PlaceCandidate) (string, bool) {
	for _, c := range candidates {
		name := c.PlaceName
		if name == "" {
			name = c.Text
		}
		if d, ok := MatchDistrict(name); ok {
			return d, true
		}
		if d, ok := MatchDistrict(c.Text); ok {
			return d, true
		}
	}
	return "", false
}

// IsKnownDistrict reports whether name is in the catalog.
func IsKnownDistrict(name string) bool {
	for _, d := range Districts {
		if d == name {
			return true
		}
	}
	return false
}
