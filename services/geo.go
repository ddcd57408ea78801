package services

import (
	"math"
	"sort"
	"strings"

	"property-hunter/models"
)

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between a and b in kilometers.
func DistanceKm(a, b models.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// FindProfile returns the first profile whose name equals name, ignoring case.
func FindProfile(name string, profiles []models.SuburbProfile) (models.SuburbProfile, bool) {
	for _, p := range profiles {
		if strings.EqualFold(p.Suburb, name) {
			return p, true
		}
	}
	return models.SuburbProfile{}, false
}

// GeoMatcher answers proximity questions over a fixed set of suburb profiles.
// An unknown center suburb is not an error; it yields empty results.
type GeoMatcher struct {
	profiles []models.SuburbProfile
}

// NewGeoMatcher creates a GeoMatcher over the reference profiles.
func NewGeoMatcher(ref *ReferenceData) *GeoMatcher {
	return &GeoMatcher{profiles: ref.Profiles()}
}

// Find looks up a profile by name, ignoring case.
func (g *GeoMatcher) Find(name string) (models.SuburbProfile, bool) {
	return FindProfile(name, g.profiles)
}

// WithinRadius returns every profile, the center included, no further than
// radiusKm from center, ordered by suburb name.
func (g *GeoMatcher) WithinRadius(center string, radiusKm float64) []models.SuburbProfile {
	origin, ok := g.Find(center)
	if !ok {
		return []models.SuburbProfile{}
	}

	matches := []models.SuburbProfile{}
	for _, p := range g.profiles {
		if DistanceKm(origin.Point(), p.Point()) <= radiusKm {
			matches = append(matches, p)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Suburb < matches[j].Suburb
	})
	return matches
}

// DistanceMap returns the distance in km from center to every profile.
func (g *GeoMatcher) DistanceMap(center string) map[string]float64 {
	distances := make(map[string]float64)
	origin, ok := g.Find(center)
	if !ok {
		return distances
	}
	for _, p := range g.profiles {
		distances[p.Suburb] = DistanceKm(origin.Point(), p.Point())
	}
	return distances
}

// SuburbNames returns the names of the given profiles in order.
func SuburbNames(profiles []models.SuburbProfile) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Suburb)
	}
	return names
}
