// README: Distance-based fare source: rail route length times a per-km rate.
package faresource

import (
	"context"
	"errors"
	"math"

	"trainfare/internal/maps"
	"trainfare/internal/modules/pricing"
)

// RouteFinder measures the rail distance between two cities.
type RouteFinder interface {
	RailDistanceKm(ctx context.Context, origin, destination string) (float64, error)
}

// RouteSource prices a trip from its rail distance. Fares are rounded to
// the cent and never fall below minFare.
type RouteSource struct {
	routes    RouteFinder
	ratePerKm float64
	minFare   float64
}

func NewRouteSource(routes RouteFinder, ratePerKm, minFare float64) *RouteSource {
	return &RouteSource{routes: routes, ratePerKm: ratePerKm, minFare: minFare}
}

func (s *RouteSource) BaseFare(ctx context.Context, trip pricing.TripDetails) (float64, error) {
	km, err := s.routes.RailDistanceKm(ctx, trip.Origin, trip.Destination)
	if errors.Is(err, maps.ErrNoRoute) {
		return pricing.Unavailable, nil
	}
	if err != nil {
		return 0, err
	}
	fare := math.Round(km*s.ratePerKm*100) / 100
	return math.Max(fare, s.minFare), nil
}
