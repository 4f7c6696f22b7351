// README: Pricing service computes train fare estimates for a group of passengers.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trainfare/internal/types"
)

// FareSource returns the base fare shared by every passenger of a trip.
// It returns Unavailable when it has no price for the trip.
type FareSource interface {
	BaseFare(ctx context.Context, trip TripDetails) (float64, error)
}

type Service struct {
	fares    FareSource
	now      func() time.Time
	loc      *time.Location
	currency string
	tracer   trace.Tracer
}

// NewService builds a Service. now is the reference clock used for "today";
// nil means time.Now.
func NewService(fares FareSource, now func() time.Time, currency string) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		fares:    fares,
		now:      now,
		currency: currency,
		tracer:   otel.Tracer("trainfare/pricing"),
	}
}

// InLocation sets the zone that calendar days are counted in. Without it
// the clock's own zone is used.
func (s *Service) InLocation(loc *time.Location) *Service {
	s.loc = loc
	return s
}

func (s *Service) today() time.Time {
	t := s.now()
	if s.loc != nil {
		t = t.In(s.loc)
	}
	return t
}

// Estimate prices every passenger of req and returns the total with its
// breakdown. An empty passenger list costs nothing and skips the fare lookup.
func (s *Service) Estimate(ctx context.Context, req TripRequest) (Quote, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.Estimate", trace.WithAttributes(
		attribute.Int("trip.passengers", len(req.Passengers)),
	))
	defer span.End()

	q, err := s.estimate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Quote{}, err
	}
	span.SetAttributes(attribute.Int64("quote.total_minor", q.Total.Amount))
	return q, nil
}

func (s *Service) estimate(ctx context.Context, req TripRequest) (Quote, error) {
	q := Quote{
		Total:         types.Money{Currency: s.currency},
		BaseFare:      types.Money{Currency: s.currency},
		GroupDiscount: types.Money{Currency: s.currency},
	}
	if len(req.Passengers) == 0 {
		return q, nil
	}

	today := s.today()
	if err := validateTrip(req.Details, today); err != nil {
		return Quote{}, err
	}

	fare, err := s.fares.BaseFare(ctx, req.Details)
	if err != nil {
		slog.WarnContext(ctx, "fare lookup failed",
			"origin", req.Details.Origin, "destination", req.Details.Destination, "err", err)
		return Quote{}, fmt.Errorf("%w: %w", ErrFareService, err)
	}
	if fare < 0 {
		slog.WarnContext(ctx, "fare unavailable",
			"origin", req.Details.Origin, "destination", req.Details.Destination)
		return Quote{}, ErrFareService
	}

	days := daysAhead(today, req.Details.When)
	fixed := make([]bool, len(req.Passengers))
	q.Passengers = make([]types.Money, len(req.Passengers))
	total := 0.0
	for i, p := range req.Passengers {
		if p.Age < 0 {
			return Quote{}, ErrAgeInvalid
		}
		var price float64
		price, fixed[i] = passengerPrice(fare, p, days)
		q.Passengers[i] = types.FromUnits(price, s.currency)
		total += price
	}

	discount := groupDiscount(fare, req.Passengers, fixed)
	total -= discount
	if total < 0 {
		total = 0
	}

	q.Total = types.FromUnits(total, s.currency)
	q.BaseFare = types.FromUnits(fare, s.currency)
	q.GroupDiscount = types.FromUnits(discount, s.currency)
	q.Window = bookingWindow(days)
	q.DaysAhead = days

	slog.DebugContext(ctx, "fare estimated",
		"passengers", len(req.Passengers), "days_ahead", days, "total_minor", q.Total.Amount)
	return q, nil
}

func validateTrip(d TripDetails, today time.Time) error {
	if strings.TrimSpace(d.Origin) == "" {
		return ErrStartCityInvalid
	}
	if strings.TrimSpace(d.Destination) == "" {
		return ErrDestinationInvalid
	}
	if daysAhead(today, d.When) < 0 {
		return ErrDateInvalid
	}
	return nil
}
