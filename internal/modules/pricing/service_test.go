package pricing

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

// stubFares is a fixed-value fare source that counts lookups.
type stubFares struct {
	fare  float64
	err   error
	calls int
}

func (s *stubFares) BaseFare(_ context.Context, _ TripDetails) (float64, error) {
	s.calls++
	return s.fare, s.err
}

// Reference "today": 2026-02-10 12:00 UTC.
var today = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return today }

func daysFromToday(n int) time.Time {
	return time.Date(2026, 2, 10+n, 0, 0, 0, 0, time.UTC)
}

func trip(days int, passengers ...Passenger) TripRequest {
	return TripRequest{
		Details: TripDetails{
			Origin:      "Paris",
			Destination: "Marseille",
			When:        daysFromToday(days),
		},
		Passengers: passengers,
	}
}

func adult(age int, cards ...DiscountCard) Passenger {
	return Passenger{Age: age, Discounts: cards}
}

func TestService_Estimate(t *testing.T) {
	tests := []struct {
		name      string
		fare      float64
		req       TripRequest
		wantTotal int64 // minor units
	}{
		{
			name:      "Advance booking (+31 days) adult",
			fare:      6,
			req:       trip(31, adult(30)),
			wantTotal: 500, // round(6 * 0.8)
		},
		{
			name:      "Advance booking exactly 30 days",
			fare:      10,
			req:       trip(30, adult(30)),
			wantTotal: 800,
		},
		{
			name:      "Advance booking child (17) is not rounded",
			fare:      7,
			req:       trip(31, adult(17)),
			wantTotal: 280, // 4.2 - 1.4
		},
		{
			name:      "Advance booking senior (70) with senior card",
			fare:      7,
			req:       trip(31, adult(70, CardSenior)),
			wantTotal: 280, // 5.6 - 1.4 - 1.4
		},
		{
			name:      "Advance booking senior (70) without card",
			fare:      7,
			req:       trip(31, adult(70)),
			wantTotal: 420, // 5.6 - 1.4
		},
		{
			name:      "Advance booking adult rounds to whole units",
			fare:      7,
			req:       trip(31, adult(40)),
			wantTotal: 600, // round(8.4 - 1.4 - 1.4)
		},
		{
			name:      "Sliding window (+29 days)",
			fare:      6,
			req:       trip(29, adult(30)),
			wantTotal: 612, // 7.2 + (20-29)*0.02*6
		},
		{
			name:      "Sliding window pivot (+20 days)",
			fare:      10,
			req:       trip(20, adult(30)),
			wantTotal: 1200,
		},
		{
			name:      "Sliding window (+6 days)",
			fare:      10,
			req:       trip(6, adult(30)),
			wantTotal: 1480, // 12 + 14*0.02*10
		},
		{
			name:      "Late booking (+5 days)",
			fare:      10,
			req:       trip(5, adult(30)),
			wantTotal: 2200,
		},
		{
			name:      "Late booking (+3 days)",
			fare:      6,
			req:       trip(3, adult(25)),
			wantTotal: 1320, // 6*2 + 1.2
		},
		{
			name:      "Late booking today",
			fare:      6,
			req:       trip(0, adult(25)),
			wantTotal: 1320,
		},
		{
			name:      "Child (17) sliding pivot",
			fare:      10,
			req:       trip(20, adult(17)),
			wantTotal: 600,
		},
		{
			name:      "Senior (70) sliding pivot",
			fare:      10,
			req:       trip(20, adult(70)),
			wantTotal: 800,
		},
		{
			name:      "Senior (70) with senior card sliding pivot",
			fare:      10,
			req:       trip(20, adult(70, CardSenior)),
			wantTotal: 600,
		},
		{
			name:      "Senior card ignored under 70",
			fare:      10,
			req:       trip(20, adult(69, CardSenior)),
			wantTotal: 1200,
		},
		{
			name:      "Infant (0) is free even when booking late",
			fare:      10,
			req:       trip(2, adult(0)),
			wantTotal: 0,
		},
		{
			name:      "Toddlers (1-3) pay fixed 9",
			fare:      50,
			req:       trip(2, adult(1), adult(2), adult(3)),
			wantTotal: 2700,
		},
		{
			name:      "Age 4 leaves the toddler price",
			fare:      10,
			req:       trip(20, adult(4)),
			wantTotal: 600,
		},
		{
			name:      "Train staff card (19) pays 1",
			fare:      10,
			req:       trip(2, adult(19, CardTrainStaff)),
			wantTotal: 100,
		},
		{
			name:      "Train staff card overrides toddler price",
			fare:      10,
			req:       trip(40, adult(2, CardTrainStaff)),
			wantTotal: 100,
		},
		{
			name:      "Couple cards (18, 20), counted once",
			fare:      10,
			req:       trip(2, adult(18, CardCouple), adult(20, CardCouple)),
			wantTotal: 4000, // 22 + 22 - 2*2
		},
		{
			name:      "Couple card held by one passenger",
			fare:      10,
			req:       trip(2, adult(18, CardCouple), adult(20)),
			wantTotal: 4000,
		},
		{
			name:      "Couple card blocked by a minor",
			fare:      10,
			req:       trip(2, adult(17, CardCouple), adult(20, CardCouple)),
			wantTotal: 1600 + 2200, // 16 + 22
		},
		{
			name:      "Couple card with a train staff ticket",
			fare:      10,
			req:       trip(2, adult(30, CardCouple), adult(30, CardTrainStaff)),
			wantTotal: 2200 + 100 - 200,
		},
		{
			name:      "Couple card ignored for three passengers",
			fare:      10,
			req:       trip(2, adult(30, CardCouple), adult(30, CardCouple), adult(30)),
			wantTotal: 3 * 2200,
		},
		{
			name:      "Half couple card adult",
			fare:      10,
			req:       trip(2, adult(30, CardHalfCouple)),
			wantTotal: 2200 - 100,
		},
		{
			name:      "Half couple card minor (16)",
			fare:      10,
			req:       trip(2, adult(16, CardHalfCouple)),
			wantTotal: 1600, // 6 + 10, no discount
		},
		{
			name:      "Half couple card ignored for two passengers",
			fare:      10,
			req:       trip(2, adult(30, CardHalfCouple), adult(30)),
			wantTotal: 4400,
		},
		{
			name:      "Half couple card with train staff",
			fare:      10,
			req:       trip(2, adult(30, CardHalfCouple, CardTrainStaff)),
			wantTotal: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fares := &stubFares{fare: tt.fare}
			s := NewService(fares, fixedClock, "EUR")
			got, err := s.Estimate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}
			if got.Total.Amount != tt.wantTotal {
				t.Errorf("Estimate() = %d, want %d", got.Total.Amount, tt.wantTotal)
			}
			if got.Total.Currency != "EUR" {
				t.Errorf("currency = %q, want EUR", got.Total.Currency)
			}
			if fares.calls != 1 {
				t.Errorf("fare lookups = %d, want 1", fares.calls)
			}
			if len(got.Passengers) != len(tt.req.Passengers) {
				t.Errorf("breakdown has %d lines, want %d", len(got.Passengers), len(tt.req.Passengers))
			}
		})
	}
}

func TestService_EstimateNoPassengers(t *testing.T) {
	fares := &stubFares{fare: 10}
	s := NewService(fares, fixedClock, "EUR")

	// Other fields are not validated when nobody travels.
	got, err := s.Estimate(context.Background(), TripRequest{Details: TripDetails{}})
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if !got.Total.IsZero() {
		t.Errorf("Estimate() = %d, want 0", got.Total.Amount)
	}
	if fares.calls != 0 {
		t.Errorf("fare lookups = %d, want 0", fares.calls)
	}
}

func TestService_EstimateInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  TripRequest
		want error
	}{
		{
			name: "blank origin",
			req: TripRequest{
				Details:    TripDetails{Origin: "  ", Destination: "Marseille", When: daysFromToday(3)},
				Passengers: []Passenger{adult(30)},
			},
			want: ErrStartCityInvalid,
		},
		{
			name: "blank destination",
			req: TripRequest{
				Details:    TripDetails{Origin: "Paris", Destination: "", When: daysFromToday(3)},
				Passengers: []Passenger{adult(30)},
			},
			want: ErrDestinationInvalid,
		},
		{
			name: "yesterday",
			req:  trip(-1, adult(30)),
			want: ErrDateInvalid,
		},
		{
			name: "zero date",
			req: TripRequest{
				Details:    TripDetails{Origin: "Paris", Destination: "Marseille"},
				Passengers: []Passenger{adult(30)},
			},
			want: ErrDateInvalid,
		},
		{
			name: "negative age",
			req:  trip(3, adult(30), adult(-1)),
			want: ErrAgeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(&stubFares{fare: 10}, fixedClock, "EUR")
			_, err := s.Estimate(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Estimate() error = %v, want %v", err, tt.want)
			}
			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected *InvalidInputError, got %T", err)
			}
			if invalid.Reason != tt.want.Error() {
				t.Errorf("reason = %q, want %q", invalid.Reason, tt.want.Error())
			}
		})
	}
}

func TestService_EstimateTodayLaterThanTravelTime(t *testing.T) {
	// Travel date is today at midnight while the clock reads noon: still valid.
	s := NewService(&stubFares{fare: 6}, fixedClock, "EUR")
	got, err := s.Estimate(context.Background(), trip(0, adult(25)))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.DaysAhead != 0 || got.Window != WindowLate {
		t.Errorf("got days=%d window=%s, want 0 late", got.DaysAhead, got.Window)
	}
}

func TestService_EstimateAgeCheckedAfterLookup(t *testing.T) {
	fares := &stubFares{fare: 10}
	s := NewService(fares, fixedClock, "EUR")
	_, err := s.Estimate(context.Background(), trip(3, adult(-5)))
	if !errors.Is(err, ErrAgeInvalid) {
		t.Fatalf("Estimate() error = %v, want ErrAgeInvalid", err)
	}
	if fares.calls != 1 {
		t.Errorf("fare lookups = %d, want 1", fares.calls)
	}
}

func TestService_EstimateFareService(t *testing.T) {
	t.Run("unavailable sentinel", func(t *testing.T) {
		s := NewService(&stubFares{fare: Unavailable}, fixedClock, "EUR")
		_, err := s.Estimate(context.Background(), trip(3, adult(30)))
		if !errors.Is(err, ErrFareService) {
			t.Fatalf("Estimate() error = %v, want ErrFareService", err)
		}
		var invalid *InvalidInputError
		if errors.As(err, &invalid) {
			t.Fatal("fare service error must not be an input error")
		}
	})

	t.Run("lookup error", func(t *testing.T) {
		cause := errors.New("connection refused")
		s := NewService(&stubFares{err: cause}, fixedClock, "EUR")
		_, err := s.Estimate(context.Background(), trip(3, adult(30)))
		if !errors.Is(err, ErrFareService) {
			t.Fatalf("Estimate() error = %v, want ErrFareService", err)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("Estimate() error = %v, want wrapped cause", err)
		}
	})
}

func TestService_EstimateBreakdown(t *testing.T) {
	s := NewService(&stubFares{fare: 10}, fixedClock, "EUR")
	got, err := s.Estimate(context.Background(), trip(2, adult(18, CardCouple), adult(20, CardCouple)))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.BaseFare.Amount != 1000 {
		t.Errorf("base fare = %d, want 1000", got.BaseFare.Amount)
	}
	if got.GroupDiscount.Amount != 400 {
		t.Errorf("group discount = %d, want 400", got.GroupDiscount.Amount)
	}
	for i, p := range got.Passengers {
		if p.Amount != 2200 {
			t.Errorf("passenger %d = %d, want 2200", i, p.Amount)
		}
	}
	if got.Window != WindowLate || got.DaysAhead != 2 {
		t.Errorf("got window=%s days=%d, want late 2", got.Window, got.DaysAhead)
	}
}

func TestService_EstimateCountsDaysInLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	clock := func() time.Time { return time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) }
	s := NewService(&stubFares{fare: 10}, clock, "EUR").InLocation(paris)

	cases := []struct {
		when   time.Time
		days   int
		window Window
	}{
		{time.Date(2026, 10, 16, 0, 0, 0, 0, paris), 0, WindowLate},
		{time.Date(2026, 11, 15, 0, 0, 0, 0, paris), 30, WindowAdvance},
	}
	for _, tc := range cases {
		got, err := s.Estimate(context.Background(), TripRequest{
			Details:    TripDetails{Origin: "Paris", Destination: "Lyon", When: tc.when},
			Passengers: []Passenger{adult(30)},
		})
		if err != nil {
			t.Fatalf("Estimate(%s) error = %v", tc.when, err)
		}
		if got.DaysAhead != tc.days || got.Window != tc.window {
			t.Errorf("Estimate(%s) = %d %s, want %d %s", tc.when, got.DaysAhead, got.Window, tc.days, tc.window)
		}
	}
}
