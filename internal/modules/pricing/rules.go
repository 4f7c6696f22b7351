// README: Fare rules: age tiers, booking windows, fixed prices and group discounts.
package pricing

import (
	"math"
	"time"
)

const (
	adultMinAge  = 18
	seniorMinAge = 70

	toddlerPrice = 9.0
	staffPrice   = 1.0

	advanceDays = 30
	lateDays    = 5
	// pivotDays is where the sliding-window adjustment crosses zero.
	pivotDays = 20
)

// tierPrice is the age-based price of one ticket before any date adjustment.
func tierPrice(fare float64, p Passenger) float64 {
	switch {
	case p.Age < 1:
		return 0
	case p.Age < adultMinAge:
		return fare * 0.6
	case p.Age >= seniorMinAge:
		price := fare * 0.8
		if p.Has(CardSenior) {
			price -= fare * 0.2
		}
		return price
	default:
		return fare * 1.2
	}
}

func isAdult(age int) bool {
	return age >= adultMinAge && age < seniorMinAge
}

// bookingWindow classifies the number of calendar days between today and
// the travel date.
func bookingWindow(days int) Window {
	switch {
	case days >= advanceDays:
		return WindowAdvance
	case days > lateDays:
		return WindowSliding
	default:
		return WindowLate
	}
}

// dateAdjusted applies the booking-window adjustment to a tier price.
// Adult advance fares carry no adult surcharge and are quoted in whole units.
func dateAdjusted(fare, tier float64, p Passenger, days int) float64 {
	switch bookingWindow(days) {
	case WindowAdvance:
		price := tier - fare*0.2
		if isAdult(p.Age) {
			return math.Round(price - fare*0.2)
		}
		return price
	case WindowSliding:
		return tier + float64(pivotDays-days)*0.02*fare
	default:
		return tier + fare
	}
}

// passengerPrice returns the final price of one ticket. fixed is true when
// a fixed price applies; fixed tickets take no further discount.
func passengerPrice(fare float64, p Passenger, days int) (price float64, fixed bool) {
	switch {
	case p.Has(CardTrainStaff):
		return staffPrice, true
	case p.Age > 0 && p.Age < 4:
		return toddlerPrice, true
	case p.Age < 1:
		// Infants skip the booking-date adjustment, late window included.
		return 0, true
	}
	price = dateAdjusted(fare, tierPrice(fare, p), p, days)
	if price < 0 {
		price = 0
	}
	return price, false
}

// groupDiscount is taken once off the total, computed from the base fare.
// Only groups of one (half couple) or two (couple) qualify.
func groupDiscount(fare float64, passengers []Passenger, fixed []bool) float64 {
	switch len(passengers) {
	case 1:
		p := passengers[0]
		if fixed[0] || p.Age < adultMinAge || !p.Has(CardHalfCouple) {
			return 0
		}
		return fare * 0.1
	case 2:
		couple := false
		for _, p := range passengers {
			if p.Age < adultMinAge {
				return 0
			}
			if p.Has(CardCouple) {
				couple = true
			}
		}
		if !couple {
			return 0
		}
		discount := 0.0
		for i := range passengers {
			if !fixed[i] {
				discount += fare * 0.2
			}
		}
		return discount
	}
	return 0
}

// daysAhead counts calendar days from today to the travel date, both taken
// as dates in today's location.
func daysAhead(today, when time.Time) int {
	when = when.In(today.Location())
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(when.Year(), when.Month(), when.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
