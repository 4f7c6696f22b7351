// README: Trip request, passenger and quote definitions for fare estimation.
package pricing

import (
	"errors"
	"time"

	"trainfare/internal/types"
)

type DiscountCard string

const (
	CardSenior     DiscountCard = "senior"
	CardTrainStaff DiscountCard = "train_staff"
	CardCouple     DiscountCard = "couple"
	CardHalfCouple DiscountCard = "half_couple"
)

// Valid reports whether c is one of the known discount cards.
func (c DiscountCard) Valid() bool {
	switch c {
	case CardSenior, CardTrainStaff, CardCouple, CardHalfCouple:
		return true
	}
	return false
}

type TripDetails struct {
	Origin      string
	Destination string
	When        time.Time
}

type Passenger struct {
	Age       int
	Discounts []DiscountCard
}

func (p Passenger) Has(card DiscountCard) bool {
	for _, d := range p.Discounts {
		if d == card {
			return true
		}
	}
	return false
}

type TripRequest struct {
	Details    TripDetails
	Passengers []Passenger
}

// Window is the booking window a trip falls into relative to today.
type Window string

const (
	WindowNone    Window = ""
	WindowAdvance Window = "advance"
	WindowSliding Window = "sliding"
	WindowLate    Window = "late"
)

// Quote is the result of an estimate. Passengers holds one price per
// passenger in request order, before the group discount.
type Quote struct {
	Total         types.Money
	BaseFare      types.Money
	GroupDiscount types.Money
	Passengers    []types.Money
	Window        Window
	DaysAhead     int
}

// Unavailable is the base fare a FareSource returns when it has no price.
const Unavailable = -1.0

// InvalidInputError is a caller-correctable request error. Reason is
// surfaced verbatim.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return e.Reason
}

var (
	ErrStartCityInvalid   = &InvalidInputError{Reason: "Start city is invalid"}
	ErrDestinationInvalid = &InvalidInputError{Reason: "Destination city is invalid"}
	ErrDateInvalid        = &InvalidInputError{Reason: "Date is invalid"}
	ErrAgeInvalid         = &InvalidInputError{Reason: "Age is invalid"}

	ErrFareService = errors.New("fare service unavailable")
)

// Fare is a base fare for a route, valid between two dates (ValidTo nil
// means open-ended). Routes match in either direction.
type Fare struct {
	Origin      string
	Destination string
	Price       float64
	ValidFrom   time.Time
	ValidTo     *time.Time
}
