// README: Fare estimate handler.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trainfare/internal/modules/pricing"
)

const estimateTimeout = 10 * time.Second

type EstimateHandler struct {
	pricing *pricing.Service
	loc     *time.Location
}

// NewEstimateHandler builds the handler. Plain travel dates are read in loc.
func NewEstimateHandler(svc *pricing.Service, loc *time.Location) *EstimateHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &EstimateHandler{pricing: svc, loc: loc}
}

type passengerReq struct {
	Age       *int     `json:"age" binding:"required"`
	Discounts []string `json:"discounts" binding:"omitempty,dive,oneof=senior train_staff couple half_couple"`
}

type estimateReq struct {
	Origin      string         `json:"origin"`
	Destination string         `json:"destination"`
	TravelDate  string         `json:"travel_date"`
	Passengers  []passengerReq `json:"passengers" binding:"dive"`
}

type passengerQuote struct {
	Age   int     `json:"age"`
	Price float64 `json:"price"`
}

type estimateResp struct {
	Total         float64          `json:"total"`
	Currency      string           `json:"currency"`
	BaseFare      float64          `json:"base_fare"`
	GroupDiscount float64          `json:"group_discount"`
	DaysAhead     int              `json:"days_ahead"`
	BookingWindow string           `json:"booking_window,omitempty"`
	Passengers    []passengerQuote `json:"passengers"`
}

// Create handles POST /api/estimates.
func (h *EstimateHandler) Create(c *gin.Context) {
	var req estimateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	// Nobody travelling costs nothing whatever the other fields hold.
	when, ok := h.parseTravelDate(req.TravelDate)
	if !ok && len(req.Passengers) > 0 {
		writeError(c, http.StatusBadRequest, "travel_date must be YYYY-MM-DD or RFC 3339")
		return
	}

	trip := pricing.TripRequest{
		Details: pricing.TripDetails{
			Origin:      req.Origin,
			Destination: req.Destination,
			When:        when,
		},
		Passengers: make([]pricing.Passenger, len(req.Passengers)),
	}
	for i, p := range req.Passengers {
		cards := make([]pricing.DiscountCard, len(p.Discounts))
		for j, d := range p.Discounts {
			cards[j] = pricing.DiscountCard(d)
		}
		trip.Passengers[i] = pricing.Passenger{Age: *p.Age, Discounts: cards}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), estimateTimeout)
	defer cancel()

	q, err := h.pricing.Estimate(ctx, trip)
	if err != nil {
		writePricingError(c, err)
		return
	}

	resp := estimateResp{
		Total:         q.Total.Units(),
		Currency:      q.Total.Currency,
		BaseFare:      q.BaseFare.Units(),
		GroupDiscount: q.GroupDiscount.Units(),
		DaysAhead:     q.DaysAhead,
		BookingWindow: string(q.Window),
		Passengers:    make([]passengerQuote, len(q.Passengers)),
	}
	for i, m := range q.Passengers {
		resp.Passengers[i] = passengerQuote{Age: trip.Passengers[i].Age, Price: m.Units()}
	}
	writeJSON(c, http.StatusOK, resp)
}

// parseTravelDate accepts a calendar date or an RFC 3339 timestamp. An empty
// value yields the zero time, which the estimator rejects when anyone travels.
func (h *EstimateHandler) parseTravelDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, true
	}
	if t, err := time.ParseInLocation("2006-01-02", v, h.loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
