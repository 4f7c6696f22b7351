// README: Remote fare API client; the default external fare source.
package faresource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"trainfare/internal/modules/pricing"
)

// HTTPSource asks a remote pricing API for the base fare of a trip.
type HTTPSource struct {
	baseURL string
	http    *http.Client
}

func NewHTTPSource(baseURL string, httpClient *http.Client) *HTTPSource {
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// NewHTTPClient returns a traced client with an overall request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

type priceResponse struct {
	Price *float64 `json:"price"`
}

// BaseFare returns pricing.Unavailable when the API answers without a
// positive price.
func (s *HTTPSource) BaseFare(ctx context.Context, trip pricing.TripDetails) (float64, error) {
	q := url.Values{}
	q.Set("from", trip.Origin)
	q.Set("to", trip.Destination)
	q.Set("date", trip.When.Format(time.RFC3339))
	u := fmt.Sprintf("%s/api/train/estimate/price?%s", s.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pricing.Unavailable, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("fare endpoint %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode fare response: %w", err)
	}
	if body.Price == nil || *body.Price <= 0 {
		return pricing.Unavailable, nil
	}
	return *body.Price, nil
}
