// README: Fare table store backed by PostgreSQL; serves as the database fare source.
package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dateLayout = "2006-01-02"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// BaseFare looks up the most recent fare valid on the travel date. It
// returns Unavailable when no fare covers the route.
func (s *Store) BaseFare(ctx context.Context, trip TripDetails) (float64, error) {
	row := s.db.QueryRow(ctx, `
		SELECT price
		FROM fares
		WHERE ((lower(origin) = lower($1) AND lower(destination) = lower($2))
		    OR (lower(origin) = lower($2) AND lower(destination) = lower($1)))
		  AND valid_from <= $3::date
		  AND (valid_to IS NULL OR valid_to >= $3::date)
		ORDER BY valid_from DESC
		LIMIT 1`,
		strings.TrimSpace(trip.Origin),
		strings.TrimSpace(trip.Destination),
		trip.When.Format(dateLayout),
	)
	var price float64
	err := row.Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Unavailable, nil
	}
	if err != nil {
		return 0, err
	}
	return price, nil
}

// PutFare inserts a fare, replacing any fare for the same route and start date.
func (s *Store) PutFare(ctx context.Context, f Fare) error {
	var validTo *string
	if f.ValidTo != nil {
		v := f.ValidTo.Format(dateLayout)
		validTo = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO fares (origin, destination, price, valid_from, valid_to)
		VALUES ($1, $2, $3, $4::date, $5::date)
		ON CONFLICT (origin, destination, valid_from) DO UPDATE SET
			price = EXCLUDED.price,
			valid_to = EXCLUDED.valid_to`,
		strings.TrimSpace(f.Origin),
		strings.TrimSpace(f.Destination),
		f.Price,
		f.ValidFrom.Format(dateLayout),
		validTo,
	)
	return err
}
