package booking

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists bookings in PostgreSQL so they survive restarts and
// are visible to the sales team's tooling.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and ensures the bookings table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("booking: connect: %w", err)
	}
	const ddl = `CREATE TABLE IF NOT EXISTS test_drive_bookings (
		id             TEXT PRIMARY KEY,
		customer_name  TEXT NOT NULL,
		contact_phone  TEXT NOT NULL DEFAULT '',
		contact_email  TEXT NOT NULL DEFAULT '',
		model          TEXT NOT NULL,
		preferred_time TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL
	)`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("booking: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, b Booking) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO test_drive_bookings
			(id, customer_name, contact_phone, contact_email, model, preferred_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.CustomerName, b.ContactPhone, b.ContactEmail, b.Model, b.PreferredTime, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("booking: insert: %w", err)
	}
	return nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context) ([]Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_name, contact_phone, contact_email, model, preferred_time, created_at
		   FROM test_drive_bookings
		  ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("booking: query: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.CustomerName, &b.ContactPhone, &b.ContactEmail,
			&b.Model, &b.PreferredTime, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("booking: scan: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: rows: %w", err)
	}
	return bookings, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
