package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that the store uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListLines(ctx context.Context, guestID string) ([]Line, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, guest_id, product_id, quantity, created_at, updated_at
		FROM cart_lines
		WHERE guest_id=$1
		ORDER BY created_at, id
	`, guestID)
	if err != nil {
		return nil, fmt.Errorf("select cart_lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.GuestID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart_line: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// AddQuantity merges through the (guest_id, product_id) unique constraint.
// xmax is non-zero when the row came from the DO UPDATE branch. The sum is
// taken as bigint so the limit check itself cannot overflow; a merge past the
// limit updates nothing and returns no row.
func (s *PostgresStore) AddQuantity(ctx context.Context, guestID, productID string, qty int) (Line, bool, error) {
	var (
		l      Line
		merged bool
	)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO cart_lines (id, guest_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guest_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = now()
		WHERE cart_lines.quantity::bigint + EXCLUDED.quantity <= $5
		RETURNING id, guest_id, product_id, quantity, created_at, updated_at, (xmax <> 0) AS merged
	`, uuid.NewString(), guestID, productID, qty, int64(MaxLineQuantity)).
		Scan(&l.ID, &l.GuestID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt, &merged)
	if errors.Is(err, pgx.ErrNoRows) {
		return Line{}, false, ErrQuantityLimit
	}
	if err != nil {
		return Line{}, false, fmt.Errorf("upsert cart_line: %w", err)
	}
	return l, merged, nil
}

func (s *PostgresStore) SetQuantity(ctx context.Context, guestID, lineID string, qty int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cart_lines SET quantity=$3, updated_at=now()
		WHERE id=$1 AND guest_id=$2
	`, lineID, guestID, qty)
	if err != nil {
		return fmt.Errorf("update cart_line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteLine(ctx context.Context, guestID, lineID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1 AND guest_id=$2`, lineID, guestID)
	if err != nil {
		return fmt.Errorf("delete cart_line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, guestID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_lines WHERE guest_id=$1`, guestID); err != nil {
		return fmt.Errorf("clear cart_lines: %w", err)
	}
	return nil
}
