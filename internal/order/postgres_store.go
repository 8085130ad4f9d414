package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, o *Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (receipt_id, guest_id, customer_name, customer_email, total, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ReceiptID, o.GuestID, o.CustomerName, o.CustomerEmail, o.Total.String(), string(o.Status), o.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateReceipt
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, l := range o.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (receipt_id, position, product_id, name, quantity, price_at_purchase, subtotal)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ReceiptID, i, l.ProductID, l.Name, l.Quantity, l.PriceAtPurchase.String(), l.Subtotal.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order_line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByReceiptID(ctx context.Context, receiptID string) (*Order, error) {
	var (
		o      Order
		total  string
		status string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT receipt_id, guest_id, customer_name, customer_email, total::text, status, created_at
         FROM orders WHERE receipt_id = $1`,
		receiptID,
	).Scan(&o.ReceiptID, &o.GuestID, &o.CustomerName, &o.CustomerEmail, &total, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	o.Status = Status(status)

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, name, quantity, price_at_purchase::text, subtotal::text
         FROM order_lines WHERE receipt_id = $1 ORDER BY position`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order_lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l               Line
			price, subtotal string
		)
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &price, &subtotal); err != nil {
			return nil, fmt.Errorf("scan order_line: %w", err)
		}
		if l.PriceAtPurchase, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if l.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, fmt.Errorf("parse subtotal: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &o, nil
}
