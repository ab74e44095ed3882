package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Payment struct {
	ID          uuid.UUID
	PayerID     uuid.UUID
	PayerName   string
	Amount      string // decimal, e.g. "150.00"
	PaymentDate string // YYYY-MM-DD
	Method      *string
}

// CreatePayment inserts a payment after confirming the payer belongs to the
// tenant and is alive. A foreign or dead payer reads as not found.
func CreatePayment(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, p *Payment) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO payments (payer_id, amount, payment_date, method)
		SELECT id, $2::numeric, $3::date, $4
		FROM payers
		WHERE id = $1 AND psychologist_id = $5 AND deleted_at IS NULL
		RETURNING id
	`, p.PayerID, p.Amount, p.PaymentDate, p.Method, psychologistID).Scan(&p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return Validationf("valor do pagamento deve ser maior que zero")
		}
		return err
	}
	return nil
}

func PaymentByIDAndPsychologist(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) (*Payment, error) {
	var p Payment
	err := pool.QueryRow(ctx, `
		SELECT p.id, p.payer_id, py.full_name, p.amount::text, p.payment_date::text, p.method
		FROM payments p
		JOIN payers py ON py.id = p.payer_id
		WHERE p.id = $1 AND py.psychologist_id = $2
	`, id, psychologistID).Scan(&p.ID, &p.PayerID, &p.PayerName, &p.Amount, &p.PaymentDate, &p.Method)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func PaymentsByPsychologist(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, limit, offset int) ([]Payment, error) {
	q := `
		SELECT p.id, p.payer_id, py.full_name, p.amount::text, p.payment_date::text, p.method
		FROM payments p
		JOIN payers py ON py.id = p.payer_id
		WHERE py.psychologist_id = $1
		ORDER BY p.payment_date DESC, p.created_at DESC
	`
	args := []interface{}{psychologistID}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PayerID, &p.PayerName, &p.Amount, &p.PaymentDate, &p.Method); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func PaymentsByPayer(ctx context.Context, pool *pgxpool.Pool, payerID, psychologistID uuid.UUID) ([]Payment, error) {
	rows, err := pool.Query(ctx, `
		SELECT p.id, p.payer_id, py.full_name, p.amount::text, p.payment_date::text, p.method
		FROM payments p
		JOIN payers py ON py.id = p.payer_id
		WHERE p.payer_id = $1 AND py.psychologist_id = $2
		ORDER BY p.payment_date DESC, p.created_at DESC
	`, payerID, psychologistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.PayerID, &p.PayerName, &p.Amount, &p.PaymentDate, &p.Method); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UpdatePayment applies partial updates. Moving the payment to another payer
// is allowed only within the tenant.
func UpdatePayment(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID, payerID *uuid.UUID, amount, paymentDate, method *string) error {
	if payerID != nil {
		var n int
		err := pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM payers WHERE id = $1 AND psychologist_id = $2 AND deleted_at IS NULL
		`, *payerID, psychologistID).Scan(&n)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	result, err := pool.Exec(ctx, `
		UPDATE payments p
		SET payer_id = COALESCE($1, p.payer_id),
		    amount = CASE WHEN $2::text IS NULL THEN p.amount ELSE $2::numeric END,
		    payment_date = CASE WHEN $3::text IS NULL THEN p.payment_date ELSE $3::date END,
		    method = CASE WHEN $4::text IS NULL THEN p.method ELSE NULLIF($4::text, '') END,
		    updated_at = now()
		FROM payers py
		WHERE p.id = $5 AND py.id = p.payer_id AND py.psychologist_id = $6
	`, payerID, amount, paymentDate, method, id, psychologistID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return Validationf("valor do pagamento deve ser maior que zero")
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePayment removes the payment and clears the reference on any
// appointment that pointed at it, in one transaction.
func DeletePayment(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET payment_id = NULL, updated_at = now() WHERE payment_id = $1
	`, id); err != nil {
		return err
	}
	result, err := tx.Exec(ctx, `
		DELETE FROM payments p
		USING payers py
		WHERE p.id = $1 AND py.id = p.payer_id AND py.psychologist_id = $2
	`, id, psychologistID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// paymentOwnedByPsychologist verifies tenant ownership inside a transaction.
func paymentOwnedByPsychologist(ctx context.Context, tx pgx.Tx, id, psychologistID uuid.UUID) error {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM payments p
		JOIN payers py ON py.id = p.payer_id
		WHERE p.id = $1 AND py.psychologist_id = $2
	`, id, psychologistID).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
