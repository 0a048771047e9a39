package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"ticketera/common/errs"
	"ticketera/model"
)

const insertPurchase = `
INSERT INTO purchases (id, event_id, customer_name, customer_phone, customer_email, total_amount, payment_method, payment_proof, status, verification_code)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10)
`

type InsertPurchaseParams struct {
	Id               string
	EventId          string
	CustomerName     string
	CustomerPhone    string
	CustomerEmail    string
	TotalAmount      decimal.Decimal
	PaymentMethod    model.PaymentMethod
	PaymentProof     string
	Status           model.PurchaseStatus
	VerificationCode string
}

func (q *Queries) InsertPurchase(ctx context.Context, arg InsertPurchaseParams) error {
	_, err := q.db.Exec(ctx, insertPurchase,
		arg.Id, arg.EventId, arg.CustomerName, arg.CustomerPhone, arg.CustomerEmail,
		arg.TotalAmount, arg.PaymentMethod, arg.PaymentProof, arg.Status, arg.VerificationCode)
	return err
}

const purchaseColumns = `
id, event_id, customer_name, customer_phone, COALESCE(customer_email, ''), total_amount, payment_method,
COALESCE(payment_proof, ''), status, verification_code, notified_payment_verified, notified_tickets_ready, created_at
`

func scanPurchase(row pgx.Row) (model.Purchase, error) {
	var p model.Purchase
	err := row.Scan(&p.Id, &p.EventId, &p.CustomerName, &p.CustomerPhone, &p.CustomerEmail,
		&p.TotalAmount, &p.PaymentMethod, &p.PaymentProof, &p.Status, &p.VerificationCode,
		&p.NotifiedVerified, &p.NotifiedReady, &p.CreatedAt)
	return p, err
}

const findPurchaseById = `
SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1
`

func (q *Queries) FindPurchaseById(ctx context.Context, id string) (model.Purchase, error) {
	p, err := scanPurchase(q.db.QueryRow(ctx, findPurchaseById, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Purchase{}, errs.ErrNotFound
	}
	return p, err
}

const findPurchaseByVerificationCode = `
SELECT ` + purchaseColumns + ` FROM purchases WHERE verification_code = $1
`

func (q *Queries) FindPurchaseByVerificationCode(ctx context.Context, code string) (model.Purchase, error) {
	p, err := scanPurchase(q.db.QueryRow(ctx, findPurchaseByVerificationCode, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Purchase{}, errs.ErrNotFound
	}
	return p, err
}

const listPurchasesByEvent = `
SELECT ` + purchaseColumns + ` FROM purchases WHERE event_id = $1 ORDER BY created_at DESC
`

func (q *Queries) ListPurchasesByEvent(ctx context.Context, eventId string) ([]model.Purchase, error) {
	rows, err := q.db.Query(ctx, listPurchasesByEvent, eventId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]model.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

const purchaseVerificationCodeExists = `
SELECT EXISTS (SELECT 1 FROM purchases WHERE verification_code = $1) AS "exists"
`

func (q *Queries) PurchaseVerificationCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, purchaseVerificationCodeExists, code).Scan(&exists)
	return exists, err
}

const submitPurchaseProof = `
UPDATE purchases SET payment_proof = $2, status = 'payment_submitted'
WHERE id = $1 AND status = 'pending_payment'
`

func (q *Queries) SubmitPurchaseProof(ctx context.Context, id, proof string) (int64, error) {
	cmd, err := q.db.Exec(ctx, submitPurchaseProof, id, proof)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const verifyPurchase = `
UPDATE purchases SET status = 'payment_verified'
WHERE id = $1 AND status = 'payment_submitted'
`

// VerifyPurchase is the first guarded step of the completion saga. The
// status predicate is the fencing token: a redelivered message affects zero
// rows and the consumer treats that as already-processed.
func (q *Queries) VerifyPurchase(ctx context.Context, id string) (int64, error) {
	cmd, err := q.db.Exec(ctx, verifyPurchase, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const completePurchase = `
UPDATE purchases SET status = 'completed'
WHERE id = $1 AND status = 'payment_verified'
`

func (q *Queries) CompletePurchase(ctx context.Context, id string) (int64, error) {
	cmd, err := q.db.Exec(ctx, completePurchase, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const cancelPurchase = `
UPDATE purchases SET status = 'cancelled'
WHERE id = $1 AND status IN ('pending_payment', 'payment_submitted', 'payment_verified')
`

func (q *Queries) CancelPurchase(ctx context.Context, id string) (int64, error) {
	cmd, err := q.db.Exec(ctx, cancelPurchase, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const setPurchaseNotified = `
UPDATE purchases SET notified_payment_verified = $2, notified_tickets_ready = $3
WHERE id = $1
`

func (q *Queries) SetPurchaseNotified(ctx context.Context, id string, verified, ready bool) error {
	_, err := q.db.Exec(ctx, setPurchaseNotified, id, verified, ready)
	return err
}

const listStalePurchases = `
SELECT ` + purchaseColumns + ` FROM purchases
WHERE status = 'pending_payment' AND created_at < $2
ORDER BY created_at
LIMIT $1
`

// ListStalePurchases returns unpaid purchases older than the cutoff. Each
// one is cancelled through the cascading transaction, never in bulk.
func (q *Queries) ListStalePurchases(ctx context.Context, limit int32, before time.Time) ([]model.Purchase, error) {
	rows, err := q.db.Query(ctx, listStalePurchases, limit, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stale := make([]model.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		stale = append(stale, p)
	}
	return stale, rows.Err()
}
