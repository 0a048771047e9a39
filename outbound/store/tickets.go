package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"ticketera/common/errs"
	"ticketera/model"
)

const insertTicket = `
INSERT INTO tickets (id, purchase_id, event_id, sector_name, sector_color, quantity, unit_price, total_price, ticket_type, verification_code, qr_code)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

type InsertTicketParams struct {
	Id               string
	PurchaseId       string
	EventId          string
	SectorName       string
	SectorColor      string
	Quantity         int32
	UnitPrice        decimal.Decimal
	TotalPrice       decimal.Decimal
	TicketType       model.TicketType
	VerificationCode string
	QrCode           string
}

func (q *Queries) InsertTicket(ctx context.Context, arg InsertTicketParams) error {
	_, err := q.db.Exec(ctx, insertTicket,
		arg.Id, arg.PurchaseId, arg.EventId, arg.SectorName, arg.SectorColor, arg.Quantity,
		arg.UnitPrice, arg.TotalPrice, arg.TicketType, arg.VerificationCode, arg.QrCode)
	return err
}

const ticketColumns = `
id, purchase_id, event_id, sector_name, sector_color, quantity, unit_price, total_price, ticket_type,
verification_code, qr_code, status, COALESCE(validated_by, ''), validated_at
`

func scanTicket(row pgx.Row) (model.Ticket, error) {
	var t model.Ticket
	var validatedAt pgtype.Timestamp
	err := row.Scan(&t.Id, &t.PurchaseId, &t.EventId, &t.SectorName, &t.SectorColor, &t.Quantity,
		&t.UnitPrice, &t.TotalPrice, &t.TicketType, &t.VerificationCode, &t.QrCode, &t.Status,
		&t.ValidatedBy, &validatedAt)
	if validatedAt.Valid {
		t.ValidatedAt = &validatedAt.Time
	}
	return t, err
}

const findTicketById = `
SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1
`

func (q *Queries) FindTicketById(ctx context.Context, id string) (model.Ticket, error) {
	t, err := scanTicket(q.db.QueryRow(ctx, findTicketById, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ticket{}, errs.ErrNotFound
	}
	return t, err
}

const findTicketByVerificationCode = `
SELECT ` + ticketColumns + ` FROM tickets WHERE verification_code = $1
`

func (q *Queries) FindTicketByVerificationCode(ctx context.Context, code string) (model.Ticket, error) {
	t, err := scanTicket(q.db.QueryRow(ctx, findTicketByVerificationCode, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ticket{}, errs.ErrNotFound
	}
	return t, err
}

const findTicketByQrCode = `
SELECT ` + ticketColumns + ` FROM tickets WHERE qr_code = $1
`

// FindTicketByQrCode treats the QR payload as an alternate key; callers get
// the same ticket shape regardless of which key matched.
func (q *Queries) FindTicketByQrCode(ctx context.Context, qr string) (model.Ticket, error) {
	t, err := scanTicket(q.db.QueryRow(ctx, findTicketByQrCode, qr))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Ticket{}, errs.ErrNotFound
	}
	return t, err
}

const listTicketsByPurchase = `
SELECT ` + ticketColumns + ` FROM tickets WHERE purchase_id = $1 ORDER BY id
`

func (q *Queries) ListTicketsByPurchase(ctx context.Context, purchaseId string) ([]model.Ticket, error) {
	rows, err := q.db.Query(ctx, listTicketsByPurchase, purchaseId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

const validateTicket = `
UPDATE tickets SET status = 'validated', validated_by = $2, validated_at = NOW()
WHERE id = $1 AND status = 'pending'
`

// ValidateTicket moves pending to validated. Zero rows means the ticket was
// not pending; re-validation is an explicit rejection, never a silent no-op.
func (q *Queries) ValidateTicket(ctx context.Context, id, validatedBy string) (int64, error) {
	cmd, err := q.db.Exec(ctx, validateTicket, id, validatedBy)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const useTicket = `
UPDATE tickets SET status = 'used'
WHERE id = $1 AND status = 'validated'
`

func (q *Queries) UseTicket(ctx context.Context, id string) (int64, error) {
	cmd, err := q.db.Exec(ctx, useTicket, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const bulkValidateTicketsByPurchase = `
UPDATE tickets SET status = 'validated', validated_by = $2, validated_at = NOW()
WHERE purchase_id = $1 AND status = 'pending'
`

func (q *Queries) BulkValidateTicketsByPurchase(ctx context.Context, purchaseId, validatedBy string) (int64, error) {
	cmd, err := q.db.Exec(ctx, bulkValidateTicketsByPurchase, purchaseId, validatedBy)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const bulkUseTicketsByPurchase = `
UPDATE tickets SET status = 'used'
WHERE purchase_id = $1 AND status = 'validated'
`

func (q *Queries) BulkUseTicketsByPurchase(ctx context.Context, purchaseId string) (int64, error) {
	cmd, err := q.db.Exec(ctx, bulkUseTicketsByPurchase, purchaseId)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const cancelTicketsByPurchase = `
UPDATE tickets SET status = 'cancelled'
WHERE purchase_id = $1 AND status IN ('pending', 'validated')
RETURNING quantity
`

// CancelTicketsByPurchase cascades a purchase cancellation and returns the
// seat count freed, so callers can roll back capacity accounting.
func (q *Queries) CancelTicketsByPurchase(ctx context.Context, purchaseId string) (int32, error) {
	rows, err := q.db.Query(ctx, cancelTicketsByPurchase, purchaseId)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var freed int32
	for rows.Next() {
		var quantity int32
		if err := rows.Scan(&quantity); err != nil {
			return 0, err
		}
		freed += quantity
	}
	return freed, rows.Err()
}

const getEventTicketStats = `
SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE status = 'pending') AS pending,
       COUNT(*) FILTER (WHERE status = 'validated') AS validated,
       COUNT(*) FILTER (WHERE status = 'used') AS used,
       COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled
FROM tickets WHERE event_id = $1
`

// GetEventTicketStats recomputes aggregates from the ticket table on demand;
// there is no cached counter to drift out of sync.
func (q *Queries) GetEventTicketStats(ctx context.Context, eventId string) (model.TicketStats, error) {
	var s model.TicketStats
	err := q.db.QueryRow(ctx, getEventTicketStats, eventId).Scan(&s.Total, &s.Pending, &s.Validated, &s.Used, &s.Cancelled)
	return s, err
}
