package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ticketera/common/errs"
	"ticketera/model"
)

const insertBusiness = `
INSERT INTO businesses (id, name, email, phone, address, description, owner_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertBusinessParams struct {
	Id          string
	Name        string
	Email       string
	Phone       string
	Address     string
	Description string
	OwnerId     string
}

func (q *Queries) InsertBusiness(ctx context.Context, arg InsertBusinessParams) error {
	_, err := q.db.Exec(ctx, insertBusiness,
		arg.Id, arg.Name, arg.Email, arg.Phone, arg.Address, arg.Description, arg.OwnerId)
	return err
}

const findBusinessById = `
SELECT id, name, email, phone, COALESCE(address, ''), COALESCE(logo, ''), COALESCE(description, ''),
       owner_id, COALESCE(payment_qr_url, ''), COALESCE(payment_instructions, '')
FROM businesses WHERE id = $1
`

func (q *Queries) FindBusinessById(ctx context.Context, id string) (model.Business, error) {
	var b model.Business
	err := q.db.QueryRow(ctx, findBusinessById, id).Scan(
		&b.Id, &b.Name, &b.Email, &b.Phone, &b.Address, &b.Logo, &b.Description,
		&b.OwnerId, &b.PaymentQrUrl, &b.PaymentInstructions)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Business{}, errs.ErrNotFound
	}
	return b, err
}

const findBusinessByOwner = `
SELECT id, name, email, phone, COALESCE(address, ''), COALESCE(logo, ''), COALESCE(description, ''),
       owner_id, COALESCE(payment_qr_url, ''), COALESCE(payment_instructions, '')
FROM businesses WHERE owner_id = $1
`

func (q *Queries) FindBusinessByOwner(ctx context.Context, ownerId string) (model.Business, error) {
	var b model.Business
	err := q.db.QueryRow(ctx, findBusinessByOwner, ownerId).Scan(
		&b.Id, &b.Name, &b.Email, &b.Phone, &b.Address, &b.Logo, &b.Description,
		&b.OwnerId, &b.PaymentQrUrl, &b.PaymentInstructions)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Business{}, errs.ErrNotFound
	}
	return b, err
}

const listBusinesses = `
SELECT id, name, email, phone, COALESCE(address, ''), COALESCE(logo, ''), COALESCE(description, ''),
       owner_id, COALESCE(payment_qr_url, ''), COALESCE(payment_instructions, '')
FROM businesses ORDER BY name
`

func (q *Queries) ListBusinesses(ctx context.Context) ([]model.Business, error) {
	rows, err := q.db.Query(ctx, listBusinesses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	businesses := make([]model.Business, 0)
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.Id, &b.Name, &b.Email, &b.Phone, &b.Address, &b.Logo, &b.Description,
			&b.OwnerId, &b.PaymentQrUrl, &b.PaymentInstructions); err != nil {
			return nil, err
		}
		businesses = append(businesses, b)
	}
	return businesses, rows.Err()
}

const updateBusiness = `
UPDATE businesses
SET name = $2, phone = $3, address = $4, logo = $5, description = $6, payment_qr_url = $7, payment_instructions = $8
WHERE id = $1
`

type UpdateBusinessParams struct {
	Id                  string
	Name                string
	Phone               string
	Address             string
	Logo                string
	Description         string
	PaymentQrUrl        string
	PaymentInstructions string
}

func (q *Queries) UpdateBusiness(ctx context.Context, arg UpdateBusinessParams) (int64, error) {
	cmd, err := q.db.Exec(ctx, updateBusiness,
		arg.Id, arg.Name, arg.Phone, arg.Address, arg.Logo, arg.Description, arg.PaymentQrUrl, arg.PaymentInstructions)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
