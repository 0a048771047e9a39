package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ticketera/common/errs"
	"ticketera/model"
)

const insertUser = `
INSERT INTO users (id, email, password_hash, name, role, business_id, created_by, allowed_events)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
`

type InsertUserParams struct {
	Id            string
	Email         string
	PasswordHash  string
	Name          string
	Role          model.Role
	BusinessId    string
	CreatedBy     string
	AllowedEvents []string
}

func (q *Queries) InsertUser(ctx context.Context, arg InsertUserParams) error {
	_, err := q.db.Exec(ctx, insertUser,
		arg.Id, arg.Email, arg.PasswordHash, arg.Name, arg.Role, arg.BusinessId, arg.CreatedBy, arg.AllowedEvents)
	return err
}

const findUserByEmail = `
SELECT id, email, password_hash, name, role, COALESCE(business_id, ''), COALESCE(created_by, ''), COALESCE(allowed_events, '{}'), created_at
FROM users WHERE email = $1
`

func (q *Queries) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := q.db.QueryRow(ctx, findUserByEmail, email).Scan(
		&u.Id, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.BusinessId, &u.CreatedBy, &u.AllowedEvents, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, errs.ErrNotFound
	}
	return u, err
}

const findUserById = `
SELECT id, email, password_hash, name, role, COALESCE(business_id, ''), COALESCE(created_by, ''), COALESCE(allowed_events, '{}'), created_at
FROM users WHERE id = $1
`

func (q *Queries) FindUserById(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := q.db.QueryRow(ctx, findUserById, id).Scan(
		&u.Id, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.BusinessId, &u.CreatedBy, &u.AllowedEvents, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, errs.ErrNotFound
	}
	return u, err
}

const userEmailExists = `
SELECT EXISTS (SELECT 1 FROM users WHERE email = $1) AS "exists"
`

func (q *Queries) UserEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, userEmailExists, email).Scan(&exists)
	return exists, err
}

const listPorteriaByBusiness = `
SELECT id, email, name, COALESCE(allowed_events, '{}'), created_at
FROM users WHERE role = 'porteria' AND business_id = $1
ORDER BY created_at
`

func (q *Queries) ListPorteriaByBusiness(ctx context.Context, businessId string) ([]model.User, error) {
	rows, err := q.db.Query(ctx, listPorteriaByBusiness, businessId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u := model.User{Role: model.RolePorteria, BusinessId: businessId}
		if err := rows.Scan(&u.Id, &u.Email, &u.Name, &u.AllowedEvents, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const deletePorteriaUser = `
DELETE FROM users WHERE id = $1 AND role = 'porteria' AND business_id = $2
`

// DeletePorteriaUser hard-deletes a door-staff account. Only porteria rows
// owned by the given business match; other roles are never hard-deleted.
func (q *Queries) DeletePorteriaUser(ctx context.Context, id, businessId string) (int64, error) {
	cmd, err := q.db.Exec(ctx, deletePorteriaUser, id, businessId)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const updatePorteriaAllowedEvents = `
UPDATE users SET allowed_events = $3
WHERE id = $1 AND role = 'porteria' AND business_id = $2
`

func (q *Queries) UpdatePorteriaAllowedEvents(ctx context.Context, id, businessId string, allowedEvents []string) (int64, error) {
	cmd, err := q.db.Exec(ctx, updatePorteriaAllowedEvents, id, businessId, allowedEvents)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
