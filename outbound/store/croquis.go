package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ticketera/common/errs"
	"ticketera/model"
)

// Croquis layouts are documents, not relations: elements and sectors live in
// JSONB columns and only become rows when instantiated into an event.

const insertCroquisTemplate = `
INSERT INTO croquis_templates (id, name, description, business_id, elements, sectors, canvas_width, canvas_height, background_image, is_default)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type SaveCroquisTemplateParams struct {
	Id              string
	Name            string
	Description     string
	BusinessId      string
	Elements        []model.SeatMapElement
	Sectors         []model.EventSector
	CanvasWidth     int32
	CanvasHeight    int32
	BackgroundImage string
	IsDefault       bool
}

func (q *Queries) InsertCroquisTemplate(ctx context.Context, arg SaveCroquisTemplateParams) error {
	_, err := q.db.Exec(ctx, insertCroquisTemplate,
		arg.Id, arg.Name, arg.Description, arg.BusinessId, arg.Elements, arg.Sectors,
		arg.CanvasWidth, arg.CanvasHeight, arg.BackgroundImage, arg.IsDefault)
	return err
}

const updateCroquisTemplate = `
UPDATE croquis_templates
SET name = $3, description = $4, elements = $5, sectors = $6, canvas_width = $7, canvas_height = $8, background_image = $9, is_default = $10
WHERE id = $1 AND business_id = $2
`

func (q *Queries) UpdateCroquisTemplate(ctx context.Context, arg SaveCroquisTemplateParams) (int64, error) {
	cmd, err := q.db.Exec(ctx, updateCroquisTemplate,
		arg.Id, arg.BusinessId, arg.Name, arg.Description, arg.Elements, arg.Sectors,
		arg.CanvasWidth, arg.CanvasHeight, arg.BackgroundImage, arg.IsDefault)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const croquisColumns = `
id, name, COALESCE(description, ''), business_id, elements, sectors, canvas_width, canvas_height,
COALESCE(background_image, ''), is_default, usage_count, created_at
`

func scanCroquisTemplate(row pgx.Row) (model.CroquisTemplate, error) {
	var t model.CroquisTemplate
	err := row.Scan(&t.Id, &t.Name, &t.Description, &t.BusinessId, &t.Elements, &t.Sectors,
		&t.CanvasSize.Width, &t.CanvasSize.Height, &t.BackgroundImage, &t.IsDefault, &t.UsageCount, &t.CreatedAt)
	return t, err
}

const findCroquisTemplateById = `
SELECT ` + croquisColumns + ` FROM croquis_templates WHERE id = $1
`

func (q *Queries) FindCroquisTemplateById(ctx context.Context, id string) (model.CroquisTemplate, error) {
	t, err := scanCroquisTemplate(q.db.QueryRow(ctx, findCroquisTemplateById, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CroquisTemplate{}, errs.ErrNotFound
	}
	return t, err
}

const listCroquisTemplatesByBusiness = `
SELECT ` + croquisColumns + ` FROM croquis_templates WHERE business_id = $1 ORDER BY created_at
`

func (q *Queries) ListCroquisTemplatesByBusiness(ctx context.Context, businessId string) ([]model.CroquisTemplate, error) {
	rows, err := q.db.Query(ctx, listCroquisTemplatesByBusiness, businessId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]model.CroquisTemplate, 0)
	for rows.Next() {
		t, err := scanCroquisTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

const deleteCroquisTemplate = `
DELETE FROM croquis_templates WHERE id = $1 AND business_id = $2
`

func (q *Queries) DeleteCroquisTemplate(ctx context.Context, id, businessId string) (int64, error) {
	cmd, err := q.db.Exec(ctx, deleteCroquisTemplate, id, businessId)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const incrementCroquisUsage = `
UPDATE croquis_templates SET usage_count = usage_count + 1 WHERE id = $1
`

func (q *Queries) IncrementCroquisUsage(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, incrementCroquisUsage, id)
	return err
}
