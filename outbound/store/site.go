package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ticketera/common/errs"
	"ticketera/model"
)

const listCarouselImages = `
SELECT id, url, COALESCE(caption, ''), position FROM carousel_images ORDER BY position
`

func (q *Queries) ListCarouselImages(ctx context.Context) ([]model.CarouselImage, error) {
	rows, err := q.db.Query(ctx, listCarouselImages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]model.CarouselImage, 0)
	for rows.Next() {
		var img model.CarouselImage
		if err := rows.Scan(&img.Id, &img.Url, &img.Caption, &img.Position); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

const insertCarouselImage = `
INSERT INTO carousel_images (id, url, caption, position)
VALUES ($1, $2, $3, COALESCE((SELECT MAX(position) + 1 FROM carousel_images), 0))
`

func (q *Queries) InsertCarouselImage(ctx context.Context, id, url, caption string) error {
	_, err := q.db.Exec(ctx, insertCarouselImage, id, url, caption)
	return err
}

const deleteCarouselImage = `
DELETE FROM carousel_images WHERE id = $1
`

func (q *Queries) DeleteCarouselImage(ctx context.Context, id string) (int64, error) {
	cmd, err := q.db.Exec(ctx, deleteCarouselImage, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const getSiteConfig = `
SELECT site_name, contact_email, contact_phone, COALESCE(about_text, ''), COALESCE(footer_text, '')
FROM site_config WHERE id = 1
`

func (q *Queries) GetSiteConfig(ctx context.Context) (model.SiteConfig, error) {
	var c model.SiteConfig
	err := q.db.QueryRow(ctx, getSiteConfig).Scan(&c.SiteName, &c.ContactEmail, &c.ContactPhone, &c.AboutText, &c.FooterText)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SiteConfig{}, errs.ErrNotFound
	}
	return c, err
}

const upsertSiteConfig = `
INSERT INTO site_config (id, site_name, contact_email, contact_phone, about_text, footer_text)
VALUES (1, $1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET site_name = EXCLUDED.site_name, contact_email = EXCLUDED.contact_email,
    contact_phone = EXCLUDED.contact_phone, about_text = EXCLUDED.about_text, footer_text = EXCLUDED.footer_text
`

func (q *Queries) UpsertSiteConfig(ctx context.Context, c model.SiteConfig) error {
	_, err := q.db.Exec(ctx, upsertSiteConfig, c.SiteName, c.ContactEmail, c.ContactPhone, c.AboutText, c.FooterText)
	return err
}
