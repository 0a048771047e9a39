package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"ticketera/common/errs"
	"ticketera/model"
)

const insertEvent = `
INSERT INTO events (id, title, description, date, time, location, city, image, business_id, business_name, max_capacity, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending')
`

type InsertEventParams struct {
	Id           string
	Title        string
	Description  string
	Date         string
	Time         string
	Location     string
	City         string
	Image        string
	BusinessId   string
	BusinessName string
	MaxCapacity  int32
}

func (q *Queries) InsertEvent(ctx context.Context, arg InsertEventParams) error {
	_, err := q.db.Exec(ctx, insertEvent,
		arg.Id, arg.Title, arg.Description, arg.Date, arg.Time, arg.Location, arg.City,
		arg.Image, arg.BusinessId, arg.BusinessName, arg.MaxCapacity)
	return err
}

const insertEventSector = `
INSERT INTO event_sectors (id, event_id, name, color, capacity, price_type, base_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertEventSectorParams struct {
	Id        string
	EventId   string
	Name      string
	Color     string
	Capacity  int32
	PriceType model.PriceType
	BasePrice decimal.Decimal
}

func (q *Queries) InsertEventSector(ctx context.Context, arg InsertEventSectorParams) error {
	_, err := q.db.Exec(ctx, insertEventSector,
		arg.Id, arg.EventId, arg.Name, arg.Color, arg.Capacity, arg.PriceType, arg.BasePrice)
	return err
}

const insertEventCombo = `
INSERT INTO event_combos (id, event_id, name, description, price)
VALUES ($1, $2, $3, $4, $5)
`

type InsertEventComboParams struct {
	Id          string
	EventId     string
	Name        string
	Description string
	Price       decimal.Decimal
}

func (q *Queries) InsertEventCombo(ctx context.Context, arg InsertEventComboParams) error {
	_, err := q.db.Exec(ctx, insertEventCombo, arg.Id, arg.EventId, arg.Name, arg.Description, arg.Price)
	return err
}

const insertReservationCondition = `
INSERT INTO reservation_conditions (id, event_id, text)
VALUES ($1, $2, $3)
`

func (q *Queries) InsertReservationCondition(ctx context.Context, id, eventId, text string) error {
	_, err := q.db.Exec(ctx, insertReservationCondition, id, eventId, text)
	return err
}

const insertSeatMapElement = `
INSERT INTO seat_map_elements (id, event_id, type, x, y, width, height, rotation, sector_id, capacity, label, is_reservable, is_occupied, color)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14)
`

func (q *Queries) InsertSeatMapElement(ctx context.Context, eventId string, el model.SeatMapElement) error {
	_, err := q.db.Exec(ctx, insertSeatMapElement,
		el.Id, eventId, el.Type, el.X, el.Y, el.Width, el.Height, el.Rotation,
		el.SectorId, el.Capacity, el.Label, el.IsReservable, el.IsOccupied, el.Color)
	return err
}

const eventColumns = `
id, title, description, date, time, location, city, COALESCE(image, ''), business_id, business_name,
COALESCE(max_capacity, 0), current_sales, is_active, status, COALESCE(rejection_reason, ''), created_at, updated_at
`

func scanEvent(row pgx.Row) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.Id, &e.Title, &e.Description, &e.Date, &e.Time, &e.Location, &e.City, &e.Image,
		&e.BusinessId, &e.BusinessName, &e.MaxCapacity, &e.CurrentSales, &e.IsActive, &e.Status,
		&e.RejectionReason, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const findEventById = `
SELECT ` + eventColumns + ` FROM events WHERE id = $1
`

func (q *Queries) FindEventById(ctx context.Context, id string) (model.Event, error) {
	e, err := scanEvent(q.db.QueryRow(ctx, findEventById, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, errs.ErrNotFound
	}
	return e, err
}

const listPublicEvents = `
SELECT ` + eventColumns + ` FROM events
WHERE status = 'approved' AND is_active = TRUE
ORDER BY date, time
`

// ListPublicEvents is the unauthenticated listing: the approved+active
// invariant is enforced here, not by filtering in memory.
func (q *Queries) ListPublicEvents(ctx context.Context) ([]model.Event, error) {
	return q.listEvents(ctx, listPublicEvents)
}

const listEventsByBusiness = `
SELECT ` + eventColumns + ` FROM events
WHERE business_id = $1 AND is_active = TRUE
ORDER BY date, time
`

func (q *Queries) ListEventsByBusiness(ctx context.Context, businessId string) ([]model.Event, error) {
	return q.listEvents(ctx, listEventsByBusiness, businessId)
}

const listPendingEvents = `
SELECT ` + eventColumns + ` FROM events
WHERE status = 'pending' AND is_active = TRUE
ORDER BY created_at
`

func (q *Queries) ListPendingEvents(ctx context.Context) ([]model.Event, error) {
	return q.listEvents(ctx, listPendingEvents)
}

func (q *Queries) listEvents(ctx context.Context, sql string, args ...any) ([]model.Event, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const updateEvent = `
UPDATE events
SET title = $3, description = $4, date = $5, time = $6, location = $7, city = $8, image = $9, max_capacity = $10, updated_at = NOW()
WHERE id = $1 AND business_id = $2 AND is_active = TRUE
`

type UpdateEventParams struct {
	Id          string
	BusinessId  string
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	City        string
	Image       string
	MaxCapacity int32
}

// UpdateEvent edits content only. Approval status is never reset here; a
// rejected event goes back to pending through ResubmitEvent alone.
func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) (int64, error) {
	cmd, err := q.db.Exec(ctx, updateEvent,
		arg.Id, arg.BusinessId, arg.Title, arg.Description, arg.Date, arg.Time,
		arg.Location, arg.City, arg.Image, arg.MaxCapacity)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const softDeleteEvent = `
UPDATE events SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND business_id = $2 AND is_active = TRUE
`

func (q *Queries) SoftDeleteEvent(ctx context.Context, id, businessId string) (int64, error) {
	cmd, err := q.db.Exec(ctx, softDeleteEvent, id, businessId)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const approveEvent = `
UPDATE events SET status = 'approved', rejection_reason = NULL, updated_at = NOW()
WHERE id = $1 AND status = 'pending'
`

func (q *Queries) ApproveEvent(ctx context.Context, id string) (int64, error) {
	cmd, err := q.db.Exec(ctx, approveEvent, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const rejectEvent = `
UPDATE events SET status = 'rejected', rejection_reason = $2, updated_at = NOW()
WHERE id = $1 AND status = 'pending'
`

func (q *Queries) RejectEvent(ctx context.Context, id, reason string) (int64, error) {
	cmd, err := q.db.Exec(ctx, rejectEvent, id, reason)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const resubmitEvent = `
UPDATE events SET status = 'pending', rejection_reason = NULL, updated_at = NOW()
WHERE id = $1 AND business_id = $2 AND status = 'rejected'
`

func (q *Queries) ResubmitEvent(ctx context.Context, id, businessId string) (int64, error) {
	cmd, err := q.db.Exec(ctx, resubmitEvent, id, businessId)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

const addEventSales = `
UPDATE events SET current_sales = current_sales + $2, updated_at = NOW()
WHERE id = $1
`

// AddEventSales moves the sales counter by delta. Cancellation paths pass a
// negative delta so cancelled tickets free capacity.
func (q *Queries) AddEventSales(ctx context.Context, id string, delta int32) error {
	_, err := q.db.Exec(ctx, addEventSales, id, delta)
	return err
}

const findSectorsByEvent = `
SELECT id, event_id, name, color, capacity, price_type, base_price, is_active
FROM event_sectors WHERE event_id = $1 ORDER BY name
`

func (q *Queries) FindSectorsByEvent(ctx context.Context, eventId string) ([]model.EventSector, error) {
	rows, err := q.db.Query(ctx, findSectorsByEvent, eventId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sectors := make([]model.EventSector, 0)
	for rows.Next() {
		var s model.EventSector
		if err := rows.Scan(&s.Id, &s.EventId, &s.Name, &s.Color, &s.Capacity, &s.PriceType, &s.BasePrice, &s.IsActive); err != nil {
			return nil, err
		}
		sectors = append(sectors, s)
	}
	return sectors, rows.Err()
}

const findSectorById = `
SELECT id, event_id, name, color, capacity, price_type, base_price, is_active
FROM event_sectors WHERE id = $1
`

func (q *Queries) FindSectorById(ctx context.Context, id string) (model.EventSector, error) {
	var s model.EventSector
	err := q.db.QueryRow(ctx, findSectorById, id).Scan(
		&s.Id, &s.EventId, &s.Name, &s.Color, &s.Capacity, &s.PriceType, &s.BasePrice, &s.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.EventSector{}, errs.ErrNotFound
	}
	return s, err
}

const findCombosByEvent = `
SELECT id, event_id, name, COALESCE(description, ''), price
FROM event_combos WHERE event_id = $1 ORDER BY name
`

func (q *Queries) FindCombosByEvent(ctx context.Context, eventId string) ([]model.EventCombo, error) {
	rows, err := q.db.Query(ctx, findCombosByEvent, eventId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	combos := make([]model.EventCombo, 0)
	for rows.Next() {
		var c model.EventCombo
		if err := rows.Scan(&c.Id, &c.EventId, &c.Name, &c.Description, &c.Price); err != nil {
			return nil, err
		}
		combos = append(combos, c)
	}
	return combos, rows.Err()
}

const findConditionsByEvent = `
SELECT id, event_id, text FROM reservation_conditions WHERE event_id = $1 ORDER BY id
`

func (q *Queries) FindConditionsByEvent(ctx context.Context, eventId string) ([]model.ReservationCondition, error) {
	rows, err := q.db.Query(ctx, findConditionsByEvent, eventId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conditions := make([]model.ReservationCondition, 0)
	for rows.Next() {
		var c model.ReservationCondition
		if err := rows.Scan(&c.Id, &c.EventId, &c.Text); err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return conditions, rows.Err()
}

const findSeatMapByEvent = `
SELECT id, type, x, y, width, height, rotation, COALESCE(sector_id, ''), COALESCE(capacity, 0),
       COALESCE(label, ''), is_reservable, is_occupied, COALESCE(color, '')
FROM seat_map_elements WHERE event_id = $1 ORDER BY id
`

func (q *Queries) FindSeatMapByEvent(ctx context.Context, eventId string) ([]model.SeatMapElement, error) {
	rows, err := q.db.Query(ctx, findSeatMapByEvent, eventId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	elements := make([]model.SeatMapElement, 0)
	for rows.Next() {
		var el model.SeatMapElement
		if err := rows.Scan(&el.Id, &el.Type, &el.X, &el.Y, &el.Width, &el.Height, &el.Rotation,
			&el.SectorId, &el.Capacity, &el.Label, &el.IsReservable, &el.IsOccupied, &el.Color); err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

// HydrateEvent loads the child collections of an event in one place so the
// round-trip shape is identical for detail, portal and business views.
func (q *Queries) HydrateEvent(ctx context.Context, e *model.Event) error {
	var err error
	if e.Sectors, err = q.FindSectorsByEvent(ctx, e.Id); err != nil {
		return err
	}
	if e.Combos, err = q.FindCombosByEvent(ctx, e.Id); err != nil {
		return err
	}
	if e.ReservationConditions, err = q.FindConditionsByEvent(ctx, e.Id); err != nil {
		return err
	}
	if e.SeatMapElements, err = q.FindSeatMapByEvent(ctx, e.Id); err != nil {
		return err
	}
	return nil
}
