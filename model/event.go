package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventStatusPending  EventStatus = "pending"
	EventStatusApproved EventStatus = "approved"
	EventStatusRejected EventStatus = "rejected"
)

type PriceType string

const (
	PricePerSeat  PriceType = "per_seat"
	PricePerTable PriceType = "per_table"
)

type SeatMapElementType string

const (
	ElementTable      SeatMapElementType = "table"
	ElementChair      SeatMapElementType = "chair"
	ElementStage      SeatMapElementType = "stage"
	ElementBar        SeatMapElementType = "bar"
	ElementBathroom   SeatMapElementType = "bathroom"
	ElementEntrance   SeatMapElementType = "entrance"
	ElementDecoration SeatMapElementType = "decoration"
	ElementWall       SeatMapElementType = "wall"
)

type Event struct {
	Id              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Date            string      `json:"date"`
	Time            string      `json:"time"`
	Location        string      `json:"location"`
	City            string      `json:"city"`
	Image           string      `json:"image,omitempty"`
	BusinessId      string      `json:"business_id"`
	BusinessName    string      `json:"business_name"`
	MaxCapacity     int32       `json:"max_capacity,omitempty"`
	CurrentSales    int32       `json:"current_sales"`
	IsActive        bool        `json:"is_active"`
	Status          EventStatus `json:"status"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`

	Sectors               []EventSector          `json:"sectors"`
	Combos                []EventCombo           `json:"combos"`
	ReservationConditions []ReservationCondition `json:"reservation_conditions"`
	SeatMapElements       []SeatMapElement       `json:"seat_map_elements"`
}

// PubliclyVisible is the single listing invariant: only approved, active
// events reach unauthenticated surfaces.
func (e Event) PubliclyVisible() bool {
	return e.Status == EventStatusApproved && e.IsActive
}

type EventSector struct {
	Id        string          `json:"id"`
	EventId   string          `json:"event_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Capacity  int32           `json:"capacity"`
	PriceType PriceType       `json:"price_type"`
	BasePrice decimal.Decimal `json:"base_price"`
	IsActive  bool            `json:"is_active"`
}

type EventCombo struct {
	Id          string          `json:"id"`
	EventId     string          `json:"event_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

type ReservationCondition struct {
	Id      string `json:"id"`
	EventId string `json:"event_id"`
	Text    string `json:"text"`
}

type SeatMapElement struct {
	Id           string             `json:"id"`
	Type         SeatMapElementType `json:"type"`
	X            float64            `json:"x"`
	Y            float64            `json:"y"`
	Width        float64            `json:"width"`
	Height       float64            `json:"height"`
	Rotation     float64            `json:"rotation"`
	SectorId     string             `json:"sector_id,omitempty"`
	Capacity     int32              `json:"capacity,omitempty"`
	Label        string             `json:"label,omitempty"`
	IsReservable bool               `json:"is_reservable"`
	IsOccupied   bool               `json:"is_occupied"`
	Color        string             `json:"color,omitempty"`
}

type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,max=150"`
	Description string `json:"description" validate:"required,max=5000"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
	Location    string `json:"location" validate:"required,max=255"`
	City        string `json:"city" validate:"required,max=100"`
	Image       string `json:"image" validate:"max=500"`
	MaxCapacity int32  `json:"max_capacity" validate:"gte=0"`

	Sectors               []CreateSectorRequest  `json:"sectors" validate:"required,min=1,dive"`
	Combos                []CreateComboRequest   `json:"combos" validate:"dive"`
	ReservationConditions []string               `json:"reservation_conditions" validate:"dive,max=500"`
	SeatMapElements       []SeatMapElement       `json:"seat_map_elements"`
	CroquisTemplateId     string                 `json:"croquis_template_id"`
}

type CreateSectorRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	Color     string          `json:"color" validate:"required,max=20"`
	Capacity  int32           `json:"capacity" validate:"required,gt=0"`
	PriceType PriceType       `json:"price_type" validate:"required,oneof=per_seat per_table"`
	BasePrice decimal.Decimal `json:"base_price" validate:"required"`
}

type CreateComboRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=500"`
	Price       decimal.Decimal `json:"price" validate:"required"`
}

type RejectEventRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// ApprovalResponse carries the business contact so the caller can compose an
// outbound notification; the core never talks to a messaging provider.
type ApprovalResponse struct {
	EventId       string      `json:"event_id"`
	Status        EventStatus `json:"status"`
	BusinessPhone string      `json:"business_phone"`
}

type TicketStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Validated int64 `json:"validated"`
	Used      int64 `json:"used"`
	Cancelled int64 `json:"cancelled"`
}
