package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketValidated TicketStatus = "validated"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

func (s TicketStatus) Terminal() bool {
	return s == TicketUsed || s == TicketCancelled
}

// CanTransition encodes the ticket lifecycle. The bulk payment-verification
// path drives pending→validated→used through the same two transitions the
// door flow uses, there is no direct pending→used edge.
func (s TicketStatus) CanTransition(to TicketStatus) bool {
	switch {
	case s.Terminal():
		return false
	case to == TicketCancelled:
		return true
	case s == TicketPending && to == TicketValidated:
		return true
	case s == TicketValidated && to == TicketUsed:
		return true
	}
	return false
}

type TicketType string

const (
	TicketTypeCliente TicketType = "CLIENTE"
	TicketTypeVip     TicketType = "VIP"
	TicketTypeStaff   TicketType = "STAFF"
)

type Ticket struct {
	Id               string          `json:"id"`
	PurchaseId       string          `json:"purchase_id"`
	EventId          string          `json:"event_id"`
	SectorName       string          `json:"sector_name"`
	SectorColor      string          `json:"sector_color"`
	Quantity         int32           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	TicketType       TicketType      `json:"ticket_type"`
	VerificationCode string          `json:"verification_code"`
	QrCode           string          `json:"qr_code"`
	Status           TicketStatus    `json:"status"`
	ValidatedBy      string          `json:"validated_by,omitempty"`
	ValidatedAt      *time.Time      `json:"validated_at,omitempty"`
}

type ValidateTicketRequest struct {
	VerificationCode string `json:"verification_code" validate:"required,len=8"`
	EventId          string `json:"event_id" validate:"required"`
}

type UseTicketRequest struct {
	TicketId string `json:"ticket_id" validate:"required"`
	EventId  string `json:"event_id" validate:"required"`
}
