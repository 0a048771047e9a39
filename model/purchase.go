package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchasePendingPayment   PurchaseStatus = "pending_payment"
	PurchasePaymentSubmitted PurchaseStatus = "payment_submitted"
	PurchasePaymentVerified  PurchaseStatus = "payment_verified"
	PurchaseCompleted        PurchaseStatus = "completed"
	PurchaseCancelled        PurchaseStatus = "cancelled"
)

func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseCompleted || s == PurchaseCancelled
}

// CanTransition encodes the purchase lifecycle. Writes are additionally
// fenced by guarded UPDATEs on the current status, so a stale caller loses.
func (s PurchaseStatus) CanTransition(to PurchaseStatus) bool {
	switch {
	case s.Terminal():
		return false
	case to == PurchaseCancelled:
		return true
	case s == PurchasePendingPayment && to == PurchasePaymentSubmitted:
		return true
	case s == PurchasePaymentSubmitted && to == PurchasePaymentVerified:
		return true
	case s == PurchasePaymentVerified && to == PurchaseCompleted:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodQr       PaymentMethod = "qr"
	PaymentMethodExternal PaymentMethod = "external"
)

type Purchase struct {
	Id               string          `json:"id"`
	EventId          string          `json:"event_id"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	CustomerEmail    string          `json:"customer_email,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentProof     string          `json:"payment_proof,omitempty"`
	Status           PurchaseStatus  `json:"status"`
	VerificationCode string          `json:"verification_code"`
	NotifiedVerified bool            `json:"notified_payment_verified"`
	NotifiedReady    bool            `json:"notified_tickets_ready"`
	CreatedAt        time.Time       `json:"created_at"`
}

type CreatePurchaseRequest struct {
	EventId       string              `json:"event_id" validate:"required"`
	CustomerName  string              `json:"customer_name" validate:"required,max=100"`
	CustomerPhone string              `json:"customer_phone" validate:"required,max=30"`
	CustomerEmail string              `json:"customer_email" validate:"omitempty,email"`
	PaymentMethod PaymentMethod       `json:"payment_method" validate:"required,oneof=qr external"`
	PaymentProof  string              `json:"payment_proof" validate:"max=500"`
	Items         []PurchaseItemInput `json:"items" validate:"required,min=1,dive"`
}

type PurchaseItemInput struct {
	SectorId   string     `json:"sector_id" validate:"required"`
	Quantity   int32      `json:"quantity" validate:"required,gt=0"`
	TicketType TicketType `json:"ticket_type" validate:"required,oneof=CLIENTE VIP STAFF"`
}

type CreatePurchaseResponse struct {
	Id               string          `json:"id"`
	Status           PurchaseStatus  `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	VerificationCode string          `json:"verification_code"`
	Tickets          []Ticket        `json:"tickets"`
}

type SubmitProofRequest struct {
	PaymentProof string `json:"payment_proof" validate:"required,max=500"`
}

type RejectPurchaseRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// VerifyPurchaseRequest is an optional body: mark_used admits the whole
// purchase at verification time instead of leaving tickets to the door flow.
type VerifyPurchaseRequest struct {
	MarkUsed bool `json:"mark_used"`
}

// PortalResponse is the only unauthenticated read surface: everything a
// customer can see with just their verification code.
type PortalResponse struct {
	Purchase Purchase `json:"purchase"`
	Tickets  []Ticket `json:"tickets"`
	Event    Event    `json:"event"`
	Business Business `json:"business"`
}
