package model

type PurchaseCreatedEventMessage struct {
	Id               string `json:"id"`
	EventId          string `json:"event_id"`
	EventTitle       string `json:"event_title"`
	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email"`
	TotalAmount      string `json:"total_amount"`
	VerificationCode string `json:"verification_code"`
}

type VerifyPurchaseEventMessage struct {
	Id         string `json:"id"`
	VerifiedBy string `json:"verified_by"`
	MarkUsed   bool   `json:"mark_used"`
}

type SendNotificationEventMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
