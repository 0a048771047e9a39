package model

type Business struct {
	Id                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Address             string `json:"address,omitempty"`
	Logo                string `json:"logo,omitempty"`
	Description         string `json:"description,omitempty"`
	OwnerId             string `json:"owner_id"`
	PaymentQrUrl        string `json:"payment_qr_url,omitempty"`
	PaymentInstructions string `json:"payment_instructions,omitempty"`
}

type CreateBusinessRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,max=30"`
	Address     string `json:"address" validate:"max=255"`
	Description string `json:"description" validate:"max=2000"`

	OwnerName     string `json:"owner_name" validate:"required,max=100"`
	OwnerEmail    string `json:"owner_email" validate:"required,email"`
	OwnerPassword string `json:"owner_password" validate:"required,min=8,max=72"`
}

type UpdateBusinessRequest struct {
	Name                string `json:"name" validate:"required,max=150"`
	Phone               string `json:"phone" validate:"required,max=30"`
	Address             string `json:"address" validate:"max=255"`
	Logo                string `json:"logo" validate:"max=500"`
	Description         string `json:"description" validate:"max=2000"`
	PaymentQrUrl        string `json:"payment_qr_url" validate:"max=500"`
	PaymentInstructions string `json:"payment_instructions" validate:"max=2000"`
}
