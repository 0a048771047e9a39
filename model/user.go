package model

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBusiness Role = "business"
	RoleCustomer Role = "customer"
	RolePorteria Role = "porteria"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBusiness, RoleCustomer, RolePorteria:
		return true
	}
	return false
}

type User struct {
	Id            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	BusinessId    string    `json:"business_id,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	AllowedEvents []string  `json:"allowed_events,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CanAccessEvent reports whether a porteria account may act on the given
// event. An empty allow-list means every event of the owning business.
func (u User) CanAccessEvent(eventId string) bool {
	if u.Role != RolePorteria || len(u.AllowedEvents) == 0 {
		return true
	}
	for _, id := range u.AllowedEvents {
		if id == eventId {
			return true
		}
	}
	return false
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type CreatePorteriaRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"required,min=8,max=72"`
	AllowedEvents []string `json:"allowed_events"`
}
