package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ticketera/model"
)

// Claims carries everything the middleware needs so role and ownership
// checks do not hit the database on every request.
type Claims struct {
	jwt.RegisteredClaims
	UserId        string     `json:"user_id"`
	Role          model.Role `json:"role"`
	BusinessId    string     `json:"business_id,omitempty"`
	AllowedEvents []string   `json:"allowed_events,omitempty"`
}

func (c Claims) CanAccessEvent(eventId string) bool {
	if c.Role != model.RolePorteria || len(c.AllowedEvents) == 0 {
		return true
	}
	for _, id := range c.AllowedEvents {
		if id == eventId {
			return true
		}
	}
	return false
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func GenerateToken(secret string, user model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserId:        user.Id,
		Role:          user.Role,
		BusinessId:    user.BusinessId,
		AllowedEvents: user.AllowedEvents,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("invalid claims")
	}

	return *claims, nil
}
