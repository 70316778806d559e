package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines what is inside the token (The "ID Card")
type Claims struct {
	OwnerID uint   `json:"owner_id"`
	StoreID uint   `json:"store_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and checks tokens. The secret comes from config, not from a
// package variable, so tests can run with their own.
type Manager struct {
	key []byte
	ttl time.Duration
}

func NewManager(secret string) *Manager {
	return &Manager{key: []byte(secret), ttl: 24 * time.Hour}
}

// GenerateToken creates a signed JWT for a store owner
func (m *Manager) GenerateToken(ownerID, storeID uint, role string) (string, error) {
	claims := &Claims{
		OwnerID: ownerID,
		StoreID: storeID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// ValidateToken checks if a token is fake or expired
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
