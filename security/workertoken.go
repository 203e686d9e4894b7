package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleWorker = "worker"
	RoleAdmin  = "admin"

	issuer = "crewtrack"
)

type WorkerIdentity struct {
	WorkerID string
	Name     string
	Role     string
}

type WorkerClaims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CreateWorkerToken signs an HS256 token whose subject is the worker id.
func CreateWorkerToken(identity *WorkerIdentity, secret []byte, expiresIn time.Duration) (string, error) {
	if identity == nil || identity.WorkerID == "" {
		return "", errors.New("worker id is required")
	}
	if len(secret) == 0 {
		return "", errors.New("signing secret is empty")
	}

	role := identity.Role
	if role == "" {
		role = RoleWorker
	}

	now := time.Now()
	claims := WorkerClaims{
		Name: identity.Name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.WorkerID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseWorkerToken validates signature and expiry and returns the identity.
func ParseWorkerToken(tokenStr string, secret []byte) (*WorkerIdentity, error) {
	var claims WorkerClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid worker token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid worker token: missing subject")
	}

	return &WorkerIdentity{
		WorkerID: claims.Subject,
		Name:     claims.Name,
		Role:     claims.Role,
	}, nil
}

func (w *WorkerIdentity) IsAdmin() bool {
	return w != nil && w.Role == RoleAdmin
}
