package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

const (
	tokenIssuer   = "lingualance-api"
	tokenAudience = "lingualance"
	clockSkew     = 30 * time.Second
)

// Claims is what a verified access token tells us about the caller. Role is a
// hint for routing only; privileged operations re-read the user row.
type Claims struct {
	TokenID   string
	UserID    uuid.UUID
	Email     string
	Role      domain.Role
	ExpiresAt time.Time
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

func GenerateToken(user *domain.User, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: user.Email,
		Role:  string(user.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(tokenIssuer),
	jwt.WithAudience(tokenAudience),
	jwt.WithExpirationRequired(),
	jwt.WithLeeway(clockSkew),
)

// ValidateToken verifies signature, issuer, audience and expiry. Failures wrap
// the jwt package's sentinel errors so callers can tell expiry apart.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	var ac accessClaims
	_, err := parser.ParseWithClaims(tokenString, &ac, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	userID, err := uuid.Parse(ac.Subject)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: subject: %w", jwt.ErrTokenInvalidSubject)
	}

	role := domain.Role(ac.Role)
	if !role.IsValid() {
		return nil, fmt.Errorf("ValidateToken: %w", domain.ErrInvalidRole)
	}

	return &Claims{
		TokenID:   ac.ID,
		UserID:    userID,
		Email:     ac.Email,
		Role:      role,
		ExpiresAt: ac.ExpiresAt.Time,
	}, nil
}
