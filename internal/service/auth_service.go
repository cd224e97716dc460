package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/config"
)

// Claims are the bearer-token claims issued by the identity provider.
// The subject is the stable user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity is a verified caller.
type Identity struct {
	UserID string
	Email  string
}

// AuthService verifies identity-provider bearer tokens.
type AuthService struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		expiry: cfg.JWTExpiry,
	}
}

// ValidateToken parses and verifies a token. Every failure wraps ErrUnauthenticated.
func (s *AuthService) ValidateToken(tokenStr string) (*Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthenticated)
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// IssueToken signs a token for userID. Used by development tooling; production
// tokens come from the identity provider.
func (s *AuthService) IssueToken(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty user id")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
