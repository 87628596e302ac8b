package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/poyrazK/licenseHub/internal/core/domain"
	"github.com/poyrazK/licenseHub/internal/core/ports"
)

// AuthConfig holds the single administrator identity and token parameters.
// The password is only ever configured as a bcrypt hash.
type AuthConfig struct {
	AdminUsername     string
	AdminPasswordHash string
	Secret            []byte
	TokenTTL          time.Duration
	Now               func() time.Time
}

type authService struct {
	cfg AuthConfig
}

// NewAuthService returns a Credentials implementation backed by the
// configured admin account and an HMAC-signed JWT.
func NewAuthService(cfg AuthConfig) ports.Credentials {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &authService{cfg: cfg}
}

func (a *authService) Login(ctx context.Context, username, password string) (string, error) {
	// Uniform failure regardless of which credential was wrong.
	if username != a.cfg.AdminUsername || password == "" {
		return "", domain.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.AdminPasswordHash), []byte(password)); err != nil {
		return "", domain.ErrBadCredentials
	}

	now := a.cfg.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (a *authService) Verify(token string) (*domain.Principal, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return a.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(a.cfg.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &domain.Principal{Username: claims.Subject, ExpiresAt: expiresAt}, nil
}
