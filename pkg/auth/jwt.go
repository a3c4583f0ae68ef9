package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
	ErrUnknownRole  = errors.New("token carries an unknown role")
)

type staffClaims struct {
	jwt.RegisteredClaims
	Name    string     `json:"name,omitempty"`
	Role    string     `json:"role"`
	StaffID *uuid.UUID `json:"staff_id,omitempty"`
}

// JWTManager verifies bearer tokens issued by the hospital identity provider
// and mints service tokens for operators.
type JWTManager struct {
	cfg config.JWTConfig
	now func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{cfg: cfg, now: time.Now}
}

// Issue signs a token for claims valid for ttl. A zero ttl uses the configured default.
func (m *JWTManager) Issue(claims *domain.Claims, ttl time.Duration) (string, time.Time, error) {
	if !claims.Role.IsValid() {
		return "", time.Time{}, ErrUnknownRole
	}
	if ttl <= 0 {
		ttl = m.cfg.AccessTokenTTL
	}
	now := m.now()
	expiresAt := now.Add(ttl)

	jwtClaims := staffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			// 10 seconds of clock skew tolerance
			NotBefore: jwt.NewNumericDate(now.Add(-10 * time.Second)),
			ID:        uuid.NewString(),
		},
		Name:    claims.Name,
		Role:    string(claims.Role),
		StaffID: claims.StaffID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)
	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate parses a bearer token and returns the identity it carries.
func (m *JWTManager) Validate(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&staffClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.cfg.Secret), nil
		},
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*staffClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return nil, ErrUnknownRole
	}

	return &domain.Claims{
		UserID:  userID,
		Name:    claims.Name,
		Role:    role,
		StaffID: claims.StaffID,
	}, nil
}
