package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"entity-audit/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MaxNameLength bounds the display-name claim. The name ends up verbatim in
// audit descriptions, so oversized values are refused at issue and verify.
const MaxNameLength = 120

const clockSkew = 30 * time.Second

var (
	ErrTokenTypeMismatch = errors.New("auth: token type mismatch")
	ErrMissingSubject    = errors.New("auth: user_id missing")
	ErrMissingRole       = errors.New("auth: role missing in access token")
	ErrInvalidName       = errors.New("auth: invalid name claim")
)

// Manager issues and verifies HS256 token pairs.
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IssuePair signs an access token carrying the actor identity and a refresh
// token carrying only the user id.
func (m *Manager) IssuePair(now time.Time, userID, name, role string) (TokenPair, error) {
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, ErrMissingSubject
	}
	if role == "" {
		return TokenPair{}, ErrMissingRole
	}
	name = strings.TrimSpace(name)
	if err := validName(name); err != nil {
		return TokenPair{}, err
	}

	access, err := m.sign(Claims{
		RegisteredClaims: m.registered(now, m.accessTTL),
		UserID:           userID,
		Name:             name,
		Role:             role,
		TokenType:        TokenTypeAccess,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(Claims{
		RegisteredClaims: m.registered(now, m.refreshTTL),
		UserID:           userID,
		TokenType:        TokenTypeRefresh,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify parses tokenString, validates time, issuer and audience claims at
// now, and checks the token is of the expected type. Expiry failures wrap
// jwt.ErrTokenExpired.
func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims Claims
	if _, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return Claims{}, err
	}

	switch {
	case claims.TokenType != expected:
		return Claims{}, ErrTokenTypeMismatch
	case claims.UserID == "":
		return Claims{}, ErrMissingSubject
	case expected == TokenTypeAccess && claims.Role == "":
		return Claims{}, ErrMissingRole
	}
	if err := validName(claims.Name); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (m *Manager) registered(now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if m.audience != "" {
		rc.Audience = jwt.ClaimStrings{m.audience}
	}
	return rc
}

func (m *Manager) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// validName accepts an empty name; otherwise it must be valid UTF-8, free of
// control characters and at most MaxNameLength runes.
func validName(name string) error {
	if name == "" {
		return nil
	}
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > MaxNameLength {
		return ErrInvalidName
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return ErrInvalidName
		}
	}
	return nil
}
