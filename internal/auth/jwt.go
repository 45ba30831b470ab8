// Package auth issues and validates the admin tokens that protect the
// operational endpoints.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminTokenExpiry is how long admin tokens are valid. Admin tokens
// are issued out of band (a CLI or a secret manager), so a longer
// expiry than a user session is acceptable.
const AdminTokenExpiry = 12 * time.Hour

// Predefined token errors.
var (
	ErrInvalidToken = errors.New("invalid admin token")
	ErrTokenExpired = errors.New("admin token has expired")
)

// AdminClaims represents the claims in an admin token.
type AdminClaims struct {
	jwt.RegisteredClaims

	// Role is always "admin" for tokens issued by this service.
	Role string `json:"role"`
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim for tokens.
	Issuer string

	// Audience is the audience claim for tokens.
	Audience string

	// TokenExpiry overrides AdminTokenExpiry when positive.
	TokenExpiry time.Duration
}

// JWTConfigFromEnv creates a JWTConfig from environment variables.
func JWTConfigFromEnv() JWTConfig {
	return JWTConfig{
		SigningKey: os.Getenv("ADMIN_JWT_SIGNING_KEY"),
		Issuer:     getEnvOrDefault("ADMIN_JWT_ISSUER", "https://api.aqisense.dev"),
		Audience:   getEnvOrDefault("ADMIN_JWT_AUDIENCE", "aqisense-admin"),
	}
}

// JWTService signs and validates admin tokens.
type JWTService struct {
	signingKey  []byte
	issuer      string
	audience    string
	tokenExpiry time.Duration
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	// A negative expiry is kept as-is so tests can mint already-expired tokens.
	expiry := cfg.TokenExpiry
	if expiry == 0 {
		expiry = AdminTokenExpiry
	}
	return &JWTService{
		signingKey:  []byte(cfg.SigningKey),
		issuer:      cfg.Issuer,
		audience:    cfg.Audience,
		tokenExpiry: expiry,
	}
}

// GenerateAdminToken creates a new admin token for the given subject,
// typically an operator name or automation identity.
func (s *JWTService) GenerateAdminToken(subject string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenExpiry)

	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		Role: "admin",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing admin token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAdminToken validates a token and returns its claims.
func (s *JWTService) ValidateAdminToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != "admin" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
