package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"piggybank/internal/models"
)

const tokenIssuer = "piggybank"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed payload of a session token
type Claims struct {
	Kind     models.PrincipalKind `json:"kind"`
	Role     models.Role          `json:"role,omitempty"`
	FamilyID int64                `json:"family_id"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed token with its session identifier
type IssuedToken struct {
	Token     string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 session tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer with the given signing secret and lifetime
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for p under a new session id
func (i *TokenIssuer) Issue(p models.Principal) (*IssuedToken, error) {
	// JWT timestamps have second precision
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)
	sessionID := GenerateSessionID()

	claims := Claims{
		Kind:     p.Kind,
		Role:     p.Role,
		FamilyID: p.FamilyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		SessionID: sessionID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Parse verifies the signature and expiry of token and returns its principal
func (i *TokenIssuer) Parse(token string) (models.Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return models.Principal{}, ErrTokenExpired
	}
	if err != nil || !parsed.Valid {
		return models.Principal{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || claims.ID == "" || !claims.Kind.Valid() {
		return models.Principal{}, ErrInvalidToken
	}
	if claims.Kind == models.PrincipalParent && !claims.Role.Valid() {
		return models.Principal{}, ErrInvalidToken
	}

	return models.Principal{
		Kind:      claims.Kind,
		ID:        id,
		FamilyID:  claims.FamilyID,
		Role:      claims.Role,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
