package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Subject identifies the account a token is issued for.
type Subject struct {
	UserID string
	Email  string
}

// Claims are the standard registered claims plus the account identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Identity returns the account carried by the claims.
func (c *Claims) Identity() Subject {
	return Subject{UserID: c.UserID, Email: c.Email}
}

// IssuedToken is a signed token together with the expiry embedded in it.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenCodec signs and validates access and refresh tokens. The two kinds
// use separate keys, so one can never be decoded as the other.
type TokenCodec struct {
	accessKey  []byte
	refreshKey []byte
	method     jwt.SigningMethod
	now        func() time.Time
}

// Option customises a TokenCodec.
type Option func(*TokenCodec)

// WithNow replaces the clock used for issuing and expiry checks.
func WithNow(now func() time.Time) Option {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec builds a codec for the given HMAC algorithm (HS256, HS384 or HS512).
func NewTokenCodec(accessSecret, refreshSecret, algorithm string, opts ...Option) (*TokenCodec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	c := &TokenCodec{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		method:     method,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IssueAccess signs a short-lived access token for s.
func (c *TokenCodec) IssueAccess(s Subject, ttl time.Duration) (IssuedToken, error) {
	return c.issue(s, ttl, c.accessKey)
}

// IssueRefresh signs a long-lived refresh token for s.
func (c *TokenCodec) IssueRefresh(s Subject, ttl time.Duration) (IssuedToken, error) {
	return c.issue(s, ttl, c.refreshKey)
}

// DecodeAccess validates an access token and returns its claims.
// It fails with common.ErrTokenExpired or common.ErrInvalidToken.
func (c *TokenCodec) DecodeAccess(token string) (*Claims, error) {
	return c.decode(token, c.accessKey)
}

// DecodeRefresh is DecodeAccess for refresh tokens.
func (c *TokenCodec) DecodeRefresh(token string) (*Claims, error) {
	return c.decode(token, c.refreshKey)
}

func (c *TokenCodec) issue(s Subject, ttl time.Duration, key []byte) (IssuedToken, error) {
	now := c.now()
	exp := jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(c.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: exp,
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		UserID: s.UserID,
		Email:  s.Email,
	})

	signed, err := token.SignedString(key)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{Token: signed, ExpiresAt: exp.Time}, nil
}

func (c *TokenCodec) decode(tokenString string, key []byte) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
