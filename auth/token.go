package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// DefaultTokenTTL is how long an issued session token stays valid
const DefaultTokenTTL = 2 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid admin credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAccessDenied       = errors.New("access denied")
)

// Claims is the payload of a session token
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Credentials of the single administrator
type Credentials struct {
	Username string
	Password string
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to issue and verify tokens
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TokenIssuer exchanges admin credentials for a signed session token
type TokenIssuer struct {
	credentials Credentials
	secret      []byte
	ttl         time.Duration
	now         func() time.Time
}

func NewTokenIssuer(credentials Credentials, secret string, ttl time.Duration, opts ...Option) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	o := newOptions(opts)
	return &TokenIssuer{
		credentials: credentials,
		secret:      []byte(secret),
		ttl:         ttl,
		now:         o.now,
	}
}

// Login returns an admin token when both username and password match exactly
func (i *TokenIssuer) Login(username, password string) (string, error) {
	userMatched := subtle.ConstantTimeCompare([]byte(username), []byte(i.credentials.Username)) == 1
	passMatched := subtle.ConstantTimeCompare([]byte(password), []byte(i.credentials.Password)) == 1
	if !userMatched || !passMatched {
		return "", ErrInvalidCredentials
	}

	return i.Issue(RoleAdmin)
}

// Issue signs a token carrying the given role, bypassing the credential check
func (i *TokenIssuer) Issue(role string) (string, error) {
	issuedAt := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		},
		Role: role,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("fail to sign token: %w", err)
	}

	return token, nil
}

// TokenVerifier validates session tokens without any server side state
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewTokenVerifier(secret string, opts ...Option) *TokenVerifier {
	o := newOptions(opts)
	return &TokenVerifier{
		secret: []byte(secret),
		now:    o.now,
	}
}

// Verify checks the signature and expiry of a token and that it carries the
// admin role. Every parse failure collapses into ErrInvalidToken.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (interface{}, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Role != RoleAdmin {
		return &claims, ErrAccessDenied
	}

	return &claims, nil
}
