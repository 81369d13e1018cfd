package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails verification for any
// reason: bad signature, wrong algorithm, malformed payload, or expiry.
// A token is binary valid/invalid; callers get no partial-validity states.
var ErrInvalidToken = errors.New("invalid token")

const defaultTTL = time.Hour

// Identity is the decoded subject of a verified token.
type Identity struct {
	UserID int
	Role   string
}

// Claims is the JWT payload issued by the service: the user id and role,
// plus the registered issued-at/expiry claims.
type Claims struct {
	UserID int    `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies signed, time-limited identity tokens.
// The signing secret is an explicit constructor dependency so the service
// can be exercised without process environment setup.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService constructs a token service signing with the given secret.
// A non-positive ttl falls back to one hour.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue produces a signed HS256 token encoding the user id and role,
// valid from now until now plus the configured TTL.
func (s *Service) Issue(userID int, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a token string, returning the identity it
// carries. Any failure is reported as ErrInvalidToken.
func (s *Service) Verify(tokenString string) (Identity, error) {
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.UserID < 1 || strings.TrimSpace(claims.Role) == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
