package auth

import (
	"errors"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by QuizSpark bearer tokens.
type Claims struct {
	Name       string      `json:"name,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
	Registered bool        `json:"registered"`
	jwt.RegisteredClaims
}

// Profile returns the account described by the claims.
func (c *Claims) Profile() domain.Profile {
	return domain.Profile{
		ID:          c.Subject,
		DisplayName: c.Name,
		Role:        c.Role,
		Registered:  c.Registered,
	}
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// Mint signs a token for profile that expires after ttl.
func (i *Issuer) Mint(p domain.Profile, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:       p.DisplayName,
		Role:       p.Role,
		Registered: p.Registered,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks the signature and expiry of token.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.Errorf(domain.KindUnauthenticated, "verify token", "token has expired")
		}
		return nil, domain.Wrap(domain.KindUnauthenticated, "verify token", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domain.Errorf(domain.KindUnauthenticated, "verify token", "invalid token claims")
	}
	return claims, nil
}

// SubjectOf reads the subject of token without verifying it. The client only needs it as a
// cache key; the API verifies every request.
func SubjectOf(token string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", domain.Wrap(domain.KindUnauthenticated, "read token", err)
	}
	if claims.Subject == "" {
		return "", domain.Errorf(domain.KindUnauthenticated, "read token", "token has no subject")
	}
	return claims.Subject, nil
}
