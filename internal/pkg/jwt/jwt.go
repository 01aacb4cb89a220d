package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the platform access token claims the console reads.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id carried by the token.
func (c *Claims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// Inspector reads platform-issued tokens.
//
// The platform owns signing. With a secret the signature is verified,
// otherwise the token is only decoded for expiry and subject.
type Inspector struct {
	secret []byte
	now    func() time.Time
}

// NewInspector creates a token inspector. An empty secret disables
// signature verification.
func NewInspector(secret string) *Inspector {
	return &Inspector{secret: []byte(secret), now: time.Now}
}

// Inspect parses the token and rejects it when expired.
func (i *Inspector) Inspect(tokenString string) (*Claims, error) {
	claims := &Claims{}

	if len(i.secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, ErrInvalidToken
		}
	} else {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return i.secret, nil
		}, jwt.WithTimeFunc(i.now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrExpiredToken
			}
			return nil, ErrInvalidToken
		}
		if !token.Valid {
			return nil, ErrInvalidToken
		}
	}

	if claims.ExpiresAt != nil && !i.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}

// TTL returns how long the token stays valid, capped at max.
func (i *Inspector) TTL(claims *Claims, max time.Duration) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return max
	}
	left := claims.ExpiresAt.Time.Sub(i.now())
	if left <= 0 {
		return 0
	}
	if max > 0 && left > max {
		return max
	}
	return left
}
