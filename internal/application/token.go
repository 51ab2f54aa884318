package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies HS256 bearer tokens carrying the user id
// ("uid") and role ("role").
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer. A non-positive ttl defaults to 12h.
func NewTokenIssuer(secret string, ttl time.Duration, now func() time.Time) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue returns a signed token for user and its expiry.
func (i *TokenIssuer) Issue(user User) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, errors.New("token secret not configured")
	}
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  user.ID,
		"role": int(user.Role),
		"name": user.Username,
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies tokenString and returns the principal it names.
func (i *TokenIssuer) Parse(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	userID, ok := claims["uid"].(string)
	if !ok || userID == "" {
		return Principal{}, ErrInvalidToken
	}
	role, ok := claims["role"].(float64)
	if !ok || !Role(role).Valid() {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: userID, Role: Role(role)}, nil
}
