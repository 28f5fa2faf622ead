package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the identity carried by a verified bearer token. A nil *User
// means the request is anonymous.
type User struct {
	UID   string
	Email string
	Name  string
}

// Claims represents the JWT payload
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a bearer token for the given user
func Issue(user User, issuer, key string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// Parse validates a token and returns the user it identifies
func Parse(tokenStr, key, issuer string) (*User, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return nil, errors.New("issuer mismatch")
	}
	return &User{UID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}
