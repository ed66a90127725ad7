package myjwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims carries the resolved identity.
type CustomClaims struct {
	Uuid     string `json:"uuid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens with one key.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func NewSigner(key, issuer string, expireHours int) (*Signer, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("jwt key is empty")
	}
	if expireHours <= 0 {
		expireHours = 24
	}
	return &Signer{
		key:    []byte(key),
		issuer: issuer,
		ttl:    time.Duration(expireHours) * time.Hour,
	}, nil
}

func (s *Signer) GenerateToken(uuid, username, role string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Uuid:     uuid,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   uuid,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

func (s *Signer) ParseToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Uuid) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
