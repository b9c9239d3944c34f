package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity carried by the auth cookie. Role is baked in at
// issue time; the token is reissued whenever the role changes
// (role-selection, admin override).
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SignJWT issues the HS256 session token.
func SignJWT(secret string, userID string, role string, expiresMin int) (string, error) {
	now := time.Now()
	expiry := now.Add(time.Duration(expiresMin) * time.Minute)

	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
