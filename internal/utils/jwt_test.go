package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignJWTRoundTrip(t *testing.T) {
	secret := "test-secret"
	tokenStr, err := SignJWT(secret, "user-123", "worker", 60)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		t.Fatal("token should be valid with typed claims")
	}
	if claims.UserID != "user-123" {
		t.Errorf("uid = %q, want user-123", claims.UserID)
	}
	if claims.Role != "worker" {
		t.Errorf("role = %q, want worker", claims.Role)
	}

	exp := claims.ExpiresAt.Time
	if until := time.Until(exp); until < 55*time.Minute || until > 60*time.Minute {
		t.Errorf("expiry %v away, want about 60 minutes", until)
	}
}

func TestSignJWTWrongSecret(t *testing.T) {
	tokenStr, err := SignJWT("right-secret", "user-123", "buyer", 60)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	_, err = jwt.ParseWithClaims(tokenStr, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	if err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}
