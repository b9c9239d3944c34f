package handlers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/microearn/microearn/internal/utils"
)

func TestSocketUser(t *testing.T) {
	h := &NotificationHandler{JWTSecret: "socket-secret"}
	uID := uuid.New()

	token, err := utils.SignJWT(h.JWTSecret, uID.String(), "worker", 60)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := h.socketUser(token)
	if err != nil {
		t.Fatalf("socketUser: %v", err)
	}
	if got != uID {
		t.Errorf("user = %s, want %s", got, uID)
	}

	if _, err := h.socketUser(""); err == nil {
		t.Error("empty token must be rejected")
	}

	forged, err := utils.SignJWT("other-secret", uID.String(), "worker", 60)
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := h.socketUser(forged); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
}
