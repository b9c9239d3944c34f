package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/middleware"
	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/realtime"
	"github.com/microearn/microearn/internal/utils"
)

type NotificationHandler struct {
	DB        *gorm.DB
	Hub       *realtime.Hub
	JWTSecret string
}

func NewNotificationHandler(db *gorm.DB, hub *realtime.Hub, jwtSecret string) *NotificationHandler {
	return &NotificationHandler{DB: db, Hub: hub, JWTSecret: jwtSecret}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var notifs []models.Notification
	if err := h.DB.Where("user_id = ?", uID).
		Order("created_at DESC").
		Limit(50).
		Find(&notifs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list notifications")
	}

	var unread int64
	h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", uID, false).
		Count(&unread)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    notifs,
		"unread":  unread,
	})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", uID, false).
		Update("is_read", true).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update notifications")
	}

	return c.JSON(fiber.Map{"success": true})
}

// socketUser verifies the session token presented at the socket upgrade and
// returns the authenticated user id.
func (h *NotificationHandler) socketUser(tokenStr string) (uuid.UUID, error) {
	if tokenStr == "" {
		return uuid.Nil, errors.New("missing token")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &utils.Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(*utils.Claims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	return uuid.Parse(claims.UserID)
}

// WebSocketHandler keeps a push socket open per user. The socket carries the
// same JWT as the HTTP surface (auth cookie, or a token query param for
// clients that cannot send cookies on the upgrade).
func (h *NotificationHandler) WebSocketHandler(c *websocket.Conn) {
	tokenStr := c.Cookies(middleware.TokenCookie)
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	userUUID, err := h.socketUser(tokenStr)
	if err != nil {
		log.Println("WebSocket: rejected connection:", err)
		c.Close()
		return
	}
	userID := userUUID.String()

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   &realtime.WebSocketConn{Conn: c},
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s disconnected\n", userID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Println("WebSocket write error:", err)
				return
			}
		}
	}()

	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
