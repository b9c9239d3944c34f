package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/microearn/microearn/internal/middleware"
	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/ledger"
	"github.com/microearn/microearn/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	Ledger    *ledger.Service
	JWTSecret string
	Expires   int
}

type RegisterReq struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": false,
		"message": "Validation error",
		"errors":  errs,
	})
}

func (h *AuthHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
}

// Register creates an account with no role yet; the role is fixed once at
// role-selection.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	name := strings.TrimSpace(req.DisplayName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	errs := FieldErrors{}
	if name == "" {
		errs.Add("display_name", "Display name is required")
	}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email format")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	} else if len(password) < 6 {
		errs.Add("password", "Password must be at least 6 characters")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		errs.Add("email", "Email is already registered")
		return validationFail(c, errs)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, fiber.StatusInternalServerError, "Server error")
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to process password")
	}

	u := models.User{
		ID:          uuid.New(),
		DisplayName: name,
		Email:       email,
		Password:    pw,
		Role:        models.RoleNone,
		IsActive:    true,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		return fail(c, fiber.StatusBadRequest, "Failed to register")
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create token")
	}
	h.setTokenCookie(c, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registered",
		"data": fiber.Map{
			"user": userPayload(&u),
		},
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusOK, "Invalid body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	errs := FieldErrors{}
	if email == "" {
		errs.Add("email", "Email is required")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err != nil {
		return fail(c, fiber.StatusOK, "Wrong email or password")
	}
	if !u.IsActive {
		return fail(c, fiber.StatusOK, "Account is deactivated")
	}
	if !utils.CheckPassword(u.Password, password) {
		return fail(c, fiber.StatusOK, "Wrong email or password")
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail(c, fiber.StatusOK, "Failed to create token")
	}
	h.setTokenCookie(c, token)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged in",
		"data": fiber.Map{
			"user": userPayload(&u),
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

type SelectRoleReq struct {
	Role string `json:"role"`
}

// applyRoleSelection fixes the account's role once and grants the one-time
// coin bonus (worker +10, buyer +50). The user row is locked for the whole
// transaction, so two concurrent selections serialize and the second sees
// the flipped initial_coins_received flag.
func (h *AuthHandler) applyRoleSelection(uID uuid.UUID, role models.Role) (*models.User, error) {
	var u models.User
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&u, "id = ?", uID).Error; err != nil {
			return err
		}
		if u.Role != models.RoleNone && u.Role != role {
			return fiber.NewError(fiber.StatusBadRequest, "Role already set")
		}

		if !u.InitialCoinsReceived {
			grant := models.InitialCoinsWorker
			if role == models.RoleBuyer {
				grant = models.InitialCoinsBuyer
			}
			if err := h.Ledger.Credit(tx, u.ID, grant, models.CoinTrxBonus, nil, "Welcome bonus"); err != nil {
				return err
			}
		}

		u.Role = role
		u.InitialCoinsReceived = true
		return tx.Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
			"role":                   role,
			"initial_coins_received": true,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (h *AuthHandler) SelectRole(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var req SelectRoleReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Selectable() {
		return fail(c, fiber.StatusBadRequest, "Invalid role")
	}

	u, err := h.applyRoleSelection(uID, role)
	if err != nil {
		return svcError(c, err)
	}

	// Reissue the token so the role claim matches.
	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(role), h.Expires)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create token")
	}
	h.setTokenCookie(c, token)

	h.DB.First(u, "id = ?", uID)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Role selected",
		"data": fiber.Map{
			"user": userPayload(u),
		},
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var u models.User
	if err := h.DB.First(&u, "id = ?", uID).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "User not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    userPayload(&u),
	})
}

func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                     u.ID,
		"display_name":           u.DisplayName,
		"email":                  u.Email,
		"photo_url":              u.PhotoURL,
		"role":                   u.Role,
		"coins":                  u.Coins,
		"total_earned":           u.TotalEarned,
		"total_spent":            u.TotalSpent,
		"initial_coins_received": u.InitialCoinsReceived,
	}
}
