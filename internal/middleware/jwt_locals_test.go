package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/utils"
)

const testSecret = "middleware-test-secret"

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func testApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	app.Get("/me",
		JWTFromCookie(testSecret),
		AttachJWTLocals(db),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"user_id": c.Locals("userId")})
		},
	)
	return app
}

func authedRequest(t *testing.T, userID uuid.UUID, role models.Role) *http.Request {
	t.Helper()
	token, err := utils.SignJWT(testSecret, userID.String(), string(role), 60)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	return req
}

func TestAttachJWTLocalsActiveUser(t *testing.T) {
	db := testDB(t)
	app := testApp(db)

	u := models.User{
		ID:          uuid.New(),
		DisplayName: "Active",
		Email:       uuid.NewString() + "@example.test",
		Password:    "x",
		Role:        models.RoleWorker,
		IsActive:    true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp, err := app.Test(authedRequest(t, u.ID, u.Role))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

// A valid cookie stops working as soon as the account is deactivated; the
// gate does not wait for the token to expire.
func TestAttachJWTLocalsDeactivatedUser(t *testing.T) {
	db := testDB(t)
	app := testApp(db)

	u := models.User{
		ID:          uuid.New(),
		DisplayName: "Deactivated",
		Email:       uuid.NewString() + "@example.test",
		Password:    "x",
		Role:        models.RoleWorker,
		IsActive:    true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	req := authedRequest(t, u.ID, u.Role)

	if err := db.Model(&models.User{}).Where("id = ?", u.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestAttachJWTLocalsUnknownUser(t *testing.T) {
	db := testDB(t)
	app := testApp(db)

	resp, err := app.Test(authedRequest(t, uuid.New(), models.RoleWorker))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
