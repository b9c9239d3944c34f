package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/microearn/microearn/internal/config"
	"github.com/microearn/microearn/internal/db"
	"github.com/microearn/microearn/internal/handlers"
	"github.com/microearn/microearn/internal/middleware"
	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/realtime"
	"github.com/microearn/microearn/internal/services/gateway"
	"github.com/microearn/microearn/internal/services/ledger"
	"github.com/microearn/microearn/internal/services/payout"
	"github.com/microearn/microearn/internal/services/review"
	"github.com/microearn/microearn/internal/services/tasklife"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Submission{},
		&models.Withdrawal{},
		&models.CoinTransaction{},
		&models.Payment{},
		&models.Notification{},
	); err != nil {
		log.Fatal(err)
	}

	ledgerSvc := ledger.NewService(gdb)
	taskSvc := tasklife.NewService(gdb, ledgerSvc)
	reviewSvc := review.NewService(gdb, ledgerSvc, taskSvc)
	payoutSvc := payout.NewService(gdb, ledgerSvc)
	gatewaySvc := gateway.NewService()

	notifier := &handlers.Notifier{DB: gdb, Hub: hub, RDB: rdb}

	authH := &handlers.AuthHandler{
		DB:        gdb,
		Ledger:    ledgerSvc,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	taskH := handlers.NewTaskHandler(gdb, taskSvc, notifier)
	subH := handlers.NewSubmissionHandler(gdb, reviewSvc, notifier, cfg.AutoApproveAfter, cfg.SweepInterval)
	withdrawalH := handlers.NewWithdrawalHandler(gdb, payoutSvc, notifier)
	paymentH := handlers.NewPaymentHandler(gdb, gatewaySvc, ledgerSvc, notifier, rdb)
	walletH := handlers.NewWalletHandler(gdb)
	notifH := handlers.NewNotificationHandler(gdb, hub, cfg.JWTSecret)
	adminH := handlers.NewAdminHandler(gdb, notifier)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/tasks", taskH.ListOpen)
	api.Get("/tasks/:id", taskH.GetDetail)
	api.Get("/coins/packs", paymentH.GetPacks)

	// gateway callback, authenticated by HMAC signature instead of JWT
	api.Post("/payments/webhook", paymentH.HandleWebhook)

	// protected (JWT cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(gdb),
	)

	protected.Get("/me", authH.Me)
	protected.Post("/auth/select-role", authH.SelectRole)

	protected.Get("/wallet/balance", walletH.GetBalance)
	protected.Get("/wallet/transactions", walletH.GetTransactions)

	protected.Get("/notifications", notifH.List)
	protected.Patch("/notifications/read", notifH.MarkAllRead)

	// worker only
	protected.Post("/tasks/:id/submissions",
		middleware.RequireRoles(models.RoleWorker),
		subH.Submit,
	)
	protected.Get("/submissions/mine",
		middleware.RequireRoles(models.RoleWorker),
		subH.ListMine,
	)
	protected.Post("/withdrawals",
		middleware.RequireRoles(models.RoleWorker),
		withdrawalH.Request,
	)
	protected.Get("/withdrawals/mine",
		middleware.RequireRoles(models.RoleWorker),
		withdrawalH.ListMine,
	)

	// buyer only
	protected.Post("/tasks",
		middleware.RequireRoles(models.RoleBuyer),
		taskH.CreateTask,
	)
	protected.Get("/buyer/tasks",
		middleware.RequireRoles(models.RoleBuyer),
		taskH.ListMine,
	)
	protected.Post("/coins/checkout",
		middleware.RequireRoles(models.RoleBuyer),
		paymentH.CreatePayment,
	)
	protected.Get("/coins/payments",
		middleware.RequireRoles(models.RoleBuyer),
		paymentH.History,
	)

	// buyer or admin (ownership checked in the service layer)
	protected.Post("/tasks/:id/cancel",
		middleware.RequireRoles(models.RoleBuyer, models.RoleAdmin),
		taskH.CancelTask,
	)
	protected.Get("/tasks/:id/submissions",
		middleware.RequireRoles(models.RoleBuyer, models.RoleAdmin),
		subH.ListForTask,
	)
	protected.Post("/submissions/:id/approve",
		middleware.RequireRoles(models.RoleBuyer, models.RoleAdmin),
		subH.Approve,
	)
	protected.Post("/submissions/:id/reject",
		middleware.RequireRoles(models.RoleBuyer, models.RoleAdmin),
		subH.Reject,
	)

	// admin only
	admin := protected.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.Get("/users", adminH.ListUsers)
	admin.Patch("/users/:id/active", adminH.SetUserActive)
	admin.Patch("/users/:id/role", adminH.OverrideRole)
	admin.Get("/tasks", adminH.ListTasks)
	admin.Get("/stats", adminH.Stats)
	admin.Get("/withdrawals", withdrawalH.ListPending)
	admin.Post("/withdrawals/:id/approve", withdrawalH.Approve)
	admin.Post("/withdrawals/:id/reject", withdrawalH.Reject)
	admin.Post("/withdrawals/:id/processed", withdrawalH.MarkProcessed)

	// WebSocket endpoint, authenticated via query param
	app.Get("/ws/notifications", websocket.New(notifH.WebSocketHandler))

	subH.StartAutoApprovalWorker()

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
