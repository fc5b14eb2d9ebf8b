package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/config"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/handlers"
	"github.com/netbill/backend/internal/middleware"
	"github.com/netbill/backend/internal/models"
	"github.com/netbill/backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed admin user if not exists
	seedAdminUser()

	// Billing clock and engine
	clock := calendar.NewClock(cfg.BillingTimezone)
	engine := billing.NewEngine(database.DB, clock, cfg.RolloverCutoffHour)

	// Start rollover service (daily expiry flagging and cycle roll, checked every minute)
	rolloverService := services.NewRolloverService(engine, database.DB, 1*time.Minute)
	rolloverService.Start()
	defer rolloverService.Stop()

	// Start income reset service if monthly reset is enabled
	if cfg.IncomeMonthlyReset {
		incomeResetService := services.NewIncomeResetService(engine, 1*time.Minute)
		incomeResetService.Start()
		defer incomeResetService.Stop()
	}

	// Start monthly report export service if enabled
	if cfg.ReportExportEnabled {
		reportExportService := services.NewReportExportService(engine, database.DB, cfg)
		reportExportService.Start()
		defer reportExportService.Stop()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "NetBill API v1.0",
		ServerHeader: "NetBill",
		BodyLimit:    10 * 1024 * 1024, // 10MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "netbill-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	subscriberHandler := handlers.NewSubscriberHandler(engine)
	voucherHandler := handlers.NewVoucherHandler(engine)
	incomeHandler := handlers.NewIncomeHandler(engine)
	employeeHandler := handlers.NewEmployeeHandler()
	packageHandler := handlers.NewPackageHandler()
	dashboardHandler := handlers.NewDashboardHandler(engine)
	reportHandler := handlers.NewReportHandler(engine)

	// API routes
	api := app.Group("/api")

	// Apply rate limiting to API routes (100 requests per minute by default)
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Put("/auth/password", authHandler.ChangePassword)

	// 2FA routes
	protected.Post("/auth/2fa/setup", authHandler.TwoFASetup)
	protected.Post("/auth/2fa/verify", authHandler.TwoFAVerify)
	protected.Post("/auth/2fa/disable", authHandler.TwoFADisable)

	// Dashboard routes
	protected.Get("/dashboard/stats", dashboardHandler.Stats)
	protected.Get("/dashboard/expiring-soon", dashboardHandler.ExpiringSoon)

	// Subscriber routes
	subscribers := protected.Group("/subscribers")
	subscribers.Get("/", subscriberHandler.List)
	subscribers.Get("/:id", subscriberHandler.Get)
	subscribers.Post("/", subscriberHandler.Create)
	subscribers.Put("/:id", subscriberHandler.Update)
	subscribers.Put("/:id/status", subscriberHandler.UpdateStatus)
	subscribers.Delete("/:id", middleware.AdminOnly(), subscriberHandler.Delete)

	// Voucher ledger routes
	vouchers := protected.Group("/vouchers")
	vouchers.Post("/payments", voucherHandler.RecordPayment)
	vouchers.Post("/reverse", voucherHandler.Reverse)
	vouchers.Post("/convert-unpaid", voucherHandler.ConvertToUnpaid)
	vouchers.Get("/:subscriberId", voucherHandler.Get)
	vouchers.Get("/:subscriberId/outstanding", voucherHandler.Outstanding)

	// Income routes
	income := protected.Group("/income")
	income.Get("/", incomeHandler.List)
	income.Post("/transfer", incomeHandler.Transfer)
	income.Get("/transfers", incomeHandler.Transfers)
	income.Get("/refunds", incomeHandler.Refunds)

	// Employee routes
	employees := protected.Group("/employees")
	employees.Get("/", employeeHandler.List)
	employees.Post("/", middleware.AdminOnly(), employeeHandler.Create)
	employees.Put("/:id", middleware.AdminOnly(), employeeHandler.Update)
	employees.Delete("/:id", middleware.AdminOnly(), employeeHandler.Delete)

	// Package routes
	packages := protected.Group("/packages")
	packages.Get("/", packageHandler.List)
	packages.Post("/", middleware.AdminOnly(), packageHandler.Create)
	packages.Put("/:id", middleware.AdminOnly(), packageHandler.Update)
	packages.Delete("/:id", middleware.AdminOnly(), packageHandler.Delete)

	// Report routes
	protected.Get("/reports/income", reportHandler.IncomeWorkbook)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("NetBill API listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func seedAdminUser() {
	var count int64
	database.DB.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count)

	if count == 0 {
		log.Println("Creating default admin user...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)

		admin := models.User{
			Username: "admin",
			Password: string(hashedPassword),
			Email:    "admin@netbill.local",
			FullName: "System Administrator",
			Role:     models.UserRoleAdmin,
			IsActive: true,
		}

		if err := database.DB.Create(&admin).Error; err != nil {
			log.Printf("Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created successfully (username: admin, password: admin123)")
		}
	}
}
