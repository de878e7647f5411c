package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"flight-markets/internal/auth"
	"flight-markets/internal/config"
	"flight-markets/internal/database"
	"flight-markets/internal/handlers"
	"flight-markets/internal/jobs"
	"flight-markets/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	sponsoredBetAmount, err := decimal.NewFromString(cfg.Insurance.SponsoredBetAmount)
	if err != nil {
		log.Fatalf("Invalid SPONSORED_BET_AMOUNT: %v", err)
	}
	settlementInterval, err := time.ParseDuration(cfg.Insurance.SettlementInterval)
	if err != nil {
		log.Fatalf("Invalid SETTLEMENT_INTERVAL: %v", err)
	}

	// Initialize services
	db := database.GetDB()
	authService := services.NewAuthService(db)
	fundsService := services.NewFundsService(db)
	registryService := services.NewRegistryService(db, cfg.App.OwnerAddress)
	ledgerService := services.NewLedgerService(db, registryService)
	walletService := services.NewWalletService(db, fundsService, registryService, cfg.App.OwnerAddress)
	marketService := services.NewMarketService(db, fundsService, ledgerService, registryService)
	insuranceService := services.NewInsuranceService(
		db,
		marketService,
		ledgerService,
		fundsService,
		walletService,
		registryService,
		cfg.App.OwnerAddress,
		sponsoredBetAmount,
	)
	oracleService := services.NewOracleService(db, marketService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	marketHandler := handlers.NewMarketHandler(marketService)
	insuranceHandler := handlers.NewInsuranceHandler(insuranceService)
	walletHandler := handlers.NewWalletHandler(walletService, fundsService)
	oracleHandler := handlers.NewOracleHandler(oracleService)
	registryHandler := handlers.NewRegistryHandler(registryService)

	// Start settlement job
	settlementJob := jobs.NewSettlementJob(marketService, settlementInterval)
	go settlementJob.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/nonce", authHandler.Nonce)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Public market routes
	router.GET("/api/markets", marketHandler.List)
	router.GET("/api/markets/:address", marketHandler.Get)
	router.GET("/api/markets/:address/quote", marketHandler.Quote)
	router.GET("/api/insurance/markets/find", insuranceHandler.Find)
	router.GET("/api/insurance/markets/:id", insuranceHandler.GetByID)
	router.GET("/api/wallet/balance", walletHandler.Balance)
	router.GET("/api/registry/roles/:id", registryHandler.GetAddress)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Market endpoints
		api.GET("/markets/:address/exit-quote", marketHandler.ExitQuote)
		api.GET("/markets/:address/payout-quote", marketHandler.PayoutQuote)
		api.POST("/markets/:address/participate", marketHandler.Participate)
		api.POST("/markets/:address/withdraw", marketHandler.WithdrawBet)
		api.POST("/markets/:address/claim", marketHandler.Claim)
		api.POST("/markets/:address/settle", marketHandler.Settle)

		// Insurance gateway endpoints
		api.POST("/insurance/markets", insuranceHandler.Create)
		api.POST("/insurance/markets/sponsored", insuranceHandler.CreateSponsored)
		api.POST("/insurance/markets/:address/sponsored", insuranceHandler.ParticipateSponsored)
		api.POST("/insurance/signers", insuranceHandler.SetTrusted)
		api.POST("/insurance/sponsorship/deposit", insuranceHandler.DepositSponsorship)

		// Wallet endpoints
		api.POST("/wallet/deposit", walletHandler.Deposit)
		api.POST("/wallet/withdraw", walletHandler.Withdraw)
		api.POST("/wallet/account/deposit", walletHandler.DepositAccount)
		api.GET("/wallet/account/balance", walletHandler.AccountBalance)

		// Oracle endpoints
		api.GET("/oracle/requests", oracleHandler.Pending)
		api.POST("/oracle/fulfill", oracleHandler.Fulfill)

		// Registry administration
		api.POST("/registry/addresses", registryHandler.SetAddresses)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	settlementJob.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
