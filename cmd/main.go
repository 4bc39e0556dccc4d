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
	"github.com/redis/go-redis/v9"

	"fxchange/internal/auth"
	"fxchange/internal/config"
	"fxchange/internal/database"
	"fxchange/internal/handlers"
	"fxchange/internal/jobs"
	"fxchange/internal/notify"
	"fxchange/internal/presence"
	"fxchange/internal/queues"
	"fxchange/internal/repository"
	"fxchange/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database and run migrations
	db, err := database.Connect(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repo := repository.NewRepository(db)

	// Redis backs realtime notifications and auction presence counters
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	notifier := notify.NewDispatcher(redisClient, repo)
	tracker := presence.NewTracker(redisClient)

	// NATS backs the email outbox
	emailQueue, err := queues.NewEmailQueue(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("Failed to connect email queue: %v", err)
	}
	defer emailQueue.Close()

	sender := queues.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	emailDispatcher, err := queues.NewEmailDispatcher(cfg.NATS.URL, sender)
	if err != nil {
		log.Fatalf("Failed to connect email dispatcher: %v", err)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	go func() {
		if err := emailDispatcher.Start(rootCtx); err != nil {
			log.Printf("Email dispatcher stopped: %v", err)
		}
	}()

	// Initialize services
	tokenManager := auth.NewManager(cfg.App.JWTSecret)
	userService := services.NewUserService(repo)
	auctionService := services.NewAuctionService(repo, notifier, tracker)
	transactionService := services.NewTransactionService(repo, notifier, emailQueue, nil, cfg.App.BaseURL)

	// Re-arm auction deadlines lost to the last shutdown
	if err := auctionService.RescheduleStarted(rootCtx); err != nil {
		log.Printf("Failed to reschedule started auctions: %v", err)
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	auctionHandler := handlers.NewAuctionHandler(auctionService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

	// Background jobs
	auctionCloser := jobs.NewAuctionCloser(auctionService, cfg.App.CloseInterval)
	go auctionCloser.Start()
	defer auctionCloser.Stop()

	transactionSweeper := jobs.NewTransactionSweeper(transactionService, cfg.App.SweepInterval)
	go transactionSweeper.Start()
	defer transactionSweeper.Stop()

	// Set up Gin router
	router := gin.Default()

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

	// Public auction routes
	router.GET("/api/auctions/available", auctionHandler.GetAvailableAuctions)
	router.GET("/api/auctions/:id", auctionHandler.GetAuctionByID)
	router.GET("/api/auctions/:id/bids", auctionHandler.GetBiddingHistory)
	router.GET("/api/auctions/:id/participants", auctionHandler.GetParticipants)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(tokenManager.Middleware())
	{
		// User endpoints
		userRoutes := api.Group("/user")
		{
			userRoutes.GET("/profile", userHandler.GetMe)
			userRoutes.GET("/points", userHandler.GetMyPointHistory)
		}

		// Auction endpoints
		api.POST("/auctions", auctionHandler.CreateAuction)
		api.GET("/auctions", auctionHandler.GetAuctions)
		api.POST("/auctions/:id/approve", auctionHandler.ApproveAuction)
		api.POST("/auctions/:id/start", auctionHandler.StartAuction)
		api.POST("/auctions/:id/finish", auctionHandler.FinishAuction)
		api.POST("/auctions/:id/bids", auctionHandler.PlaceBid)
		api.POST("/auctions/:id/participants", auctionHandler.UpdateParticipant)

		// Transaction endpoints
		api.POST("/transactions", transactionHandler.CreateTransaction)
		api.GET("/transactions", transactionHandler.FilterTransactions)
		api.GET("/transactions/me", transactionHandler.GetMyTransactions)
		api.GET("/transactions/pickup", transactionHandler.GetPickupTransactions)
		api.GET("/transactions/:id", transactionHandler.GetTransactionByID)
		api.POST("/transactions/:id/confirm-deposit", transactionHandler.ConfirmDeposit)
		api.POST("/transactions/:id/confirm-pickup", transactionHandler.ConfirmPickup)
		api.POST("/transactions/:id/cancel", transactionHandler.CancelTransaction)
		api.POST("/transactions/:id/issues", transactionHandler.CreateIssue)
		api.GET("/transactions/:id/issues", transactionHandler.GetTransactionIssues)
		api.PATCH("/transactions/:id/meeting-date", transactionHandler.UpdateMeetingDate)
		api.POST("/issues/:id/resolve", transactionHandler.ResolveIssue)
		api.GET("/stuffs/:id/transaction", transactionHandler.GetTransactionByStuffID)
	}

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

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
