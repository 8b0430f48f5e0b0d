package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/collab-board/backend/api/handlers"
	"github.com/collab-board/backend/internal/auth"
	"github.com/collab-board/backend/internal/board"
	"github.com/collab-board/backend/internal/config"
	"github.com/collab-board/backend/internal/db"
	"github.com/collab-board/backend/internal/repository"
	"github.com/collab-board/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port := getEnv("PORT", ""); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize the board directory database
	database, err := db.InitDB(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	boardRepo := repository.NewBoardRepository(database)

	// Initialize the board registry
	registry := board.NewRegistry(board.Config{
		DrainGrace:      cfg.Board.DrainGrace,
		MaxParticipants: cfg.Board.MaxParticipants,
	}, boardRepo)
	defer registry.Close()

	// Initialize handlers
	ws.SetCheckOrigin(ws.AllowOrigins(cfg.WS.AllowedOrigins))
	wsHandler := ws.NewHandler(registry, cfg.WS)
	boardHandler := handlers.NewBoardHandler(registry, boardRepo)
	attachHandler := handlers.NewWebSocketHandler(registry, wsHandler, auth.HeaderVerifier{})

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		boardHandler.RegisterRoutes(api)
		attachHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		registry.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-User-ID, X-Display-Name")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
