package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"visittrack/internal/config"
	"visittrack/internal/database"
	"visittrack/internal/handlers"
	"visittrack/internal/middleware"
	"visittrack/internal/storage"
)

func main() {
	cfg := config.Load()
	if cfg.MongoURI == "" {
		log.Fatal("[MAIN] [FATAL] MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("[MAIN] [FATAL] JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal("[MAIN] [FATAL] mongo connect failed: ", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Println("[MAIN] [ERROR] mongo disconnect failed:", err)
		}
	}()

	db := client.Database(cfg.DBName)
	ensureIndexes(db)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("[MAIN] [FATAL] storage init failed: ", err)
	}
	if store == nil {
		log.Println("[MAIN] [INFO] file storage not configured, upload endpoints disabled")
	} else {
		log.Println("[MAIN] [INFO] file storage provider:", store.Provider())
	}

	router := gin.Default()
	registerRoutes(router, db, cfg, store)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Println("[MAIN] [INFO] listening on port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("[MAIN] [FATAL] server failed: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("[MAIN] [INFO] shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("[MAIN] [ERROR] server shutdown failed:", err)
	}
}

func ensureIndexes(db *mongo.Database) {
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Println("[MAIN] [WARN] user indexes:", err)
	}
	if err := database.EnsureCustomerIndexes(db); err != nil {
		log.Println("[MAIN] [WARN] customer indexes:", err)
	}
	if err := database.EnsureVisitIndexes(db); err != nil {
		log.Println("[MAIN] [WARN] visit indexes:", err)
	}
}

func registerRoutes(router *gin.Engine, db *mongo.Database, cfg config.Config, store storage.ObjectStore) {
	protect := middleware.Protect(db, cfg.JWTSecret)

	router.GET("/healthz", handlers.HealthCheck(db))

	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register(db, cfg))
		auth.POST("/login", handlers.Login(db, cfg))
		auth.POST("/logout", handlers.Logout(cfg))

		authed := auth.Group("", protect)
		{
			authed.GET("/me", handlers.GetMe())
			authed.PATCH("/me", handlers.UpdateMe(db))
			authed.POST("/change-password", handlers.ChangePassword(db))
		}
	}

	oauth := router.Group("/oauth")
	{
		oauth.GET("/microsoft", handlers.MicrosoftLogin(cfg))
		oauth.GET("/microsoft/callback", handlers.MicrosoftCallback(db, cfg))
		oauth.GET("/check", handlers.CheckAuth(db, cfg.JWTSecret))
		oauth.GET("/me", protect, handlers.GetCurrentUser())
		oauth.POST("/logout", handlers.OAuthLogout(cfg))
	}

	users := router.Group("/users", protect)
	{
		users.GET("/sales", handlers.ListSalesUsers(db))

		admin := users.Group("", middleware.RequireRoles("admin"))
		{
			admin.GET("", handlers.ListUsers(db))
			admin.POST("", handlers.CreateUser(db))
			admin.GET("/:id", handlers.GetUserByID(db))
			admin.PATCH("/:id", handlers.UpdateUser(db))
			admin.DELETE("/:id", handlers.DeleteUser(db))
			admin.PATCH("/:id/activate", handlers.ActivateUser(db))
			admin.PATCH("/:id/deactivate", handlers.DeactivateUser(db))
		}
	}

	customers := router.Group("/customers", protect)
	{
		customers.GET("", handlers.ListCustomers(db))
		customers.POST("", handlers.CreateCustomer(db))
		customers.GET("/:id", handlers.GetCustomerByID(db))
		customers.PATCH("/:id", handlers.UpdateCustomer(db))
		customers.DELETE("/:id", handlers.DeleteCustomer(db))
	}

	visits := router.Group("/visits", protect)
	{
		visits.GET("/export/xlsx", handlers.ExportVisits(db))
		visits.GET("", handlers.ListVisits(db))
		visits.POST("", handlers.CreateVisit(db))
		visits.GET("/:id", handlers.GetVisitByID(db))
		visits.PATCH("/:id", handlers.UpdateVisit(db))
		visits.DELETE("/:id", handlers.DeleteVisit(db))
	}

	uploads := router.Group("/uploads", protect)
	{
		uploads.POST("/presign", handlers.PresignUpload(store, cfg.Storage.PresignValidity))
		uploads.GET("/proxy", handlers.ProxyFile(store))
	}
}
