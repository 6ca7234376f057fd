package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/soundvault/backend/docs"
	"github.com/soundvault/backend/internal/database"
	"github.com/soundvault/backend/internal/handlers"
	mW "github.com/soundvault/backend/internal/middleware"
	"github.com/soundvault/backend/internal/payments"
	"github.com/soundvault/backend/internal/services"
	"github.com/soundvault/backend/internal/storage"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title SoundVault Storefront API
// @version 1.0
// @description API for the SoundVault digital album storefront
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	viper.BindEnv("app.base_url", "APP_BASE_URL")

	viper.BindEnv("payments.secret_key", "STRIPE_SECRET_KEY")
	viper.BindEnv("payments.webhook_secret", "STRIPE_WEBHOOK_SECRET")

	viper.BindEnv("storage.account_id", "R2_ACCOUNT_ID")
	viper.BindEnv("storage.access_key_id", "R2_ACCESS_KEY_ID")
	viper.BindEnv("storage.secret_access_key", "R2_SECRET_ACCESS_KEY")
	viper.BindEnv("storage.media_bucket", "R2_BUCKET_NAME")
	viper.BindEnv("storage.legacy_bucket", "LEGACY_BUCKET_NAME")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "SoundVault Storefront API"
	docs.SwaggerInfo.Description = "API for the SoundVault digital album storefront"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// External collaborators
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	gateway := payments.NewStripeGateway(
		viper.GetString("payments.secret_key"),
		viper.GetString("payments.webhook_secret"),
	)
	signer := storage.NewR2Signer(
		viper.GetString("storage.account_id"),
		viper.GetString("storage.access_key_id"),
		viper.GetString("storage.secret_access_key"),
	)

	viper.SetDefault("storage.media_bucket", "soundvault-media")
	viper.SetDefault("storage.legacy_bucket", "albums")

	// Services
	catalogService := services.NewCatalogService(db, redisClient)
	entitlementService := services.NewEntitlementService(db)
	checkoutService := services.NewCheckoutService(db, gateway)
	webhookService := services.NewWebhookService(gateway, entitlementService)
	galleryService := services.NewGalleryService(db, redisClient)
	downloadService := services.NewDownloadService(db, signer, entitlementService,
		viper.GetString("storage.media_bucket"),
		viper.GetString("storage.legacy_bucket"),
	)
	downloadHandler := handlers.NewDownloadHandler(downloadService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for album cover art
	r.Handle("/static/covers/*", http.StripPrefix("/static/covers/",
		mW.StaticFileServer("./static/covers")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public storefront endpoints
		r.Get("/albums", catalogService.ListAlbums)
		r.Get("/albums/{albumId}", catalogService.GetAlbum)
		r.Get("/gallery", galleryService.ListImages)

		// Gateway notifications authenticate via signature, not session
		r.Post("/webhooks/payment", webhookService.HandlePaymentEvent)

		// Session-authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/checkout", checkoutService.CreateCheckoutSession)
			r.Get("/purchases", entitlementService.ListPurchases)

			r.Post("/downloads/album", downloadHandler.SignAlbumDownload)
			r.Post("/downloads/track", downloadHandler.SignTrackDownload)
			r.Post("/downloads/qr", downloadHandler.DownloadQR)

			// Admin panel
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Post("/admin/gallery", galleryService.AddImage)
				r.Delete("/admin/gallery/{imageId}", galleryService.DeleteImage)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
