// @title           Pottery Gallery Backend API
// @version         1.0.0
// @description     Backend for the pottery studio site: a public ordered image gallery plus admin upload, reorder, and delete actions backed by Postgres and object storage.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"log"
	"net/http"
	"net/url"

	"pottery-gallery-backend/docs"
	"pottery-gallery-backend/internal/config"
	"pottery-gallery-backend/internal/database"
	"pottery-gallery-backend/internal/handlers"
	"pottery-gallery-backend/internal/middleware"
	"pottery-gallery-backend/internal/realtime"
	"pottery-gallery-backend/internal/services"
	"pottery-gallery-backend/internal/storage"

	"github.com/gin-gonic/gin"
	supabase "github.com/supabase-community/supabase-go"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		if baseURL, err := url.Parse(cfg.BaseURL); err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	// Run migrations before anything touches the files table
	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := migrator.Run(); err != nil {
		migrator.Close()
		log.Fatalf("Migration failed: %v", err)
	}
	migrator.Close()
	log.Println("Migrations completed successfully")

	dbClient, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database client: %v", err)
	}
	defer dbClient.Close()

	objectStore, err := newObjectStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Realtime change notifications are optional; they need a Supabase project.
	var supabaseClient *supabase.Client
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		supabaseClient, err = supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
		if err != nil {
			log.Printf("Warning: failed to initialize Supabase client, realtime disabled: %v", err)
		}
	}
	notifier := realtime.NewNotifier(supabaseClient)

	galleryService := services.NewGalleryService(dbClient, objectStore, notifier, cfg.MaxUploadBytes)

	if cfg.ReconcileInterval > 0 {
		reconciler := services.NewReconciler(dbClient, objectStore, cfg.OrphanGracePeriod)
		reconciler.Start(context.Background(), cfg.ReconcileInterval)
		log.Printf("Reconciler running every %s", cfg.ReconcileInterval)
	}

	galleryHandler := handlers.NewGalleryHandler(galleryService)
	actionHandler := handlers.NewActionHandler(galleryService, cfg.MaxUploadBytes)

	router := gin.Default()

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", handlers.HealthHandler)

	// Gallery listing backs both the public page and the admin page loader.
	router.GET("/", galleryHandler.GetGallery)
	router.GET("/upload", galleryHandler.GetGallery)

	actions := router.Group("")
	if cfg.AdminJWTSecret != "" {
		actions.Use(middleware.AdminAuth(cfg.AdminJWTSecret))
	} else {
		log.Println("Warning: ADMIN_JWT_SECRET not set, admin actions are unauthenticated")
	}
	actions.POST("/upload", actionHandler.HandleAction)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newObjectStore selects the storage backend from config: Supabase in hosted
// deployments, MinIO (or any S3-compatible server) locally.
func newObjectStore(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "minio":
		return storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioBucket, cfg.PublicBaseURL, cfg.MinioUseSSL)
	default:
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey,
			cfg.SupabaseBucket, cfg.PublicBaseURL)
	}
}
