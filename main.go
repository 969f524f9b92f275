package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultPageSize          = 25
	maxPageSize              = 100
	maxTitleLength           = 255
	maxTagCount              = 20
	maxTagLength             = 64
	geocoderTimeout          = 10 * time.Second
	nominatimUserAgent       = "FamilienFreizeit-API/1.0"
	devCORSOriginLocalhost   = "http://localhost:3000"
	devCORSOriginLoopback    = "http://127.0.0.1:3000"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
)

// contentSecurityPolicy allows map tiles and marker images next to self-hosted media.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"connect-src 'self' https: http:",
	"img-src 'self' data: blob: https://market-assets.strapi.io https://unpkg.com https://tile.openstreetmap.org https://*.tile.openstreetmap.org",
	"style-src 'self' 'unsafe-inline'",
	"frame-ancestors 'self'",
}, "; ")

type App struct {
	cfg *Config
	db  *sql.DB
	log *slog.Logger

	geocoder Geocoder
	pages    *listingPageRenderer

	// store hooks, replaced in handler tests
	listEntries func(ctx context.Context, query EntryQuery) (*EntryPage, error)
	getEntry    func(ctx context.Context, id int64) (*RawEntry, error)
	createEntry func(ctx context.Context, input EntryInput) (*RawEntry, error)
	updateEntry func(ctx context.Context, id int64, input EntryInput) (*RawEntry, error)
	deleteEntry func(ctx context.Context, id int64) error
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func main() {
	if err := loadDotEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func openDatabase(ctx context.Context, cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func newApp(cfg *Config, db *sql.DB, logger *slog.Logger) *App {
	app := &App{
		cfg:      cfg,
		db:       db,
		log:      logger,
		geocoder: newGeocoder(cfg),
		pages:    newListingPageRenderer(cfg.TemplatesDir),
	}
	app.listEntries = app.storeListEntries
	app.getEntry = app.storeGetEntry
	app.createEntry = app.storeCreateEntry
	app.updateEntry = app.storeUpdateEntry
	app.deleteEntry = app.storeDeleteEntry
	return app
}

func (a *App) newRouter() (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())
	r.Use(a.loggingMiddleware())
	r.Use(securityHeadersMiddleware())
	r.Use(a.corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/freizeitangebote", a.listEntriesHandler)
		api.GET("/freizeitangebote/html", a.listingsHTMLHandler)
		api.GET("/freizeitangebote/listings", a.listingsJSONHandler)
		api.GET("/freizeitangebote/pdf", a.listingsPDFHandler)
		api.GET("/freizeitangebote/:id", a.getEntryHandler)
		api.GET("/freizeitangebote/:id/markdown", a.entryMarkdownHandler)

		write := api.Group("/freizeitangebote")
		write.Use(a.requireAPIToken())
		{
			write.POST("", a.createEntryHandler)
			write.PUT("/:id", a.updateEntryHandler)
			write.DELETE("/:id", a.deleteEntryHandler)
		}
	}

	return r, nil
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Security-Policy", contentSecurityPolicy)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

func (a *App) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if a.isAllowedCORSOrigin(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *App) isAllowedCORSOrigin(origin string) bool {
	if origin == "" || a.cfg == nil {
		return false
	}
	if a.cfg.PublicBaseURL != "" && origin == a.cfg.PublicBaseURL {
		return true
	}
	if !strings.EqualFold(a.cfg.Env, "development") {
		return false
	}
	return origin == devCORSOriginLocalhost || origin == devCORSOriginLoopback
}

func errorEnvelope(status int, name, message string) gin.H {
	return gin.H{
		"data": nil,
		"error": gin.H{
			"status":  status,
			"name":    name,
			"message": message,
		},
	}
}

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, errorEnvelope(apiErr.Status, apiErr.Code, apiErr.Message))
		return
	}

	c.JSON(http.StatusInternalServerError, errorEnvelope(http.StatusInternalServerError, "InternalServerError", "Internal Server Error"))
}
