package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/andesedu/cursos-api/api/swagger"
	"github.com/andesedu/cursos-api/internal/handler"
	"github.com/andesedu/cursos-api/internal/middleware"
	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/internal/repository"
	"github.com/andesedu/cursos-api/internal/service"
	"github.com/andesedu/cursos-api/pkg/cache"
	"github.com/andesedu/cursos-api/pkg/config"
	"github.com/andesedu/cursos-api/pkg/database"
	"github.com/andesedu/cursos-api/pkg/jobs"
	"github.com/andesedu/cursos-api/pkg/logger"
	corsmiddleware "github.com/andesedu/cursos-api/pkg/middleware/cors"
	reqidmiddleware "github.com/andesedu/cursos-api/pkg/middleware/requestid"
	"github.com/andesedu/cursos-api/pkg/storage"
)

// @title Cursos API
// @version 1.0.0
// @description Course inscription, invoicing and reporting platform
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	exportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	// repositories
	courseRepo := repository.NewCourseRepository(db)
	personRepo := repository.NewPersonRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	inscriptionRepo := repository.NewInscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)

	// cross-cutting services
	refs := service.NewReferenceValidator(courseRepo, personRepo, billingRepo, voucherRepo, discountRepo)
	guard := service.NewConflictGuard(inscriptionRepo, invoiceRepo, personRepo, courseRepo)
	audit := service.NewAuditRecorder(auditRepo, logr)
	metricsSvc := service.NewMetricsService()

	// domain services
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, inscriptionRepo, guard, validate, logr)
	personSvc := service.NewPersonService(personRepo, guard, validate, logr)
	billingSvc := service.NewBillingService(billingRepo, personRepo, validate, logr)
	voucherSvc := service.NewVoucherService(voucherRepo, exportStore, cfg.Vouchers, logr)
	discountSvc := service.NewDiscountService(discountRepo, validate, logr)
	inscriptionSvc := service.NewInscriptionService(inscriptionRepo, invoiceRepo, refs, guard, audit, validate, logr)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, inscriptionRepo, refs, guard, audit, validate, logr)
	reportSvc := service.NewReportService(reportRepo, redisClient, exportStore, signer, cfg.Reports.CacheTTL, logr)

	exportQueue := jobs.NewQueue("report-exports", reportSvc.HandleExportJob, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc.AttachQueue(exportQueue)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	exportQueue.Start(rootCtx)
	defer exportQueue.Stop()

	// handlers
	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	personHandler := handler.NewPersonHandler(personSvc, billingSvc)
	billingHandler := handler.NewBillingHandler(billingSvc)
	voucherHandler := handler.NewVoucherHandler(voucherSvc)
	discountHandler := handler.NewDiscountHandler(discountSvc)
	inscriptionHandler := handler.NewInscriptionHandler(inscriptionSvc, metricsSvc)
	invoiceHandler := handler.NewInvoiceHandler(invoiceSvc, metricsSvc)
	reportHandler := handler.NewReportHandler(reportSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	auditHandler := handler.NewAuditHandler(audit)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logr))
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	// public registration surface
	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)
	api.POST("/persons", personHandler.Create)
	api.GET("/persons/:id", personHandler.Get)
	api.POST("/billings", billingHandler.Create)
	api.GET("/billings/:id", billingHandler.Get)
	api.POST("/vouchers", voucherHandler.Upload)
	api.GET("/vouchers/:id", voucherHandler.Get)
	api.GET("/discounts/:id", discountHandler.Get)
	api.POST("/inscriptions", inscriptionHandler.Create)

	// staff surface
	staff := api.Group("")
	staff.Use(middleware.JWT(authSvc))
	staff.GET("/auth/me", authHandler.Me)
	staff.GET("/persons", personHandler.List)
	staff.PUT("/persons/:id", personHandler.Update)
	staff.GET("/persons/:id/billings", personHandler.ListBillings)
	staff.PUT("/billings/:id", billingHandler.Update)
	staff.POST("/discounts", discountHandler.Create)
	staff.GET("/inscriptions", inscriptionHandler.List)
	staff.GET("/inscriptions/:id", inscriptionHandler.Get)
	staff.PATCH("/inscriptions/:id", inscriptionHandler.Update)
	staff.DELETE("/inscriptions/:id", inscriptionHandler.Delete)
	staff.GET("/inscriptions/:id/invoice", invoiceHandler.GetByInscription)
	staff.GET("/invoices", invoiceHandler.List)
	staff.GET("/invoices/:id", invoiceHandler.Get)
	staff.GET("/invoices/by-number/:number", invoiceHandler.GetByInvoiceNumber)
	staff.GET("/invoices/by-income/:number", invoiceHandler.GetByIncomeNumber)
	staff.POST("/invoices", invoiceHandler.Create)
	staff.PUT("/invoices/:id/numbers", invoiceHandler.UpdateNumbers)
	staff.POST("/invoices/:id/verify", invoiceHandler.VerifyPayment)
	staff.DELETE("/invoices/:id", invoiceHandler.Delete)
	staff.GET("/audit", auditHandler.Trail)
	staff.GET("/reports", reportHandler.Generate)
	staff.POST("/reports/exports", reportHandler.RequestExport)
	staff.GET("/reports/exports/:id", reportHandler.GetExport)

	// administrator surface
	admin := api.Group("")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.UserRoleAdmin))
	admin.POST("/courses", courseHandler.Create)
	admin.PUT("/courses/:id", courseHandler.Update)
	admin.DELETE("/courses/:id", courseHandler.Delete)

	// signed URL download stays public; the token itself is the credential
	api.GET("/reports/exports/download", reportHandler.Download)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
