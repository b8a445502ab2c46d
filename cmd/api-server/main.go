package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/drivingschool-api/api/swagger"
	"github.com/noah-isme/drivingschool-api/internal/handler"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	"github.com/noah-isme/drivingschool-api/internal/router"
	"github.com/noah-isme/drivingschool-api/internal/service"
	"github.com/noah-isme/drivingschool-api/pkg/cache"
	"github.com/noah-isme/drivingschool-api/pkg/config"
	"github.com/noah-isme/drivingschool-api/pkg/database"
	"github.com/noah-isme/drivingschool-api/pkg/export"
	"github.com/noah-isme/drivingschool-api/pkg/logger"
)

// @title Driving School Back Office API
// @version 1.0.0
// @description Student finance, exam progress and coach payroll.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	createUser := flag.Bool("create-user", false, "create an operator account and exit")
	username := flag.String("username", "", "login name for -create-user")
	password := flag.String("password", "", "password for -create-user")
	realName := flag.String("real-name", "", "display name for -create-user")
	role := flag.String("role", string(models.RoleAdmin), "role for -create-user (admin|finance|academic)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStart()

	db, err := database.NewPostgres(startCtx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	validate := validator.New()
	users := repository.NewUserRepository(db)
	auth := service.NewAuthService(users, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	if *createUser {
		user, err := auth.CreateUser(context.Background(), *username, *password, *realName, models.UserRole(*role))
		if err != nil {
			logr.Fatal("failed to create user", zap.Error(err))
		}
		logr.Info("user created", zap.String("id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
		return
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(startCtx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	classTypeRepo := repository.NewClassTypeRepository(db)
	coachRepo := repository.NewCoachRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	dashboard := service.NewDashboardService(repository.NewDashboardRepository(db), cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})
	classTypes := service.NewClassTypeService(classTypeRepo, validate, logr)
	coaches := service.NewCoachService(coachRepo, validate, logr)
	students := service.NewStudentService(studentRepo, classTypeRepo, coachRepo, validate, logr, dashboard)
	payments := service.NewPaymentService(repository.NewPaymentRepository(db), validate, logr, dashboard, metrics)
	schedules := service.NewExamScheduleService(repository.NewExamScheduleRepository(db), validate, logr)
	registrations := service.NewExamRegistrationService(repository.NewExamRegistrationRepository(db), validate, logr, dashboard, metrics)
	progress := service.NewExamProgressService(
		repository.NewExamProgressRepository(db),
		repository.NewExamWarningRepository(db),
		studentRepo,
		validate,
		logr,
		dashboard,
	)
	salaries := service.NewSalaryService(repository.NewSalaryRepository(db), validate, logr, metrics, service.SalaryServiceConfig{
		DefaultAttendanceDays: cfg.Payroll.DefaultAttendanceDays,
	})
	exports := service.NewExportService(salaries, payments, logr,
		export.NewCSVExporter(),
		export.NewXLSXExporter(),
		export.NewPDFExporter(cfg.Export.PDFFontPath),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.New(router.Dependencies{
		Config:  cfg,
		Logger:  logr,
		Metrics: metrics,
		Tokens:  auth,
		Audit:   users,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(auth),
		ClassTypes: handler.NewClassTypeHandler(classTypes),
		Students:   handler.NewStudentHandler(students),
		Coaches:    handler.NewCoachHandler(coaches),
		Payments:   handler.NewPaymentHandler(payments, exports),
		Exams:      handler.NewExamHandler(schedules, registrations, progress),
		Salaries:   handler.NewSalaryHandler(salaries, exports),
		Dashboard:  handler.NewDashboardHandler(dashboard),
		Metrics:    handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logr.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
