package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/drivingschool-api/internal/handler"
	"github.com/noah-isme/drivingschool-api/internal/middleware"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/service"
	"github.com/noah-isme/drivingschool-api/pkg/config"
	"github.com/noah-isme/drivingschool-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/drivingschool-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/drivingschool-api/pkg/middleware/requestid"
	"github.com/noah-isme/drivingschool-api/pkg/response"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth       *handler.AuthHandler
	ClassTypes *handler.ClassTypeHandler
	Students   *handler.StudentHandler
	Coaches    *handler.CoachHandler
	Payments   *handler.PaymentHandler
	Exams      *handler.ExamHandler
	Salaries   *handler.SalaryHandler
	Dashboard  *handler.DashboardHandler
	Metrics    *handler.MetricsHandler
}

// Dependencies are the cross-cutting collaborators needed by middleware.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	Tokens  middleware.TokenValidator
	Audit   middleware.AuditWriter
}

// New builds the gin engine with middleware and every API route.
func New(deps Dependencies, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{APIPrefix: "/api"}
	}
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(logger.Recovery(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics, "/health", "/ready", "/metrics"))
	r.Use(response.ExposeErrors(!cfg.IsProduction()))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if !cfg.IsProduction() {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	secured.GET("/auth/me", h.Auth.Me)
	secured.GET("/dashboard/summary", h.Dashboard.Summary)

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, logr, action, resource)
	}

	adminOnly := middleware.RequireRoles()
	finance := middleware.RequireRoles(models.RoleFinance)
	academic := middleware.RequireRoles(models.RoleAcademic)
	staff := middleware.RequireRoles(models.RoleFinance, models.RoleAcademic)

	classTypes := secured.Group("/class-types")
	{
		classTypes.GET("", staff, h.ClassTypes.List)
		classTypes.GET("/:id", staff, h.ClassTypes.Get)
		classTypes.GET("/:id/price-logs", staff, h.ClassTypes.PriceHistory)
		classTypes.POST("", adminOnly, h.ClassTypes.Create)
		classTypes.PUT("/:id", adminOnly, h.ClassTypes.Update)
		classTypes.PUT("/:id/price", adminOnly, audit(models.AuditActionPriceChange, "class_type"), h.ClassTypes.UpdatePrice)
		classTypes.DELETE("/:id", adminOnly, h.ClassTypes.Delete)
	}

	coaches := secured.Group("/coaches")
	{
		coaches.GET("", staff, h.Coaches.List)
		coaches.GET("/:id", staff, h.Coaches.Get)
		coaches.POST("", adminOnly, h.Coaches.Create)
		coaches.PUT("/:id", adminOnly, h.Coaches.Update)
		coaches.DELETE("/:id", adminOnly, h.Coaches.Delete)
	}

	students := secured.Group("/students")
	{
		students.GET("", staff, h.Students.List)
		students.GET("/:id", staff, h.Students.Get)
		students.POST("", academic, h.Students.Create)
		students.PUT("/:id", academic, h.Students.Update)
		students.DELETE("/:id", academic, h.Students.Delete)
	}

	payments := secured.Group("/payments", finance)
	{
		payments.GET("", h.Payments.List)
		payments.GET("/export", h.Payments.Export)
		payments.POST("", audit(models.AuditActionPaymentRecord, "payment"), h.Payments.Record)
		payments.POST("/refund", audit(models.AuditActionPaymentRefund, "payment"), h.Payments.Refund)
		payments.POST("/discount", audit(models.AuditActionPaymentDiscount, "payment"), h.Payments.Discount)
		payments.DELETE("/:id", audit(models.AuditActionPaymentDelete, "payment"), h.Payments.Delete)
	}

	schedules := secured.Group("/exam-schedules")
	{
		schedules.GET("", staff, h.Exams.ListSchedules)
		schedules.GET("/:id", staff, h.Exams.GetSchedule)
		schedules.POST("", academic, h.Exams.CreateSchedule)
		schedules.PUT("/:id", academic, h.Exams.UpdateSchedule)
		schedules.DELETE("/:id", academic, h.Exams.DeleteSchedule)
	}

	registrations := secured.Group("/exam-registrations")
	{
		registrations.GET("", staff, h.Exams.ListRegistrations)
		registrations.GET("/:id", staff, h.Exams.GetRegistration)
		registrations.POST("", academic, audit(models.AuditActionRegistration, "exam_registration"), h.Exams.CreateRegistration)
		registrations.DELETE("/:id", academic, audit(models.AuditActionRegistrationUndo, "exam_registration"), h.Exams.DeleteRegistration)
		registrations.PUT("/:id/result", academic, audit(models.AuditActionExamResult, "exam_registration"), h.Exams.RecordResult)
	}

	progress := secured.Group("/exam-progress", staff)
	{
		progress.GET("", h.Exams.ListProgress)
		progress.GET("/:studentId", h.Exams.GetProgress)
	}

	warnings := secured.Group("/exam-warnings", academic)
	{
		warnings.GET("", h.Exams.ListWarnings)
		warnings.PUT("/:id/handle", audit(models.AuditActionWarningHandle, "exam_warning"), h.Exams.HandleWarning)
	}

	salaries := secured.Group("/coach-salary", finance)
	{
		salaries.GET("/configs", h.Salaries.ListConfigs)
		salaries.POST("/configs", audit(models.AuditActionSalaryConfigWrite, "salary_config"), h.Salaries.CreateConfig)
		salaries.PUT("/configs/:id", audit(models.AuditActionSalaryConfigWrite, "salary_config"), h.Salaries.UpdateConfig)
		salaries.DELETE("/configs/:id", audit(models.AuditActionSalaryConfigWrite, "salary_config"), h.Salaries.DeleteConfig)
		salaries.POST("/generate", audit(models.AuditActionSalaryGenerate, "coach_salary"), h.Salaries.Generate)
		salaries.POST("/refresh", audit(models.AuditActionSalaryRefresh, "coach_salary"), h.Salaries.Refresh)
		salaries.GET("/export", h.Salaries.Export)
		salaries.GET("", h.Salaries.List)
		salaries.GET("/:id", h.Salaries.Get)
		salaries.PUT("/:id", audit(models.AuditActionSalaryUpdate, "coach_salary"), h.Salaries.Update)
		salaries.PUT("/:id/pay", audit(models.AuditActionSalaryPay, "coach_salary"), h.Salaries.Pay)
		salaries.DELETE("/:id", audit(models.AuditActionSalaryDelete, "coach_salary"), h.Salaries.Delete)
	}

	return r
}
