package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/fernwood-app/homeschool-api/internal/handler"
	internalmiddleware "github.com/fernwood-app/homeschool-api/internal/middleware"
	"github.com/fernwood-app/homeschool-api/internal/repository"
	"github.com/fernwood-app/homeschool-api/internal/service"
	"github.com/fernwood-app/homeschool-api/pkg/cache"
	"github.com/fernwood-app/homeschool-api/pkg/config"
	"github.com/fernwood-app/homeschool-api/pkg/database"
	"github.com/fernwood-app/homeschool-api/pkg/export"
	"github.com/fernwood-app/homeschool-api/pkg/logger"
	corsmiddleware "github.com/fernwood-app/homeschool-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fernwood-app/homeschool-api/pkg/middleware/requestid"
)

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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, occurrence caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close()
		}
	}

	validate := validator.New()

	yearRepo := repository.NewSchoolYearRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	eventRepo := repository.NewEventRepository(db)

	metricsSvc := service.NewMetricsService()
	calendarSvc := service.NewCalendarService(yearRepo, validate, logr)
	schedulerSvc := service.NewSchedulerService(assignmentRepo, yearRepo, lessonRepo, validate, logr)
	recurrenceSvc := service.NewRecurrenceService(logr)

	var eventSvc *service.EventService
	if cacheRepo != nil {
		eventSvc = service.NewEventService(eventRepo, recurrenceSvc, cacheRepo, metricsSvc, cfg.Cache.OccurrenceTTL, validate, logr)
	} else {
		eventSvc = service.NewEventService(eventRepo, recurrenceSvc, nil, metricsSvc, cfg.Cache.OccurrenceTTL, validate, logr)
	}
	exportSvc := service.NewExportService(lessonRepo, eventRepo, export.NewCSVExporter(), export.NewPDFExporter(), cfg.Export, logr)

	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	schedulerHandler := handler.NewSchedulerHandler(schedulerSvc)
	eventHandler := handler.NewEventHandler(eventSvc, recurrenceSvc)
	exportHandler := handler.NewExportHandler(exportSvc, cfg.Export.Token)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)

	// feed token replaces the session for subscription clients
	api.GET("/export/calendar.ics", exportHandler.Feed)

	secured := api.Group("", internalmiddleware.Auth(cfg.JWT.Secret))
	{
		secured.POST("/school-years", calendarHandler.Create)
		secured.GET("/school-years", calendarHandler.List)
		secured.GET("/school-years/:id", calendarHandler.Get)
		secured.PUT("/school-years/:id/weekdays", calendarHandler.SetWeekdays)
		secured.PUT("/school-years/:id/overrides", calendarHandler.UpsertOverride)
		secured.DELETE("/school-years/:id/overrides/:date", calendarHandler.DeleteOverride)

		secured.GET("/curricula/:id/lessons", schedulerHandler.ListLessons)
		secured.POST("/curricula/:id/schedule/auto", schedulerHandler.AutoSchedule)
		secured.POST("/curricula/:id/schedule/reschedule", schedulerHandler.RescheduleAll)
		secured.POST("/curricula/:id/schedule/clear", schedulerHandler.ClearSchedule)
		secured.PUT("/assignments/:id/weekdays", schedulerHandler.SetAssignmentWeekdays)

		secured.POST("/events", eventHandler.Create)
		secured.GET("/events", eventHandler.List)
		secured.GET("/events/:id", eventHandler.Get)
		secured.PUT("/events/:id", eventHandler.Update)
		secured.DELETE("/events/:id", eventHandler.Delete)
		secured.POST("/events/:id/exceptions", eventHandler.AddException)
		secured.DELETE("/events/:id/exceptions/:date", eventHandler.RemoveException)
		secured.GET("/calendar/occurrences", eventHandler.ListOccurrences)
		secured.POST("/events/import-preview", eventHandler.ImportPreview)

		secured.GET("/export/schedule.csv", exportHandler.ScheduleCSV)
		secured.GET("/export/schedule.pdf", exportHandler.SchedulePDF)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
