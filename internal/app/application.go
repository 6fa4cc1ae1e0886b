package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"course-player-backend/internal/background"
	"course-player-backend/internal/config"
	"course-player-backend/internal/handlers"
	"course-player-backend/internal/middleware"
	"course-player-backend/internal/models"
	"course-player-backend/internal/repository"
	"course-player-backend/internal/service"
	"course-player-backend/pkg/cache"
	"course-player-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db        *gorm.DB
	cache     *cache.Cache
	scheduler *background.Scheduler

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	router *gin.Engine
	server *http.Server
}

type repositoryContainer struct {
	User       repository.UserRepository
	Course     repository.CourseRepository
	Enrollment repository.EnrollmentRepository
	Progress   repository.ProgressRepository
	QuizResult repository.QuizResultRepository
}

type serviceContainer struct {
	Auth       *service.AuthService
	Course     *service.CourseService
	Enrollment *service.EnrollmentService
	Progress   *service.ProgressService
	Quiz       *service.QuizService
	Player     *service.PlayerService
}

type handlerContainer struct {
	Auth   *handlers.AuthHandler
	Course *handlers.CourseHandler
	Player *handlers.PlayerHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.runMigrations(); err != nil {
		return nil, err
	}

	if err := app.initCache(); err != nil {
		return nil, err
	}

	app.scheduler = background.NewScheduler(background.SchedulerConfig{})

	app.initRepositories()
	app.initServices()
	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)

	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.services.Player != nil {
		a.services.Player.CloseAll()
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Scheduler shutdown timed out", nil)
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Chapter{},
		&models.Lecture{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.Enrollment{},
		&models.LectureCompletion{},
		&models.QuizResult{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) initCache() error {
	cacheClient, err := cache.NewCache(a.cfg.RedisURL, a.cfg.EnableCache)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.cache = cacheClient
	return nil
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		User:       repository.NewUserRepository(a.db),
		Course:     repository.NewCourseRepository(a.db),
		Enrollment: repository.NewEnrollmentRepository(a.db),
		Progress:   repository.NewProgressRepository(a.db),
		QuizResult: repository.NewQuizResultRepository(a.db),
	}
}

func (a *Application) initServices() {
	courseService := service.NewCourseService(a.repositories.Course, a.repositories.Progress, a.cache)
	progressService := service.NewProgressService(a.repositories.Progress, courseService, a.cache)
	quizService := service.NewQuizService(a.repositories.QuizResult, courseService, progressService)

	a.services = serviceContainer{
		Auth:       service.NewAuthService(a.repositories.User, a.cfg.JWTSecret),
		Course:     courseService,
		Enrollment: service.NewEnrollmentService(a.repositories.Enrollment, a.repositories.Course),
		Progress:   progressService,
		Quiz:       quizService,
		Player: service.NewPlayerService(
			a.repositories.Enrollment,
			courseService,
			progressService,
			quizService,
			a.scheduler,
			a.cfg.LectureAdvanceDelay,
			a.cfg.QuizAdvanceDelay,
		),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Auth:   handlers.NewAuthHandler(a.services.Auth),
		Course: handlers.NewCourseHandler(a.services.Course, a.services.Enrollment, a.services.Progress, a.services.Quiz),
		Player: handlers.NewPlayerHandler(a.services.Player),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		{
			public.POST("/register", a.handlers.Auth.Register)
			public.POST("/login", a.handlers.Auth.Login)
			public.POST("/refresh", a.handlers.Auth.RefreshToken)

			public.GET("/courses", a.handlers.Course.List)
			public.GET("/courses/slug/:slug", a.handlers.Course.GetBySlug)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		{
			protected.GET("/me", a.handlers.Auth.Me)
			protected.PUT("/me/password", a.handlers.Auth.ChangePassword)

			protected.GET("/my/courses", a.handlers.Course.MyCourses)
			protected.POST("/courses/:id/enroll", a.handlers.Course.Enroll)
			protected.DELETE("/courses/:id/enroll", a.handlers.Course.Unenroll)

			protected.GET("/courses/:id/tree", a.handlers.Course.Tree)
			protected.GET("/courses/:id/progress", a.handlers.Course.Progress)
			protected.DELETE("/courses/:id/progress", a.handlers.Course.ResetProgress)
			protected.DELETE("/courses/:id/items/:itemId/complete", a.handlers.Course.Uncomplete)
			protected.GET("/courses/:id/quiz-results", a.handlers.Course.QuizHistory)
			protected.GET("/courses/:id/quizzes/:quizId/best", a.handlers.Course.QuizBest)

			player := protected.Group("/courses/:id/player")
			{
				player.POST("", a.handlers.Player.Start)
				player.GET("", a.handlers.Player.State)
				player.DELETE("", a.handlers.Player.Close)
				player.POST("/next", a.handlers.Player.Next)
				player.POST("/previous", a.handlers.Player.Previous)
				player.POST("/select", a.handlers.Player.Select)
				player.POST("/complete", a.handlers.Player.CompleteLecture)
				player.POST("/quiz/answer", a.handlers.Player.AnswerQuestion)
				player.POST("/quiz/submit", a.handlers.Player.SubmitQuiz)
				player.POST("/quiz/retry", a.handlers.Player.RetryQuiz)
				player.POST("/progress/refresh", a.handlers.Player.RefreshProgress)
			}
		}

		instructor := v1.Group("")
		instructor.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		instructor.Use(middleware.InstructorMiddleware())
		{
			instructor.POST("/courses/import", a.handlers.Course.Import)
		}

		admin := v1.Group("")
		admin.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.DELETE("/courses/:id", a.handlers.Course.Delete)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}
