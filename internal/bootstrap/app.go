package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/locvowork/excelmapper/internal/config"
	"github.com/locvowork/excelmapper/internal/database"
	"github.com/locvowork/excelmapper/internal/domain"
	"github.com/locvowork/excelmapper/internal/handler"
	"github.com/locvowork/excelmapper/internal/logger"
	"github.com/locvowork/excelmapper/internal/repository"
	"github.com/locvowork/excelmapper/internal/service"
)

type App struct {
	Echo *echo.Echo
	DB   *sql.DB
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	logger.InitLogging(cfg.LOG_FILE_PATH)
	logger.SetLevel(cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	// Without DB_HOST the service runs on an in-memory store
	var empRepo domain.EmployeeRepository
	if cfg.DB_HOST != "" {
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            cfg.DB_HOST,
			Port:            cfg.DB_PORT,
			User:            cfg.DB_USER,
			Password:        cfg.DB_PASSWORD,
			DBName:          cfg.DB_NAME,
			SSLMode:         cfg.DB_SSL_MODE,
			MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.DB = db
		empRepo = repository.NewEmployeeRepository(db)
	} else {
		logger.WarnLog(ctx, "DB_HOST is not set, using in-memory employee store")
		empRepo = repository.NewMemoryEmployeeRepository()
	}

	mapper, err := service.NewEmployeeMapper(logger.Logger(), cfg.EXCEL_MAPPING_FILE)
	if err != nil {
		return fmt.Errorf("failed to configure employee sheet: %w", err)
	}
	empSvc := service.NewEmployeeService(empRepo, mapper, cfg.IMPORT_WORKERS)
	empHandler := handler.NewEmployeeHandler(empSvc, cfg.MAX_UPLOAD_MB)

	a.RegisterMiddlewares(cfg.MAX_UPLOAD_MB)
	a.RegisterRoutes(empHandler)
	return nil
}

func (a *App) RegisterMiddlewares(maxUploadMB int64) {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(requestContext)
	// batch uploads carry several files, each up to maxUploadMB
	a.Echo.Use(middleware.BodyLimit(fmt.Sprintf("%dM", 4*maxUploadMB)))
}

// requestContext copies the request id into the request context for the
// logger helpers.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		req := c.Request()
		c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), id)))
		return next(c)
	}
}

func (a *App) RegisterRoutes(empHandler *handler.EmployeeHandler) {
	g := a.Echo.Group("/employees")
	g.GET("", empHandler.ListHandler)
	g.POST("", empHandler.CreateHandler)
	g.GET("/export", empHandler.ExportHandler)
	g.POST("/import", empHandler.ImportHandler)
	g.POST("/import/batch", empHandler.ImportBatchHandler)
	g.GET("/:id", empHandler.GetHandler)
}

func (a *App) Run() error {
	if a.DB != nil {
		defer a.DB.Close()
	}
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
