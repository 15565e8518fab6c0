package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"LensFitter/database/postgres"
	"LensFitter/database/sqlite"
	authHandler "LensFitter/internal/api/auth/handler"
	authRepository "LensFitter/internal/api/auth/repository"
	authService "LensFitter/internal/api/auth/service"
	measurementHandler "LensFitter/internal/api/measurement/handler"
	measurementRepository "LensFitter/internal/api/measurement/repository"
	measurementService "LensFitter/internal/api/measurement/service"
	"LensFitter/internal/middleware"
	"LensFitter/pkg/bcrypt"
	"LensFitter/pkg/landmarker"
	"LensFitter/pkg/measurement"
	"LensFitter/pkg/redis"
	"LensFitter/pkg/s3"
	"LensFitter/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	bcryptUtils bcrypt.IBcrypt
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
	detector    landmarker.Detector
	measurer    *measurement.Engine
}

type handler interface {
	Start(srv fiber.Router)
}

// rootHandler is implemented by handlers that also serve unversioned paths.
type rootHandler interface {
	StartRoot(app fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("landmark detector is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log)
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.bcryptUtils == nil {
		server.bcryptUtils = bcrypt.New()
	}
	if server.measurer == nil {
		server.measurer = measurement.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase connects to PostgreSQL, or to the embedded SQLite file named by SQLITE_PATH
// when DB_DRIVER=sqlite.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		var (
			db  *sqlx.DB
			err error
		)
		switch os.Getenv("DB_DRIVER") {
		case "sqlite":
			path := os.Getenv("SQLITE_PATH")
			if path == "" {
				path = "./storage/lensfitter.db"
			}
			db, err = sqlite.New(path)
		default:
			db, err = postgres.New()
		}
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithDB(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithLandmarker uses detector as is, wrapped in the redis detection cache when a redis
// server was configured before this option.
func WithLandmarker(detector landmarker.Detector, cacheTTL time.Duration) ServerOption {
	return func(s *Server) error {
		if detector == nil {
			return fmt.Errorf("landmark detector is nil")
		}
		if s.redisServer != nil && cacheTTL > 0 {
			detector = landmarker.NewCachedDetector(detector, s.redisServer, cacheTTL, s.log)
		}
		s.detector = detector
		return nil
	}
}

func WithMeasurementEngine() ServerOption {
	return func(s *Server) error {
		constants, err := measurement.ConstantsFromEnv()
		if err != nil {
			return fmt.Errorf("invalid measurement constants: %w", err)
		}
		s.measurer = measurement.New(measurement.WithConstants(constants))
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	var measurementRepo measurementRepository.Repository
	if s.db != nil {
		// Auth Domain
		authRepo := authRepository.New(s.db, s.log)
		authServices := authService.New(s.log, authRepo, s.bcryptUtils, s.utils)
		authHandlers := authHandler.New(s.log, authServices, s.validator, s.middleware)
		s.handlers = append(s.handlers, authHandlers)

		measurementRepo = measurementRepository.New(s.db, s.log)
	} else {
		s.log.Warn("No database configured, accounts and measurement history are disabled")
	}

	// Measurement Domain
	measurementServices := measurementService.New(s.log, measurementRepo, s.detector, s.measurer, s.s3Client, s.utils)
	measurementHandlers := measurementHandler.New(s.log, s.validator, s.middleware, measurementServices, s.utils)
	s.handlers = append(s.handlers, measurementHandlers)
}

func (s *Server) App() *fiber.App {
	return s.engine
}

// Mount attaches middleware and routes; Run calls it before listening.
func (s *Server) Mount() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
		if r, ok := h.(rootHandler); ok {
			r.StartRoot(s.engine)
		}
	}
}

func (s *Server) Run() error {
	s.Mount()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "5000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)

	if s.detector != nil {
		if cerr := s.detector.Close(); cerr != nil {
			s.log.Warnf("Failed to close landmark detector: %v", cerr)
		}
	}
	if s.redisServer != nil {
		if cerr := s.redisServer.Close(); cerr != nil {
			s.log.Warnf("Failed to close redis: %v", cerr)
		}
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil {
			s.log.Warnf("Failed to close database: %v", cerr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "LensFitter API is running",
		})
	})

	// A lost redis only disables the detection cache; a lost database fails the check.
	health := func(ctx *fiber.Ctx) error {
		c, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
		defer cancel()

		status, code, message := "healthy", fiber.StatusOK, "Server is Healthy!"
		checks := fiber.Map{}

		if s.db != nil {
			checks["database"] = "up"
			if err := s.db.PingContext(c); err != nil {
				s.log.WithField("error", err.Error()).Warn("Database health check failed")
				checks["database"] = "down"
				status, code, message = "unhealthy", fiber.StatusServiceUnavailable, "Database is unreachable"
			}
		}
		if s.redisServer != nil {
			checks["redis"] = "up"
			if err := s.redisServer.Ping(c); err != nil {
				s.log.WithField("error", err.Error()).Warn("Redis health check failed")
				checks["redis"] = "down"
				if code == fiber.StatusOK {
					status, message = "degraded", "Detection cache is unreachable"
				}
			}
		}

		return ctx.Status(code).JSON(fiber.Map{
			"status":  status,
			"message": message,
			"checks":  checks,
		})
	}
	s.engine.Get("/health", health)
	s.engine.Get("/api/health", health)
}
