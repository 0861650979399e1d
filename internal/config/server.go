package config

import (
	"VideoCropper/database/postgres"
	jobHandler "VideoCropper/internal/api/job/handler"
	jobRepository "VideoCropper/internal/api/job/repository"
	jobService "VideoCropper/internal/api/job/service"
	"VideoCropper/internal/cropper"
	"VideoCropper/internal/middleware"
	"VideoCropper/pkg/detector"
	"VideoCropper/pkg/s3"
	"VideoCropper/pkg/taskqueue"
	"VideoCropper/pkg/utils"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	internals      []internalHandler
	storageClient  s3.ItfStorage
	detectorClient detector.IDetector
	taskQueue      taskqueue.ITaskQueue
}

type handler interface {
	Start(srv fiber.Router)
}

type internalHandler interface {
	StartInternal(srv fiber.Router)
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

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
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

func WithStorageClient() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before storage client")
		}
		client, err := s3.New(s.log)
		if err != nil {
			s.log.Errorf("Failed to initialize storage client: %v", err)
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		s.storageClient = client
		return nil
	}
}

func WithDetectorClient(client detector.IDetector) ServerOption {
	return func(s *Server) error {
		s.detectorClient = client
		return nil
	}
}

func WithTaskQueue(queue taskqueue.ITaskQueue) ServerOption {
	return func(s *Server) error {
		s.taskQueue = queue
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

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	videoCropper, err := cropper.New(cropper.ConfigFromEnv(), s.log, s.storageClient, s.detectorClient)
	if err != nil {
		return fmt.Errorf("failed to create cropper: %w", err)
	}

	// Job Domain
	jobRepo := jobRepository.New(s.db, s.log)
	jobServices := jobService.New(s.log, jobRepo, videoCropper, s.taskQueue, s.utils)
	jobHandlers := jobHandler.New(s.log, s.validator, s.middleware, jobServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, jobHandlers)
	s.internals = append(s.internals, jobHandlers)

	return nil
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}
	for _, h := range s.internals {
		h.StartInternal(s.engine)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
