package jobHandler

import (
	jobService "VideoCropper/internal/api/job/service"
	"VideoCropper/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type JobHandler struct {
	log        *logrus.Logger
	validator  *validator.Validate
	middleware middleware.Middleware
	jobService jobService.IJobService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	js jobService.IJobService,
) *JobHandler {
	return &JobHandler{
		log:        log,
		validator:  validate,
		middleware: middleware,
		jobService: js,
	}
}

func (h *JobHandler) Start(srv fiber.Router) {
	jobs := srv.Group("/jobs")

	jobs.Post("/", h.middleware.NewRateLimiter, h.SubmitJob)
	jobs.Get("/:id", h.GetJobStatus)
}

// StartInternal registers the endpoints driven by the dispatcher and the
// cleanup scheduler rather than end users. They sit outside the public API
// group and are guarded by shared-secret tokens.
func (h *JobHandler) StartInternal(srv fiber.Router) {
	srv.Post("/process", h.middleware.NewProcessTokenMiddleware, h.ProcessJob)
	srv.Post("/cleanup", h.middleware.NewCleanupTokenMiddleware, h.Cleanup)
}
