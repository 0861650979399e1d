package jobHandler

import (
	"VideoCropper/internal/api/job"
	contextPkg "VideoCropper/pkg/context"
	"VideoCropper/pkg/handlerUtil"
	"VideoCropper/pkg/log"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ProcessJob is the dispatcher-facing worker endpoint. The dispatcher treats
// any 2xx or 4xx response as terminal delivery, so pipeline failures are
// reported as 200 with ok:false; the job record already carries the error.
// Only a missing job gets a 404, and only transport-level trouble should
// surface as 5xx so the lease expires and the delivery is retried.
func (h *JobHandler) ProcessJob(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	var req job.ProcessJobRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("request body must be JSON with a job_id field"), ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"job_id":     req.JobID,
	}).Info("Processing dispatched job")

	if err := h.jobService.ProcessJob(c, req.JobID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_job")
		}

		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"job_id":     req.JobID,
			"error":      err.Error(),
		}).Warn("Dispatched job finished with failure")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
		"ok": true,
	})
}
