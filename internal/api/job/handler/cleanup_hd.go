package jobHandler

import (
	contextPkg "VideoCropper/pkg/context"
	"VideoCropper/pkg/handlerUtil"
	"VideoCropper/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *JobHandler) Cleanup(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Minute)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing cleanup request")

	resp, err := h.jobService.Cleanup(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "cleanup")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
	}
}
