package middleware

import (
	"crypto/subtle"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	ProcessTokenHeader = "X-Process-Token"
	CleanupTokenHeader = "X-Cleanup-Token"

	processTokenEnv = "PROCESS_TOKEN"
	cleanupTokenEnv = "CLEANUP_TOKEN"
)

// NewProcessTokenMiddleware guards the internal dispatch endpoint with the
// shared secret the task dispatcher sends along. A missing secret on the
// server side is a deployment error, not a client error.
func (m *middleware) NewProcessTokenMiddleware(ctx *fiber.Ctx) error {
	return m.checkSharedToken(ctx, ProcessTokenHeader, processTokenEnv)
}

func (m *middleware) NewCleanupTokenMiddleware(ctx *fiber.Ctx) error {
	return m.checkSharedToken(ctx, CleanupTokenHeader, cleanupTokenEnv)
}

func (m *middleware) checkSharedToken(ctx *fiber.Ctx, header string, envName string) error {
	expected := os.Getenv(envName)
	if expected == "" {
		m.log.WithFields(logrus.Fields{
			"path": ctx.Path(),
			"env":  envName,
		}).Error("Shared token is not configured")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server token is not configured",
		})
	}

	got := ctx.Get(header)
	if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		m.log.WithFields(logrus.Fields{
			"path":      ctx.Path(),
			"client_ip": ctx.IP(),
		}).Warn("Rejected request with invalid shared token")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, token invalid",
		})
	}

	return ctx.Next()
}
