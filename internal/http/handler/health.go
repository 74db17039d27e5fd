package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

// Check is one readiness dependency.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// AvailabilityProber is satisfied by *render.Prober.
type AvailabilityProber interface {
	Available(ctx context.Context) bool
}

type errUnavailable string

func (e errUnavailable) Error() string { return string(e) }

// DatabaseCheck pings the ledger database.
func DatabaseCheck(db Pinger) Check {
	return Check{Name: "database", Fn: db.PingContext}
}

// RenderCheck reports whether the conversion engine can be started.
func RenderCheck(p AvailabilityProber) Check {
	return Check{Name: "render", Fn: func(ctx context.Context) error {
		if !p.Available(ctx) {
			return errUnavailable("render engine not found")
		}
		return nil
	}}
}

// HealthCheck godoc
// @Summary Readiness probe
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(checks ...Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		results := make(map[string]string, len(checks))
		for _, chk := range checks {
			if err := chk.Fn(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", chk.Name+" unavailable")
			}
			results[chk.Name] = "ok"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy", "checks": results})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
