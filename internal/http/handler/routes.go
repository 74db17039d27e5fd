package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"deckstamp/internal/service"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Conversions    service.ConversionService
	MaxUploadBytes int64
	// Checks run on /health; an empty list always reports healthy.
	Checks []Check
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/", Landing())
	app.Get("/health", HealthCheck(d.Checks...))
	app.Get("/healthz", LivenessProbe())

	app.Post("/process", Process(d.Conversions, d.MaxUploadBytes))
	app.Get("/conversions", ListConversions(d.Conversions))
	app.Get("/conversions/:id", GetConversion(d.Conversions))

	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}
}
