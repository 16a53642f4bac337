package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"postboard/accounts"
	"postboard/db"
	"postboard/models"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postboard_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method", "route"})
)

type ServerConfig struct {
	Store     db.Store
	Accounts  *accounts.Store
	Platforms []models.Platform

	// Comma separated list of origins allowed to call the API
	AllowOrigins string
}

// Server returns the fiber app serving the dashboard API
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "postboard",
		ErrorHandler: errorHandler,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(c.Method(), route).Observe(latency.Seconds())

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   route,
			"status":  status,
			"latency": latency,
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	allowOrigins := config.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Cache-Control",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	// Platforms only change with the config file
	api.Get("/platforms", cache.New(cache.Config{Expiration: time.Minute}), func(c *fiber.Ctx) error {
		platforms := config.Platforms
		if platforms == nil {
			platforms = []models.Platform{}
		}
		return c.JSON(platforms)
	})

	registerPosts(api, config.Store)
	registerMedia(api, config.Store)
	registerProfiles(api, config.Store)
	if config.Accounts != nil {
		registerAccounts(api, config.Accounts)
	}

	return app
}

// errorHandler turns errors that escape a handler into JSON bodies
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(models.ErrorResponse{Error: err.Error()})
}

// respondError maps store errors onto status codes. fallback is the message
// used for unexpected failures, which are logged rather than shown.
func respondError(c *fiber.Ctx, err error, notFound, fallback string) error {
	switch {
	case errors.Is(err, db.ErrInvalid), errors.Is(err, accounts.ErrInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, db.ErrNotFound), errors.Is(err, accounts.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: notFound})
	case errors.Is(err, db.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{Error: err.Error()})
	}

	log.WithFields(log.Fields{
		"route": c.Route().Path,
		"error": err,
	}).Error(fallback)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: fallback})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: message})
}
