// Package server hosts a Trainer behind an HTTP API, driving it in real
// time and streaming its telemetry over websockets
package server

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samuelfneumann/dronerl/config"
	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/experiment/checkpointer"
	"github.com/samuelfneumann/dronerl/logger"
)

// maxRenderWidth bounds the size of rendered snapshots
const maxRenderWidth = 4096

// Host owns a Trainer and serializes all access to it
type Host struct {
	mu      sync.Mutex
	trainer *experiment.Trainer

	hub      *Hub
	gatherer prometheus.Gatherer
	config   config.ServerConfig
	started  time.Time

	app *fiber.App
}

// New returns a Host for trainer. Telemetry is streamed through hub,
// which should be registered as an Observer of trainer, and metrics are
// served from gatherer.
func New(trainer *experiment.Trainer, hub *Hub,
	gatherer prometheus.Gatherer, c config.ServerConfig) *Host {
	h := &Host{
		trainer:  trainer,
		hub:      hub,
		gatherer: gatherer,
		config:   c,
		started:  time.Now(),
	}
	h.app = h.routes()
	return h
}

// App returns the fiber application serving the API
func (h *Host) App() *fiber.App {
	return h.app
}

func (h *Host) routes() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Output: logger.GetLogger().Writer(),
	}))

	api := app.Group("/api")
	api.Get("/health", h.health)
	api.Get("/state", h.state)
	api.Get("/settings", h.settings)
	api.Post("/episode/end", h.endEpisode)
	api.Put("/speed", h.setSpeed)
	api.Get("/weights", h.weights)
	api.Get("/render.png", h.render)

	app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}),
	))

	app.Use("/websocket", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/websocket/telemetry", websocket.New(h.hub.handle))

	return app
}

// Tick advances the Trainer by dt
func (h *Host) Tick(dt time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.trainer.Tick(dt)
}

// Run drives the Trainer in real time until ctx is done or a tick
// fails
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.config.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case now := <-ticker.C:
			if err := h.Tick(now.Sub(last)); err != nil {
				return fmt.Errorf("run: %v", err)
			}
			last = now
		}
	}
}

// Serve runs the telemetry hub, the training loop and the API until ctx
// is done or any of them fails
func (h *Host) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go h.hub.Run(ctx)

	errs := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- h.Run(ctx)
	}()
	go func() {
		logger.GetLogger().WithField("addr", h.config.Addr).
			Info("serving training API")
		errs <- h.app.Listen(h.config.Addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			cancel()
			h.app.Shutdown()
			return err
		}
	}
	return h.app.Shutdown()
}

func (h *Host) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "OK",
		"clients": h.hub.ClientCount(),
		"uptime":  time.Since(h.started).String(),
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (h *Host) state(c *fiber.Ctx) error {
	h.mu.Lock()
	snapshot := h.trainer.Snapshot()
	h.mu.Unlock()
	return c.JSON(snapshot)
}

func (h *Host) settings(c *fiber.Ctx) error {
	h.mu.Lock()
	settings := h.trainer.Settings()
	h.mu.Unlock()
	return c.JSON(settings)
}

func (h *Host) endEpisode(c *fiber.Ctx) error {
	h.mu.Lock()
	err := h.trainer.ForceEndEpisode()
	snapshot := h.trainer.Snapshot()
	h.mu.Unlock()

	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(snapshot)
}

type speedRequest struct {
	Speed int `json:"speed"`
}

func (h *Host) setSpeed(c *fiber.Ctx) error {
	var req speedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	h.mu.Lock()
	err := h.trainer.SetSpeed(req.Speed)
	h.mu.Unlock()

	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"speed": req.Speed})
}

func (h *Host) weights(c *fiber.Ctx) error {
	h.mu.Lock()
	actor, critic, err := h.trainer.ExportWeights()
	episode := h.trainer.EpisodeCount()
	h.mu.Unlock()

	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(checkpointer.Weights{
		Episode: episode,
		Actor:   actor,
		Critic:  critic,
	})
}

func (h *Host) render(c *fiber.Ctx) error {
	width := c.QueryInt("width", h.config.RenderWidth)
	if width <= 0 || width > maxRenderWidth {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("width must be in (0, %v]", maxRenderWidth))
	}

	var buf bytes.Buffer
	h.mu.Lock()
	err := h.trainer.Environment().EncodePNG(&buf, width)
	h.mu.Unlock()

	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Type("png")
	return c.Send(buf.Bytes())
}
