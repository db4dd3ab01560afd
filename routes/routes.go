package routes

import (
	"log"
	"os"

	controller "salesloom/controllers"
	"salesloom/middleware"
	"salesloom/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, sequenceStore *store.SequenceStore, realtime *store.Realtime) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	sequenceController := controller.NewSequenceController(db, log.New(os.Stdout, "SEQUENCE: ", log.LstdFlags), sequenceStore, realtime)
	campaignController := controller.NewCampaignController(db, log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags))
	editWS := controller.NewSequenceEditWS(sequenceStore, realtime, log.New(os.Stdout, "EDIT-WS: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Campaign routes (owner side only)
	campaign := api.Group("/campaigns")
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/", campaignController.GetCampaigns)
	campaign.Get("/:campaignID/sequences", sequenceController.GetSequences)

	// Sequence builder routes, contained by the builder error boundary
	sequence := api.Group("/sequences", middleware.BuilderBoundary())
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetSequences)
	sequence.Get("/:id", sequenceController.GetSequence)
	sequence.Put("/:id", sequenceController.UpdateSequence)
	sequence.Delete("/:id", sequenceController.DeleteSequence)
	sequence.Post("/:id/reorder", sequenceController.ReorderSteps)
	sequence.Post("/:id/validate", middleware.ValidateRateLimiter(), sequenceController.ValidateSequence)
	sequence.Post("/:id/activate", sequenceController.ActivateSequence)

	// WebSocket route for the live editing channel
	app.Get("/api/v1/sequences/:id/edit", middleware.Protected(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return websocket.New(editWS.Handle)(c)
		}
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"error": "WebSocket upgrade required",
		})
	})

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("API routes initialized successfully")
}
