package controller

import (
	"log"

	"salesloom/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CampaignController is the thin owner-side surface the builder needs:
// campaigns exist so sequences have something to belong to. Campaign
// scheduling and sending live elsewhere.
type CampaignController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCampaignController(db *gorm.DB, logger *log.Logger) *CampaignController {
	return &CampaignController{DB: db, Logger: logger}
}

func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}
	if input.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign name is required",
		})
	}

	campaign := models.Campaign{
		UserID:      user.ID,
		Name:        input.Name,
		Description: input.Description,
		Status:      "draft",
	}
	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.Printf("Failed to create campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaigns []models.Campaign
	if err := cc.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&campaigns).Error; err != nil {
		cc.Logger.Printf("Failed to list campaigns: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list campaigns",
		})
	}

	return c.JSON(fiber.Map{"campaigns": campaigns, "count": len(campaigns)})
}
