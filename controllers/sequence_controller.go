package controller

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"salesloom/builder"
	"salesloom/models"
	"salesloom/store"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SequenceController serves the sequence CRUD surface consumed by the
// builder front-end.
type SequenceController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Store    *store.SequenceStore
	Realtime *store.Realtime
}

func NewSequenceController(db *gorm.DB, logger *log.Logger, st *store.SequenceStore, rt *store.Realtime) *SequenceController {
	return &SequenceController{DB: db, Logger: logger, Store: st, Realtime: rt}
}

func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		CampaignID uint          `json:"campaign_id"`
		Name       string        `json:"name"`
		Steps      []models.Step `json:"steps"`
	}

	if err := c.BodyParser(&input); err != nil {
		sc.Logger.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}
	if input.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sequence name is required",
		})
	}

	// Campaign must exist and belong to the caller
	var campaign models.Campaign
	if err := sc.DB.Where("user_id = ?", user.ID).First(&campaign, input.CampaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Campaign not found",
			})
		}
		sc.Logger.Printf("Failed to load campaign %d: %v", input.CampaignID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign",
		})
	}

	// Drafts may be incomplete, but steps still get the cheap field checks
	if errs := fieldErrors(input.Steps); len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Step validation failed",
			"errors": errs,
		})
	}

	seq := models.Sequence{
		UserID:     user.ID,
		CampaignID: campaign.ID,
		Name:       input.Name,
		Status:     models.SequenceStatusDraft,
		Steps:      input.Steps,
	}
	if err := sc.Store.Create(c.Context(), &seq); err != nil {
		sc.Logger.Printf("Failed to create sequence: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create sequence",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(seq)
}

func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	campaignID := c.QueryInt("campaign_id", 0)
	if p := c.Params("campaignID"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			campaignID = v
		}
	}
	if campaignID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "campaign_id is required",
		})
	}

	sequences, err := sc.Store.ListByCampaign(c.Context(), user.ID, uint(campaignID))
	if err != nil {
		sc.Logger.Printf("Failed to list sequences: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list sequences",
		})
	}

	return c.JSON(fiber.Map{"sequences": sequences, "count": len(sequences)})
}

func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence id",
		})
	}

	seq, err := sc.Store.Get(c.Context(), user.ID, uint(id))
	if err != nil {
		return sc.storeError(c, err, "load")
	}

	return c.JSON(seq)
}

func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence id",
		})
	}

	var input struct {
		Name   *string        `json:"name"`
		Status *string        `json:"status"`
		Steps  *[]models.Step `json:"steps"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	seq, err := sc.Store.Get(c.Context(), user.ID, uint(id))
	if err != nil {
		return sc.storeError(c, err, "load")
	}

	if input.Name != nil {
		seq.Name = *input.Name
	}
	if input.Status != nil {
		switch *input.Status {
		case models.SequenceStatusDraft, models.SequenceStatusActive,
			models.SequenceStatusPaused, models.SequenceStatusCompleted:
			seq.Status = *input.Status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Invalid status %q", *input.Status),
			})
		}
	}
	if input.Steps != nil {
		if errs := fieldErrors(*input.Steps); len(errs) > 0 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":  "Step validation failed",
				"errors": errs,
			})
		}
		seq.Steps = *input.Steps
		for i := range seq.Steps {
			seq.Steps[i].StepOrder = i
		}
	}

	saved, err := sc.Store.UpdateSequence(c.Context(), seq)
	if err != nil {
		return sc.storeError(c, err, "update")
	}
	sc.publish(c, saved)

	return c.JSON(saved)
}

func (sc *SequenceController) ReorderSteps(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence id",
		})
	}

	var input struct {
		FromIndex int `json:"from_index"`
		ToIndex   int `json:"to_index"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	saved, err := sc.Store.ReorderSteps(c.Context(), user.ID, uint(id), input.FromIndex, input.ToIndex)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Sequence not found",
			})
		}
		sc.Logger.Printf("Failed to reorder sequence %d: %v", id, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid reorder indexes",
		})
	}
	sc.publish(c, saved)

	return c.JSON(saved)
}

func (sc *SequenceController) ValidateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence id",
		})
	}

	seq, err := sc.Store.Get(c.Context(), user.ID, uint(id))
	if err != nil {
		return sc.storeError(c, err, "load")
	}

	errs := builder.ValidateSequence(seq)
	return c.JSON(fiber.Map{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

func (sc *SequenceController) ActivateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence id",
		})
	}

	seq, err := sc.Store.Get(c.Context(), user.ID, uint(id))
	if err != nil {
		return sc.storeError(c, err, "load")
	}

	if errs := builder.ValidateSequence(seq); len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Sequence is not valid to activate",
			"errors": errs,
		})
	}

	seq.Status = models.SequenceStatusActive
	saved, err := sc.Store.UpdateSequence(c.Context(), seq)
	if err != nil {
		return sc.storeError(c, err, "activate")
	}
	sc.publish(c, saved)

	sc.Logger.Printf("Sequence %d activated by user %d", saved.ID, user.ID)
	return c.JSON(saved)
}

func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence id",
		})
	}

	if err := sc.Store.Delete(c.Context(), user.ID, uint(id)); err != nil {
		return sc.storeError(c, err, "delete")
	}

	return c.JSON(fiber.Map{"message": "Sequence deleted"})
}

// publish fans the saved state out to open editing sessions. REST writes use
// the auth session id as origin so a user's other tabs still hear about them.
func (sc *SequenceController) publish(c *fiber.Ctx, seq models.Sequence) {
	origin, _ := c.Locals("sessionID").(string)
	if err := sc.Realtime.Publish(c.Context(), "rest:"+origin, seq); err != nil {
		sc.Logger.Printf("Failed to publish sequence %d update: %v", seq.ID, err)
	}
}

func (sc *SequenceController) storeError(c *fiber.Ctx, err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}
	sc.Logger.Printf("Failed to %s sequence: %v", op, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to " + op + " sequence",
	})
}

func fieldErrors(steps []models.Step) []builder.ValidationError {
	var errs []builder.ValidationError
	for i, step := range steps {
		for _, e := range builder.ValidateStep(step) {
			errs = append(errs, builder.ValidationError{
				Path:    fmt.Sprintf("steps[%d].%s", i, e.Path),
				Message: e.Message,
			})
		}
	}
	return errs
}
