package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tenderwatch/tenderwatch/internal/models"
	"github.com/tenderwatch/tenderwatch/internal/pipeline"
	"github.com/tenderwatch/tenderwatch/internal/services"
	"github.com/tenderwatch/tenderwatch/internal/utils"
	"gorm.io/gorm"
)

// TenderHandler handles tender search and per-user view state routes
type TenderHandler struct {
	DB       *gorm.DB
	Upstream services.Searcher
}

// GetTenders handles GET /api/tenders
// @Summary Search tenders for the current user
// @Description Run a search over the user's keywords and return the deduplicated, view-decorated tender list
// @Tags Tenders
// @Accept json
// @Produce json
// @Success 200 {object} services.SearchResult
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tenders [get]
func (h *TenderHandler) GetTenders(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "tenders.authorization.user")
	}

	keywords, err := services.ListKeywords(h.DB, userID)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getTenders")
	}

	result, err := services.RunSearch(c.UserContext(), h.DB, h.Upstream, userID, services.KeywordTexts(keywords))
	if err != nil {
		if errors.Is(err, pipeline.ErrVersionConflict) {
			return utils.VersionConflictResponse(c)
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getTenders")
	}

	if len(result.Tenders) == 0 && len(result.Outcomes) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// viewFlagBody is the request body for archive/highlight mutations
type viewFlagBody struct {
	Value bool `json:"value"`
}

// ArchiveTender handles POST /api/tenders/:tenderId/archive
// @Summary Archive or unarchive a tender
// @Description Set the archived flag on the current user's view of a tender
// @Tags Tenders
// @Accept json
// @Produce json
// @Param tenderId path string true "Tender ID"
// @Param body body viewFlagBody true "Flag value"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tenders/{tenderId}/archive [post]
func (h *TenderHandler) ArchiveTender(c *fiber.Ctx) error {
	return h.setViewFlag(c, services.SetArchived, "archiveTender")
}

// HighlightTender handles POST /api/tenders/:tenderId/highlight
// @Summary Highlight or unhighlight a tender
// @Description Set the highlighted flag on the current user's view of a tender
// @Tags Tenders
// @Accept json
// @Produce json
// @Param tenderId path string true "Tender ID"
// @Param body body viewFlagBody true "Flag value"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tenders/{tenderId}/highlight [post]
func (h *TenderHandler) HighlightTender(c *fiber.Ctx) error {
	return h.setViewFlag(c, services.SetHighlighted, "highlightTender")
}

type viewMutation func(db *gorm.DB, userID, tenderID string, value bool) (*models.TenderView, error)

func (h *TenderHandler) setViewFlag(c *fiber.Ctx, mutate viewMutation, errorType string) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "tenders.authorization.user")
	}

	tenderID := c.Params("tenderId")
	if tenderID == "" {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "tenders.validation.input")
	}

	var body viewFlagBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "tenders.validation.input")
	}

	view, err := mutate(h.DB, userID, tenderID, body.Value)
	if err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, fmt.Sprintf("Tender '%s' not found", tenderID))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
	}

	return utils.MutationSuccessResponse(c, view)
}
