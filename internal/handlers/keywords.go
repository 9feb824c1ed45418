package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tenderwatch/tenderwatch/internal/config"
	"github.com/tenderwatch/tenderwatch/internal/models"
	"github.com/tenderwatch/tenderwatch/internal/services"
	"github.com/tenderwatch/tenderwatch/internal/utils"
	"gorm.io/gorm"
)

// KeywordHandler handles keyword subscription routes
type KeywordHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// keywordBody is the request body for keyword creation
type keywordBody struct {
	Text string `json:"text"`
}

// ListKeywords handles GET /api/keywords
// @Summary List keyword subscriptions
// @Description List the current user's keyword subscriptions
// @Tags Keywords
// @Accept json
// @Produce json
// @Success 200 {array} models.Keyword
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /keywords [get]
func (h *KeywordHandler) ListKeywords(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "keywords.authorization.user")
	}

	keywords, err := services.ListKeywords(h.DB, userID)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listKeywords")
	}

	if len(keywords) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusOK).JSON(keywords)
}

// AddKeyword handles POST /api/keywords
// @Summary Add a keyword subscription
// @Description Subscribe the current user to a keyword; the keyword count is gated by subscription tier
// @Tags Keywords
// @Accept json
// @Produce json
// @Param body body keywordBody true "Keyword text"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 402 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /keywords [post]
func (h *KeywordHandler) AddKeyword(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "keywords.authorization.user")
	}

	var body keywordBody
	if err := c.BodyParser(&body); err != nil || body.Text == "" {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "keywords.validation.input")
	}

	limit := h.Cfg.FreeKeywordLimit
	if services.GetTier(h.DB, userID) == models.TierPro {
		limit = h.Cfg.ProKeywordLimit
	}

	keyword, err := services.AddKeyword(h.DB, userID, body.Text, limit)
	if err != nil {
		if errors.Is(err, services.ErrKeywordLimit) {
			return utils.ErrorResponse(c, "Keyword limit reached for your subscription tier",
				fiber.StatusPaymentRequired, "keywords.limit")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "addKeyword")
	}

	return utils.MutationSuccessResponse(c, keyword)
}

// DeleteKeyword handles DELETE /api/keywords/:keywordId
// @Summary Delete a keyword subscription
// @Description Remove one of the current user's keyword subscriptions; shared tender data is untouched
// @Tags Keywords
// @Accept json
// @Produce json
// @Param keywordId path int true "Keyword ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /keywords/{keywordId} [delete]
func (h *KeywordHandler) DeleteKeyword(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "keywords.authorization.user")
	}

	keywordID, err := strconv.ParseUint(c.Params("keywordId"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid keywordId", fiber.StatusBadRequest, "keywords.validation.input")
	}

	if err := services.DeleteKeyword(h.DB, userID, keywordID); err != nil {
		if err.Error() == "not found" {
			return utils.NotFoundResponse(c, "Keyword not found")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteKeyword")
	}

	return utils.MutationSuccessResponse(c, fiber.Map{"deleted": keywordID})
}
