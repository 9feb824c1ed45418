package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tenderwatch/tenderwatch/internal/config"
	"github.com/tenderwatch/tenderwatch/internal/services"
	"github.com/tenderwatch/tenderwatch/internal/utils"
	"gorm.io/gorm"
)

// BillingHandler handles payment provider webhook and subscription routes
type BillingHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Webhook handles POST /api/billing/webhook
// @Summary Payment provider webhook
// @Description Apply a subscription lifecycle event from the payment provider; the body must carry a valid HMAC signature
// @Tags Billing
// @Accept json
// @Produce json
// @Param X-Billing-Signature header string true "Hex HMAC-SHA256 of the body"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /billing/webhook [post]
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get("X-Billing-Signature")
	if signature == "" {
		return utils.ErrorResponse(c, "Missing webhook signature", fiber.StatusForbidden, "billing.signature")
	}

	sub, err := services.HandleWebhook(h.DB, c.Body(), signature, h.Cfg.BillingWebhookSecret)
	if err != nil {
		if errors.Is(err, services.ErrBadSignature) {
			return utils.ErrorResponse(c, "Invalid webhook signature", fiber.StatusForbidden, "billing.signature")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "billing.webhook")
	}

	return utils.MutationSuccessResponse(c, fiber.Map{"tier": sub.Tier, "status": sub.Status})
}

// GetSubscription handles GET /api/subscription
// @Summary Get current subscription tier
// @Description Return the current user's effective subscription tier
// @Tags Billing
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /subscription [get]
func (h *BillingHandler) GetSubscription(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "billing.authorization.user")
	}

	tier := services.GetTier(h.DB, userID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"tier": tier})
}
