package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/domain"
)

// maxWebhookBytes bounds the payment provider payload.
const maxWebhookBytes = 64 << 10

// WebhookController receives payment provider callbacks.
type WebhookController struct {
	Logger  *slog.Logger
	Service domain.PaymentService
}

// NewWebhookController creates a WebhookController.
func NewWebhookController(logger *slog.Logger, svc domain.PaymentService) *WebhookController {
	return &WebhookController{Logger: logger, Service: svc}
}

// Stripe godoc
// @Summary Stripe webhook
// @Description Verifies the Stripe-Signature header and settles the RSVP session named by a completed checkout.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /webhooks/stripe [post]
func (c *WebhookController) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unreadable payload")
		return
	}
	err = c.Service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, domain.ErrNotFound) {
		// Retrying cannot help with a session that no longer exists.
		c.Logger.WarnContext(r.Context(), "webhook for unknown session", "err", err,
			"request_id", helpers.RequestIDFromContext(r.Context()))
		err = nil
	}
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]bool{"received": true})
}
