package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/domain"
)

// trackingPixel is a 1x1 GIF with a transparent background colour.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // GIF89a
	0x01, 0x00, 0x01, 0x00, // 1x1
	0x80, 0x00, 0x00, // two colour table, background 0
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x21, 0xF9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, // index 0 transparent
	0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0x02, 0x02, 0x4C, 0x01, 0x00,
	0x3B,
}

// UnsubscribeInfo is returned by GET /emails/{id}/unsubscribe.
type UnsubscribeInfo struct {
	EmailID int64  `json:"email_id"`
	Address string `json:"address"`
}

// EmailController serves the links embedded in sent emails.
type EmailController struct {
	Logger  *slog.Logger
	Service domain.EmailService
}

// NewEmailController creates an EmailController.
func NewEmailController(logger *slog.Logger, svc domain.EmailService) *EmailController {
	return &EmailController{Logger: logger, Service: svc}
}

// Pixel godoc
// @Summary Open tracking pixel
// @Description Records the first open of the email and always returns a 1x1 GIF.
// @Tags emails
// @Produce image/gif
// @Param id path int true "Email ID"
// @Success 200
// @Router /emails/{id}/footer.gif [get]
func (c *EmailController) Pixel(w http.ResponseWriter, r *http.Request) {
	if id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64); err == nil {
		if err := c.Service.TrackOpen(r.Context(), id); err != nil {
			c.Logger.WarnContext(r.Context(), "track open", "email_id", id, "err", err,
				"request_id", helpers.RequestIDFromContext(r.Context()))
		}
	}
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trackingPixel)
}

// UnsubscribeInfo godoc
// @Summary Show the address an unsubscribe link is for
// @Tags emails
// @Produce json
// @Param id path int true "Email ID"
// @Param token query string true "Signed unsubscribe token"
// @Success 200 {object} helpers.APIResponse "data contains the address"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /emails/{id}/unsubscribe [get]
func (c *EmailController) UnsubscribeInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	email, err := c.Service.UnsubscribeInfo(r.Context(), id, r.URL.Query().Get("token"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UnsubscribeInfo{EmailID: email.ID, Address: email.Address})
}

// Unsubscribe godoc
// @Summary Leave the list an email was sent to
// @Tags emails
// @Produce json
// @Param id path int true "Email ID"
// @Param token query string true "Signed unsubscribe token"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /emails/{id}/unsubscribe [post]
func (c *EmailController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.Service.Unsubscribe(r.Context(), id, r.URL.Query().Get("token")); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}
