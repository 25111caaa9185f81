package controllers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/domain"
)

// EventController serves public event pages.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

// NewEventController creates an EventController.
func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{Logger: logger, Service: svc}
}

// GetEvent godoc
// @Summary Get an event
// @Description Returns the event, its spots and the availability an anonymous visitor sees.
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} helpers.APIResponse "data contains event, spots and stats"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /e/{slug} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	view, err := c.Service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}
