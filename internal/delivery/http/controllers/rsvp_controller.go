package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/delivery/http/middleware"
	"townhall/internal/domain"
)

// sessionParam carries the continuation token on every RSVP step.
const sessionParam = "session"

// GuestListRequest is the request body for POST /e/{slug}/guestlist.
type GuestListRequest struct {
	Email string `json:"email" validate:"required"`
}

// StatusResponse is the body of GET /e/{slug}/rsvp/status.
type StatusResponse struct {
	Status domain.RsvpStatus `json:"status"`
}

// RsvpController serves the multi-step RSVP flow. Every step after the first
// carries ?session=<token>; POSTs answer with a redirect to the next step.
type RsvpController struct {
	Logger  *slog.Logger
	Service domain.RsvpService
}

// NewRsvpController creates an RsvpController.
func NewRsvpController(logger *slog.Logger, svc domain.RsvpService) *RsvpController {
	return &RsvpController{Logger: logger, Service: svc}
}

// Start godoc
// @Summary Start an RSVP
// @Description Creates a pending session and redirects to the selection step. Invite-only events redirect anonymous visitors to the guest list prompt.
// @Tags rsvp
// @Param slug path string true "Event slug"
// @Success 302
// @Failure 403 {object} helpers.APIResponse "error.code: gated"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /e/{slug}/rsvp [post]
func (c *RsvpController) Start(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	viewer, _ := middleware.UserFromContext(r.Context())
	session, err := c.Service.Start(r.Context(), slug, viewer)
	if err != nil {
		c.stepError(w, r, slug, "", err)
		return
	}
	helpers.Redirect(w, r, stepURL(slug, domain.StepSelection, session.Token))
}

// GuestList godoc
// @Summary Guest list prompt
// @Tags rsvp
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /e/{slug}/guestlist [get]
func (c *RsvpController) GuestList(w http.ResponseWriter, r *http.Request) {
	view, err := c.Service.GuestList(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// StartFromGuestList godoc
// @Summary Start an RSVP with a guest list address
// @Tags rsvp
// @Accept json
// @Param slug path string true "Event slug"
// @Param body body GuestListRequest true "Address on the guest list"
// @Success 302
// @Failure 400 {object} helpers.APIResponse "error.code: attendees"
// @Failure 403 {object} helpers.APIResponse "error.code: gated"
// @Router /e/{slug}/guestlist [post]
func (c *RsvpController) StartFromGuestList(w http.ResponseWriter, r *http.Request) {
	var req GuestListRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	session, err := c.Service.StartFromGuestList(r.Context(), slug, req.Email)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.Redirect(w, r, stepURL(slug, domain.StepSelection, session.Token))
}

// Selection godoc
// @Summary Selection step
// @Tags rsvp
// @Produce json
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Success 200 {object} helpers.APIResponse "data contains spots, stats and the current selection"
// @Success 302 "the session is unknown or already paid"
// @Router /e/{slug}/rsvp/selection [get]
func (c *RsvpController) Selection(w http.ResponseWriter, r *http.Request) {
	slug, token := chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam)
	view, err := c.Service.Selection(r.Context(), slug, token)
	if err != nil {
		c.stepError(w, r, slug, token, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// SubmitSelection godoc
// @Summary Submit the selection
// @Description Replaces the pending seats of the session and redirects to the next step.
// @Tags rsvp
// @Accept json
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Param body body []domain.SelectionItem true "Chosen spots"
// @Success 302
// @Failure 400 {object} helpers.APIResponse "error.code: unknown_spot, spot_capacity, event_capacity, contribution_range, empty_selection or invalid_quantity"
// @Router /e/{slug}/rsvp/selection [post]
func (c *RsvpController) SubmitSelection(w http.ResponseWriter, r *http.Request) {
	items, ok := helpers.DecodeAndValidateList[domain.SelectionItem](w, r)
	if !ok {
		return
	}
	slug, token := chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam)
	viewer, _ := middleware.UserFromContext(r.Context())
	next, err := c.Service.SubmitSelection(r.Context(), slug, token, viewer, items)
	if err != nil {
		c.stepError(w, r, slug, token, err)
		return
	}
	helpers.Redirect(w, r, stepURL(slug, next, token))
}

// Attendees godoc
// @Summary Attendees step
// @Tags rsvp
// @Produce json
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Success 200 {object} helpers.APIResponse "data contains the seats to name"
// @Success 302 "an earlier step is incomplete"
// @Router /e/{slug}/rsvp/attendees [get]
func (c *RsvpController) Attendees(w http.ResponseWriter, r *http.Request) {
	slug, token := chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam)
	view, err := c.Service.Attendees(r.Context(), slug, token)
	if err != nil {
		c.stepError(w, r, slug, token, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// SubmitAttendees godoc
// @Summary Name every seat
// @Tags rsvp
// @Accept json
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Param body body []domain.AttendeeInput true "One row per pending seat"
// @Success 302
// @Failure 400 {object} helpers.APIResponse "error.code: attendees"
// @Router /e/{slug}/rsvp/attendees [post]
func (c *RsvpController) SubmitAttendees(w http.ResponseWriter, r *http.Request) {
	attendees, ok := helpers.DecodeAndValidateList[domain.AttendeeInput](w, r)
	if !ok {
		return
	}
	slug, token := chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam)
	if err := c.Service.SubmitAttendees(r.Context(), slug, token, attendees); err != nil {
		c.stepError(w, r, slug, token, err)
		return
	}
	helpers.Redirect(w, r, stepURL(slug, domain.StepContribution, token))
}

// Contribution godoc
// @Summary Review and pay
// @Description Returns the line items and, for a non-zero total, the embedded checkout client secret.
// @Tags rsvp
// @Produce json
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Success 200 {object} helpers.APIResponse "data contains line items and checkout details"
// @Success 302 "an earlier step is incomplete"
// @Router /e/{slug}/rsvp/contribution [get]
func (c *RsvpController) Contribution(w http.ResponseWriter, r *http.Request) {
	slug, token := chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam)
	view, err := c.Service.Contribution(r.Context(), slug, token)
	if err != nil {
		c.stepError(w, r, slug, token, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// ConfirmFree godoc
// @Summary Confirm a free RSVP
// @Tags rsvp
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Success 302
// @Failure 400 {object} helpers.APIResponse "error.code: payment_required"
// @Router /e/{slug}/rsvp/contribution [post]
func (c *RsvpController) ConfirmFree(w http.ResponseWriter, r *http.Request) {
	slug, token := chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam)
	if err := c.Service.ConfirmFree(r.Context(), slug, token); err != nil {
		c.stepError(w, r, slug, token, err)
		return
	}
	helpers.Redirect(w, r, stepURL(slug, domain.StepManage, token))
}

// Manage godoc
// @Summary Manage an RSVP
// @Description Waits for the payment webhook when the session is still pending, then shows the seats.
// @Tags rsvp
// @Produce json
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Success 200 {object} helpers.APIResponse "data contains status and seats"
// @Router /e/{slug}/rsvp/manage [get]
func (c *RsvpController) Manage(w http.ResponseWriter, r *http.Request) {
	slug, token := chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam)
	view, err := c.Service.Manage(r.Context(), slug, token)
	if err != nil {
		c.stepError(w, r, slug, token, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// Status godoc
// @Summary Session status
// @Tags rsvp
// @Produce json
// @Param slug path string true "Event slug"
// @Param session query string true "Continuation token"
// @Success 200 {object} helpers.APIResponse "data contains status"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /e/{slug}/rsvp/status [get]
func (c *RsvpController) Status(w http.ResponseWriter, r *http.Request) {
	status, err := c.Service.Status(r.Context(), chi.URLParam(r, "slug"), r.URL.Query().Get(sessionParam))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: status})
}

// stepError redirects the flow errors to the page that can resolve them and
// writes everything else as a JSON error.
func (c *RsvpController) stepError(w http.ResponseWriter, r *http.Request, slug, token string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		helpers.Redirect(w, r, eventURL(slug))
	case errors.Is(err, domain.ErrGuestListRequired):
		helpers.Redirect(w, r, eventURL(slug)+"/guestlist")
	case errors.Is(err, domain.ErrSessionPaid):
		helpers.Redirect(w, r, stepURL(slug, domain.StepManage, token))
	case errors.Is(err, domain.ErrNeedsSelection):
		helpers.Redirect(w, r, stepURL(slug, domain.StepSelection, token))
	case errors.Is(err, domain.ErrNeedsAttendees):
		helpers.Redirect(w, r, stepURL(slug, domain.StepAttendees, token))
	default:
		helpers.WriteServiceError(w, r, c.Logger, err)
	}
}

func eventURL(slug string) string {
	return "/e/" + url.PathEscape(slug)
}

func stepURL(slug string, step domain.RsvpStep, token string) string {
	return eventURL(slug) + "/rsvp/" + string(step) + "?" + sessionParam + "=" + url.QueryEscape(token)
}
