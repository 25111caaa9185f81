package controllers

import (
	"log/slog"
	"net/http"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/domain"
)

// BroadcastRequest is the request body for POST /admin/posts/{id}/broadcast.
type BroadcastRequest struct {
	ListID int64 `json:"list_id" validate:"required,gt=0"`
}

// BatchesResponse is the data of GET /admin/email-batches.
type BatchesResponse struct {
	Batches    []*domain.EmailBatch   `json:"batches"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// AdminController serves the writer and admin endpoints.
type AdminController struct {
	Logger *slog.Logger
	Emails domain.EmailService
}

// NewAdminController creates an AdminController.
func NewAdminController(logger *slog.Logger, emails domain.EmailService) *AdminController {
	return &AdminController{Logger: logger, Emails: emails}
}

// BroadcastPost godoc
// @Summary Send a post to a list
// @Description Queues one email per list member who has not already received the post through this list.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param body body BroadcastRequest true "Target list"
// @Success 202 {object} helpers.APIResponse "data contains the batch"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/posts/{id}/broadcast [post]
func (c *AdminController) BroadcastPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req BroadcastRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	batch, err := c.Emails.BroadcastPost(r.Context(), postID, req.ListID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusAccepted, batch)
}

// ListBatches godoc
// @Summary List email batches
// @Description Newest first, with sent and errored counters.
// @Tags admin
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains batches and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/email-batches [get]
func (c *AdminController) ListBatches(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	batches, total, err := c.Emails.ListBatches(r.Context(), params)
	if err != nil {
		helpers.InternalError(w, r, c.Logger, err)
		return
	}
	if batches == nil {
		batches = []*domain.EmailBatch{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, BatchesResponse{
		Batches:    batches,
		Pagination: helpers.NewPaginationMeta(params, total),
	})
}
