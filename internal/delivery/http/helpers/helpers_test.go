package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"townhall/internal/domain"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var body APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestWriteServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"conflict", &domain.ConflictError{Code: domain.CodeAlreadyRsvped, Email: "a@x.org"}, http.StatusOK, ErrCodeConflict},
		{"wrapped validation", fmt.Errorf("submit: %w", domain.NewValidationError(domain.CodeSpotCapacity, "full")), http.StatusBadRequest, domain.CodeSpotCapacity},
		{"plain invalid input", fmt.Errorf("bad: %w", domain.ErrInvalidInput), http.StatusBadRequest, ErrCodeBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"gated", domain.ErrGated, http.StatusForbidden, ErrCodeGated},
		{"invalid token", domain.ErrInvalidToken, http.StatusForbidden, ErrCodeForbidden},
		{"duplicate email", domain.ErrDuplicateEmail, http.StatusOK, ErrCodeConflict},
		{"unexpected", errors.New("pq: connection refused"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			WriteServiceError(rr, req, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			body := decode(t, rr)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, GenericErrorMessage, body.Error.Message)
			}
		})
	}
}

type loginBody struct {
	Email string `json:"email" validate:"required,mailbox"`
	Note  string `json:"note" validate:"max=5"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ok      bool
		message string
	}{
		{"valid", `{"email":"a@x.org"}`, true, ""},
		{"missing email", `{}`, false, "email is required"},
		{"display name rejected", `{"email":"Ada <a@x.org>"}`, false, "email must be a valid email address"},
		{"too long", `{"email":"a@x.org","note":"toolong"}`, false, "note must be at most 5 characters"},
		{"unknown field", `{"email":"a@x.org","x":1}`, false, "unknown field"},
		{"malformed", `{`, false, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			var dest loginBody
			ok := DecodeAndValidate(rr, req, &dest)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
				assert.Contains(t, decode(t, rr).Error.Message, tt.message)
			}
		})
	}
}

func TestDecodeAndValidateList(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		ok      bool
		message string
	}{
		{"array", `[{"email":"a@x.org"},{"email":"b@x.org"}]`, 2, true, ""},
		{"empty array", `[]`, 0, true, ""},
		{"object wrapper", `{"items":[{"email":"a@x.org"}]}`, 0, false, "invalid request body"},
		{"element fails rules", `[{"email":"a@x.org"},{"email":""}]`, 0, false, "email is required"},
		{"unknown element field", `[{"email":"a@x.org","x":1}]`, 0, false, "unknown field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/list", strings.NewReader(tt.body))
			items, ok := DecodeAndValidateList[loginBody](rr, req)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Len(t, items, tt.want)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, decode(t, rr).Error.Message, tt.message)
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		page, size int
	}{
		{"", DefaultPage, DefaultPageSize},
		{"page=3&page_size=10", 3, 10},
		{"page=0&page_size=-1", DefaultPage, DefaultPageSize},
		{"page=x&page_size=1000", DefaultPage, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/email-batches?"+tt.query, nil)
			p := ParsePagination(req)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.size, p.PageSize)
		})
	}

	meta := NewPaginationMeta(domain.PaginationParams{Page: 2, PageSize: 20}, 41)
	assert.Equal(t, 3, meta.TotalPages)
}
