package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/delivery/http/middleware"
	"townhall/internal/domain"
)

func TestUserController_GetMe(t *testing.T) {
	ctrl := NewUserController(testLogger, &fakeUserService{})

	rr := httptest.NewRecorder()
	ctrl.GetMe(rr, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(middleware.SetUser(req.Context(), &domain.User{ID: 3, Email: "ada@x.org", Roles: []string{domain.RoleWriter}}))
	rr = httptest.NewRecorder()
	ctrl.GetMe(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.User
	require.Nil(t, decodeEnvelope(t, rr, &got))
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, []string{domain.RoleWriter}, got.Roles)
}

func TestUserController_UpdateMe(t *testing.T) {
	stored := &domain.User{ID: 3, Email: "ada@x.org", FirstName: "Ada", LastName: "Lovelace", Version: 1}

	tests := []struct {
		name       string
		body       string
		updateErr  error
		wantStatus int
		wantCode   string
		check      func(t *testing.T, u *domain.User)
	}{
		{
			name:       "partial update keeps other fields",
			body:       `{"first_name":"Augusta"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, u *domain.User) {
				assert.Equal(t, "Augusta", u.FirstName)
				assert.Equal(t, "Lovelace", u.LastName)
				assert.Equal(t, "ada@x.org", u.Email)
			},
		},
		{
			name:       "new email",
			body:       `{"email":"augusta@x.org","phone":"555"}`,
			wantStatus: http.StatusOK,
			check: func(t *testing.T, u *domain.User) {
				assert.Equal(t, "augusta@x.org", u.Email)
				assert.Equal(t, "555", u.Phone)
			},
		},
		{
			name:       "empty name",
			body:       `{"last_name":""}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "malformed email",
			body:       `{"email":"not-an-address"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:       "email taken",
			body:       `{"email":"grace@x.org"}`,
			updateErr:  domain.ErrDuplicateEmail,
			wantStatus: http.StatusOK,
			wantCode:   helpers.ErrCodeConflict,
		},
		{
			name:       "service failure",
			body:       `{"first_name":"Augusta"}`,
			updateErr:  assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantCode:   helpers.ErrCodeInternalError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeUserService{user: stored, updateErr: tt.updateErr}
			ctrl := NewUserController(testLogger, svc)
			req := httptest.NewRequest(http.MethodPatch, "/me", strings.NewReader(tt.body))
			req = req.WithContext(middleware.SetUser(req.Context(), &domain.User{ID: 3}))
			rr := httptest.NewRecorder()

			ctrl.UpdateMe(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				apiErr := decodeEnvelope(t, rr, nil)
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}
			var got domain.User
			require.Nil(t, decodeEnvelope(t, rr, &got))
			require.NotNil(t, svc.lastUpdate)
			tt.check(t, svc.lastUpdate)
			tt.check(t, &got)
		})
	}
	assert.Equal(t, "Ada", stored.FirstName, "the stored user is not mutated by the controller")
}
