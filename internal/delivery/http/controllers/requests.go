package controllers

import (
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/domain"
)

// pathID parses a positive integer URL parameter. On failure it writes a 404,
// as an id that cannot exist names no resource, and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "not found")
		return 0, false
	}
	return id, true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserEnvelope is the success envelope for user responses.
type UserEnvelope struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}
