// Package response writes the JSON bodies shared by every endpoint.
// Success bodies carry the payload's fields next to "success"; failures carry "error".
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundtech/meeting-backend/pkg/apperr"
)

// Body is the failure response body.
type Body struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OK sends a 200 JSON response with the fields of data at the top level.
// data must encode as a JSON object.
func OK(c *gin.Context, data any) {
	fields, err := flatten(data)
	if err != nil {
		_ = c.Error(err)
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, fields)
}

func flatten(data any) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	fields["success"] = json.RawMessage("true")
	return fields, nil
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Error sends the status matching err's kind. Causes stay out of the body.
func Error(c *gin.Context, err error) {
	c.JSON(StatusFor(err), Body{Success: false, Error: apperr.Message(err)})
}

// StatusFor returns the HTTP status for err's kind.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
