package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"stagetime/backend/internal/service/availability"
	"stagetime/backend/internal/service/schedule"
	"stagetime/backend/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps service and store errors onto the API's error contract:
// validation failures are 400 with the offending field, uniqueness losses are
// 409, missing aggregates are 404. Anything else is an opaque 500.
func writeError(c echo.Context, err error) error {
	var availErr *availability.ValidationError
	if errors.As(err, &availErr) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: availErr.Error(), Field: availErr.Field})
	}
	var schedErr *schedule.ValidationError
	if errors.As(err, &schedErr) {
		return c.JSON(http.StatusBadRequest, errorBody{Error: schedErr.Error(), Field: schedErr.Field})
	}
	if errors.Is(err, store.ErrConflict) {
		return c.JSON(http.StatusConflict, errorBody{Error: "slot already taken"})
	}
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: "not found"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
}
