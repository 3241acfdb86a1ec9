package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/middleware"
	"github.com/iliyamo/train-seat-reservation/internal/utils"
)

var httpLog = log.New("http")

// respondError maps the engine's error taxonomy onto HTTP statuses.
// Seat-scoped conflicts carry the offending seat ids so clients can
// reselect.
func respondError(c echo.Context, err error) error {
	var conflict domain.ConflictError
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case domain.IsNotFound(err):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.As(err, &conflict):
		body := echo.Map{"error": err.Error()}
		if len(conflict.SeatIDs) > 0 {
			body["seat_ids"] = conflict.SeatIDs
		}
		return c.JSON(http.StatusConflict, body)
	case domain.IsTransient(err):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, retry"})
	case errors.Is(err, domain.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error()})
	case domain.IsConfiguration(err):
		httpLog.Errorf("action=respond path=%s err=%v", c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	default:
		httpLog.Errorf("action=respond path=%s err=%v", c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ValidationError{Field: name, Msg: "must be a positive integer"}
	}
	return id, nil
}

// queryID parses an optional numeric query parameter; absent means 0.
func queryID(c echo.Context, name string) (uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.ValidationError{Field: name, Msg: "must be a non-negative integer"}
	}
	return id, nil
}

// caller returns the authenticated user and their hold owner id.
func caller(c echo.Context) (uint64, string, bool) {
	uid, ok := middleware.CurrentUser(c)
	if !ok {
		return 0, "", false
	}
	return uid, utils.HolderID(uid), true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}
