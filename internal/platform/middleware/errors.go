package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

const genericMessage = "something went wrong"

var defaultCodes = map[int]string{
	http.StatusBadRequest:            "validation_error",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "route_not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "payload_too_large",
	http.StatusUnprocessableEntity:   "unprocessable_entity",
	http.StatusGatewayTimeout:        "timeout",
}

// NewError builds an echo.HTTPError that carries an explicit error code.
func NewError(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, ErrorBody{Message: message, Code: code})
}

// ErrorHandler renders errors as ErrorBody. Anything that is not an
// echo.HTTPError becomes a 500 with a generic message; the cause is logged.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolve(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

func resolve(err error) (int, ErrorBody) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorBody{
			Message: "request exceeded the allowed time",
			Code:    defaultCodes[http.StatusGatewayTimeout],
		}
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return http.StatusInternalServerError, ErrorBody{Message: genericMessage, Code: "internal_error"}
	}
	if he.Internal != nil && errors.Is(he.Internal, context.DeadlineExceeded) {
		return resolve(he.Internal)
	}

	status := he.Code
	if status >= http.StatusInternalServerError {
		return status, ErrorBody{Message: genericMessage, Code: "internal_error"}
	}

	switch m := he.Message.(type) {
	case ErrorBody:
		return status, m
	case string:
		return status, ErrorBody{Message: m, Code: codeFor(status)}
	default:
		return status, ErrorBody{Message: http.StatusText(status), Code: codeFor(status)}
	}
}

func codeFor(status int) string {
	if code, ok := defaultCodes[status]; ok {
		return code
	}
	return "error"
}
