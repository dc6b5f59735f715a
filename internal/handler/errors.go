package handler

import (
	"errors"
	"net/http"

	"procurement/internal/client"
	"procurement/internal/service"
	"procurement/internal/session"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

// errorStatus maps a service error to an HTTP status and the message shown to
// the user. fallback is used when the backend gave no message of its own.
func errorStatus(err error, fallback string) (int, string) {
	var verr *service.ValidationError
	var apiErr *client.APIError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrActionNotAllowed):
		return http.StatusForbidden, "This action is not available for the request in its current state"
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized, "Session expired, please log in again"
	case errors.Is(err, service.ErrNothingToCompare):
		return http.StatusNotFound, "Purchase order or receipt not available yet"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 500 {
			return http.StatusBadGateway, client.ErrorMessage(err, fallback)
		}
		return apiErr.StatusCode, client.ErrorMessage(err, fallback)
	case errors.Is(err, client.ErrUnavailable):
		return http.StatusBadGateway, fallback
	}
	return http.StatusInternalServerError, fallback
}

// respondError writes the error envelope for err. Server-side failures are
// attached to the context so the request logger records them.
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := errorStatus(err, fallback)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, response.Error(status, msg))
}
