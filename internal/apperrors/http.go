package apperrors

import (
	"context"
	"errors"
	"flinkrest/pkg/flink"
	"net/http"
)

// HTTPStatus maps an error to the appropriate HTTP status code.
// Cluster answers other than 404 become 502 since the monitor is a gateway.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, flink.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), flink.StatusCode(err) == http.StatusNotFound:
		return http.StatusNotFound
	case errors.Is(err, flink.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUpstream), errors.Is(err, flink.ErrStatus), errors.Is(err, flink.ErrConvention):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
