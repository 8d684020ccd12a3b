package intake

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/glbkit/pkg/glb"
)

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrPayloadTooLarge = errors.New("payload_too_large")
)

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// ErrorBody is the "error" member of every failed response.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, glb.ErrUnsupportedVersion):
		return http.StatusUnsupportedMediaType, "unsupported_version"
	case errors.Is(err, glb.ErrContainerTooLarge), errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, glb.ErrTruncatedContainer):
		return http.StatusBadRequest, "truncated_container"
	case errors.Is(err, glb.ErrChunkOverrun):
		return http.StatusBadRequest, "chunk_overrun"
	case errors.Is(err, glb.ErrInvalidChunkSequence):
		return http.StatusBadRequest, "invalid_chunk_sequence"
	case errors.Is(err, glb.ErrMalformedContainer):
		return http.StatusBadRequest, "malformed_container"
	case errors.Is(err, glb.ErrDescriptorParse):
		return http.StatusBadRequest, "descriptor_parse"
	case errors.Is(err, glb.ErrDescriptorSerialization):
		return http.StatusBadRequest, "descriptor_serialization"
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeErr(c *echo.Context, err error) error {
	status, code := classify(err)
	errType := "invalid_request_error"
	if status >= http.StatusInternalServerError {
		errType = "server_error"
	}
	return writeError(c, status, errType, err.Error(), code)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

func writeError(c *echo.Context, status int, errType, msg, code string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{
			Message: msg,
			Type:    errType,
			Code:    code,
		},
	})
}
