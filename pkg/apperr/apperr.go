// Package apperr defines the error kinds surfaced by the image pipeline.
//
// Kinds are error codes on top of github.com/jmgilman/go/errors so callers
// can branch on Code and decide whether to offer a retry via IsRetryable.
package apperr

import (
	"net/http"

	"github.com/jmgilman/go/errors"
)

const (
	CodeInvalidURL      errors.ErrorCode = "INVALID_URL"
	CodeInvalidResponse errors.ErrorCode = "INVALID_RESPONSE"
	CodeDecode          errors.ErrorCode = "DECODE_ERROR"
	CodeNoConnectivity  errors.ErrorCode = "NO_CONNECTIVITY"
	CodeNetwork                          = errors.CodeNetwork
	CodeConflict                         = errors.CodeConflict
	CodeInvalidInput                     = errors.CodeInvalidInput
)

// InvalidURL reports a malformed or non-http(s) source URL.
func InvalidURL(raw string) error {
	return errors.WithContext(
		errors.New(CodeInvalidURL, "invalid url"),
		"url", raw,
	)
}

// InvalidResponse reports a non-2xx (or otherwise unusable) response.
func InvalidResponse(raw string, status int) error {
	err := errors.Newf(CodeInvalidResponse, "invalid response: status %d", status)
	err = errors.WithContextMap(err, map[string]interface{}{"url": raw, "status": status})
	return errors.WithClassification(err, errors.ClassificationRetryable)
}

// Decode reports bytes that are not a valid image or not UTF-8 text.
func Decode(cause error, what string) error {
	if cause == nil {
		return errors.New(CodeDecode, "cannot decode "+what)
	}
	return errors.Wrap(cause, CodeDecode, "cannot decode "+what)
}

// NoConnectivity reports that a network operation was refused up front
// because the connectivity monitor says the device is offline.
func NoConnectivity() error {
	err := errors.New(CodeNoConnectivity, "no internet connection, check the network and try again")
	return errors.WithClassification(err, errors.ClassificationRetryable)
}

// Network wraps a transport-level failure.
func Network(cause error, raw string) error {
	return errors.WithContext(errors.Wrap(cause, CodeNetwork, "request failed"), "url", raw)
}

// InvalidInput reports a bad request parameter other than the URL.
func InvalidInput(msg string) error {
	return errors.New(CodeInvalidInput, msg)
}

// Conflict reports an operation that is already running.
func Conflict(msg string) error {
	return errors.New(CodeConflict, msg)
}

// Code returns the kind of err, or errors.CodeUnknown.
func Code(err error) errors.ErrorCode {
	return errors.GetCode(err)
}

// Is reports whether err carries the given kind.
func Is(err error, code errors.ErrorCode) bool {
	return err != nil && errors.GetCode(err) == code
}

// IsRetryable reports whether a caller may offer a retry for err.
func IsRetryable(err error) bool {
	return errors.IsRetryable(err)
}

// HTTPStatus maps an error kind to the status the API responds with.
func HTTPStatus(err error) int {
	switch errors.GetCode(err) {
	case CodeInvalidURL, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeInvalidResponse, CodeNetwork:
		return http.StatusBadGateway
	case CodeDecode:
		return http.StatusUnprocessableEntity
	case CodeNoConnectivity:
		return http.StatusServiceUnavailable
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON body returned for failed requests.
type Response struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// ToResponse renders err for API clients without exposing the cause chain.
func ToResponse(err error) Response {
	body := errors.ToJSON(err)
	if body == nil {
		return Response{}
	}
	return Response{
		Code:      body.Code,
		Error:     body.Message,
		Retryable: errors.IsRetryable(err),
	}
}
