package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/todoc/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

// codeStatuses is checked in order against the whole error chain. An expired
// upstream session surfaces as 401 even when a domain layer wrapped it.
var codeStatuses = []struct {
	code   string
	status int
}{
	{apperrors.CodeUnauthorized, http.StatusUnauthorized},
	{apperrors.CodeInvalidInput, http.StatusBadRequest},
	{apperrors.CodeConfirmationRequired, http.StatusConflict},
	{apperrors.CodeNotFound, http.StatusNotFound},
	{apperrors.CodeUnsupported, http.StatusBadRequest},
	{apperrors.CodeDeleteFailed, http.StatusBadGateway},
	{apperrors.CodeChatFailed, http.StatusBadGateway},
	{apperrors.CodeUpstream, http.StatusBadGateway},
	{apperrors.CodeStore, http.StatusInternalServerError},
}

// fromAppError maps a domain error onto a response.
func fromAppError(err error) *HTTPError {
	for _, cs := range codeStatuses {
		if apperrors.IsCode(err, cs.code) {
			return NewHTTPError(cs.status, cs.code, apperrors.MessageOf(err), err)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal_error", errMessage(err), err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
