package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/response"
	"github.com/fatflowers/contactbook/pkg/types"
)

// statusOf maps service errors to an HTTP status and envelope code.
func statusOf(err error) (int, response.APIResponseCode) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, response.APIResponseCodeNotFound
	case errors.Is(err, types.ErrInvalidArgument), errors.Is(err, billing.ErrVerification):
		return http.StatusBadRequest, response.APIResponseCodeBadRequest
	case errors.Is(err, types.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.APIResponseCodeUnauthorized
	case errors.Is(err, types.ErrForbidden), errors.Is(err, types.ErrRegistrationClosed):
		return http.StatusForbidden, response.APIResponseCodeForbidden
	case errors.Is(err, types.ErrEmailTaken):
		return http.StatusConflict, response.APIResponseCodeConflict
	default:
		return http.StatusInternalServerError, response.APIResponseCodeError
	}
}

// abortWithError writes err as an envelope. Internal errors are logged and
// their detail is not sent to the client.
func abortWithError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		logctx.FromGin(c, log).Errorw("request_failed", "path", c.FullPath(), "error", err)
		response.Abort(c, status, code, "internal error")
		return
	}
	response.Abort(c, status, code, err.Error())
}

func abortBadRequest(c *gin.Context, err error) {
	response.Abort(c, http.StatusBadRequest, response.APIResponseCodeBadRequest, err.Error())
}
